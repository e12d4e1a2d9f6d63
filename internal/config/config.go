package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting of the kernel process.
type Config struct {
	Port           int           `mapstructure:"port"`
	Env            string        `mapstructure:"env"`
	LogLevel       string        `mapstructure:"log_level"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	DBPath         string        `mapstructure:"db_path"`
	MaxActiveJobs  int64         `mapstructure:"max_active_jobs"` // 0: no cap
	QueueSize      int           `mapstructure:"queue_size"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"` // 0: disabled
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	// HeartbeatInterval paces session pruning and pipeline stats.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// Development reports whether error details may be exposed to clients.
func (c Config) Development() bool {
	return strings.EqualFold(c.Env, "development")
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// DefaultAllowedOrigins are the frontends allowed to call the API with credentials.
var DefaultAllowedOrigins = []string{
	"https://super-scraper-production.up.railway.app",
	"http://localhost:5173",
	"http://localhost:5000",
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 3001)
	v.SetDefault("env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("db_path", "")
	v.SetDefault("max_active_jobs", 0)
	v.SetDefault("queue_size", 256)
	v.SetDefault("rate_limit_rps", 0.0)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("session_ttl", 10*time.Minute)
	v.SetDefault("heartbeat_interval", time.Minute)
}

// NewViper returns a viper instance reading SEAO_* variables on top of the defaults.
// PORT is also honoured unprefixed, as hosting platforms set it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SEAO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "SEAO_PORT", "PORT")
	SetDefaults(v)
	return v
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()
	return LoadWithViper(NewViper())
}

// LoadWithViper decodes and validates the configuration held by v.
func LoadWithViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	// Comma-separated lists come in from the environment untrimmed.
	cfg.AllowedOrigins = splitList(strings.Join(cfg.AllowedOrigins, ","))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Newf("invalid port %d", c.Port)
	}
	if c.MaxActiveJobs < 0 {
		return errors.Newf("max_active_jobs must not be negative, got %d", c.MaxActiveJobs)
	}
	if c.QueueSize <= 0 {
		return errors.Newf("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.RateLimitRPS < 0 {
		return errors.Newf("rate_limit_rps must not be negative, got %g", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return errors.Newf("rate_limit_burst must be positive when rate limiting, got %d", c.RateLimitBurst)
	}
	if c.SessionTTL <= 0 {
		return errors.Newf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.HeartbeatInterval <= 0 {
		return errors.Newf("heartbeat_interval must be positive, got %s", c.HeartbeatInterval)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
