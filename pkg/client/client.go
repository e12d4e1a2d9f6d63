// Package client talks to the SEAO downloader API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
)

const DefaultBaseURL = "http://localhost:3001/api"

// ErrNotFound matches APIErrors carrying a 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response. Message comes from the body when it has one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	// RetryDelay is the pause between security-code attempts.
	RetryDelay time.Duration
	// MaxRetries bounds security-code retries after the first attempt.
	MaxRetries uint64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    NormalizeBaseURL(baseURL),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		RetryDelay: 2 * time.Second,
		MaxRetries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeBaseURL adds a scheme when missing and makes sure the URL ends with /api.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return DefaultBaseURL
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	if !strings.HasSuffix(raw, "/api") {
		raw += "/api"
	}
	return raw
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) StartJob(ctx context.Context, req StartJobRequest) (StartJobResponse, error) {
	var out StartJobResponse
	err := c.do(ctx, http.MethodPost, "/scraper/start", req, &out)
	return out, err
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var out JobStatus
	err := c.do(ctx, http.MethodGet, "/scraper/status/"+url.PathEscape(jobID), nil, &out)
	return out, err
}

func (c *Client) ListJobs(ctx context.Context) (JobList, error) {
	var out JobList
	err := c.do(ctx, http.MethodGet, "/jobs", nil, &out)
	return out, err
}

func (c *Client) CancelJob(ctx context.Context, jobID string) (JobStatus, error) {
	var out JobStatus
	err := c.do(ctx, http.MethodPost, "/scraper/"+url.PathEscape(jobID)+"/cancel", nil, &out)
	return out, err
}

// SubmitSecurityCode verifies the code for a session. Network failures and
// timeouts are retried; API errors are returned at once.
func (c *Client) SubmitSecurityCode(ctx context.Context, code, sessionID, jobID string) (VerifyCodeResponse, error) {
	req := VerifyCodeRequest{Code: code, SessionID: sessionID, JobID: jobID}

	var out VerifyCodeResponse
	op := func() error {
		err := c.do(ctx, http.MethodPost, "/scraper/verify-code", req, &out)
		if err == nil || isNetworkError(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.RetryDelay), c.MaxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return VerifyCodeResponse{}, err
	}
	return out, nil
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read response of %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode response of %s %s", method, path)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &env); err == nil {
		msg = env.Message
		if msg == "" {
			msg = env.Error
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP error %d", status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
