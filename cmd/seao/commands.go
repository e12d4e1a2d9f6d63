package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/manthysbr/seao/pkg/client"
)

type cli struct {
	v *viper.Viper
}

func newRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("SEAO")
	c.v.AutomaticEnv()
	c.v.SetDefault("api_url", client.DefaultBaseURL)

	root := &cobra.Command{
		Use:           "seao",
		Short:         "Start and follow SEAO tender scraping jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("api-url", "", "API base URL (env SEAO_API_URL)")
	root.PersistentFlags().Bool("json", false, "Print raw JSON")
	_ = c.v.BindPFlag("api_url", root.PersistentFlags().Lookup("api-url"))
	_ = c.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(
		c.healthCommand(),
		c.startCommand(),
		c.statusCommand(),
		c.jobsCommand(),
		c.watchCommand(),
		c.verifyCodeCommand(),
		c.cancelCommand(),
	)
	return root
}

func (c *cli) client() *client.Client {
	return client.New(c.v.GetString("api_url"))
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

func (c *cli) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := c.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), h)
			}
			pterm.Success.Printf("API %s is %s (%s)\n", c.client().BaseURL(), h.Status, h.Timestamp)
			return nil
		},
	}
}

func (c *cli) startCommand() *cobra.Command {
	var (
		username string
		password string
		terms    []string
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a scraping job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SEAO_PASSWORD")
			}
			api := c.client()
			resp, err := api.StartJob(cmd.Context(), client.StartJobRequest{
				Username:    username,
				Password:    password,
				SearchTerms: terms,
			})
			if err != nil {
				return err
			}
			if c.jsonOutput() && !watch {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			pterm.Success.Println(resp.Message)
			pterm.Printf("  %s %s\n", pterm.Gray("job:"), pterm.LightCyan(resp.JobID))
			pterm.Printf("  %s %s\n", pterm.Gray("session:"), pterm.LightCyan(resp.SessionID))
			if !watch {
				return nil
			}
			return c.watch(cmd, api, resp.JobID, interval)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (env SEAO_PASSWORD)")
	cmd.Flags().StringSliceVarP(&terms, "search-term", "s", nil, "Search term, repeatable")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it ends")
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "Polling interval")
	return cmd
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.client().JobStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), st)
			}
			renderStatus(st)
			return nil
		},
	}
}

func (c *cli) jobsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List every job known to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.client().ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), list)
			}
			return renderJobs(list)
		},
	}
}

func (c *cli) watchCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a job until it completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.watch(cmd, c.client(), args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "Polling interval")
	return cmd
}

func (c *cli) watch(cmd *cobra.Command, api *client.Client, jobID string, interval time.Duration) error {
	poller := client.NewPoller(api)
	poller.Interval = interval

	if c.jsonOutput() {
		final, err := poller.Wait(cmd.Context(), jobID, nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), final)
	}

	bar, err := pterm.DefaultProgressbar.WithTotal(100).WithTitle("initializing").Start()
	if err != nil {
		return err
	}
	shown := 0
	final, err := poller.Wait(cmd.Context(), jobID, func(st client.JobStatus) {
		bar.UpdateTitle(st.Status)
		if st.Progress > shown {
			bar.Add(st.Progress - shown)
			shown = st.Progress
		}
	})
	_, _ = bar.Stop()
	if err != nil {
		return err
	}

	renderStatus(final)
	return nil
}

func (c *cli) verifyCodeCommand() *cobra.Command {
	var sessionID, jobID string

	cmd := &cobra.Command{
		Use:   "verify-code <code>",
		Short: "Submit the 6-digit security code of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().SubmitSecurityCode(cmd.Context(), args[0], sessionID, jobID)
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			pterm.Success.Println(resp.Message)
			pterm.Printf("  %s %s\n", pterm.Gray("token:"), resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id returned by start")
	cmd.Flags().StringVar(&jobID, "job", "", "Job id the session belongs to")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func (c *cli) cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Stop a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.client().CancelJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), st)
			}
			renderStatus(st)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
