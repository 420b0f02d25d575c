package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/smartdoctor/agent/internal/agent"
	"github.com/smartdoctor/agent/internal/client"
	"github.com/smartdoctor/agent/internal/config"
	"github.com/smartdoctor/agent/internal/logger"
	"github.com/smartdoctor/agent/internal/page"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smartdoctor-agent",
		Short: "SmartDoctor Device Agent",
		Long: `SmartDoctor Agent collects a telemetry snapshot of this device (memory,
storage, battery, CPU, screen and network identifiers) and exposes it to the
diagnosis page through a local bridge.`,
		Version:       agent.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config directory (default: ~/.smartdoctor)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log probe failures and debug output")

	// Add commands
	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(pageURLCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(initCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and initializes logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger.Init(cfg.Logging)

	return cfg, nil
}

func collectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Print one device snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			info := agent.NewCollector(cfg, log.Logger).Collect()

			switch format {
			case "json":
				fmt.Fprintln(cmd.OutOrStdout(), info.JSON())
			case "yaml":
				data, err := info.YAML()
				if err != nil {
					return fmt.Errorf("failed to render snapshot: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
			default:
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}

func serveCmd() *cobra.Command {
	var deepLink string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the page bridge in foreground",
		Long: `Serve the device bridge on the configured loopback address.

The page calls GET /bridge/device-info or the /bridge/ws websocket to obtain a
snapshot. When a deep link with session_id and base_url is given, both are
forwarded to the page URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			return agent.Run(cfg, deepLink)
		},
	}

	cmd.Flags().StringVar(&deepLink, "deep-link", "", "deep link carrying session_id and base_url")
	return cmd
}

func pageURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page-url [deep-link]",
		Short: "Print the page URL for an optional deep link",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			deepLink := ""
			if len(args) == 1 {
				deepLink = args[0]
			}

			fmt.Fprintln(cmd.OutOrStdout(), agent.PageURL(cfg, cfg.ListenAddr, deepLink))
			return nil
		},
	}

	return cmd
}

func submitCmd() *cobra.Command {
	var sessionID, baseURL string

	cmd := &cobra.Command{
		Use:   "submit [deep-link]",
		Short: "Collect a snapshot and submit it to the diagnosis server",
		Long: `Collect a snapshot and POST it to {base_url}/api/submit_phone_data.

The session and server come from a deep link or from --session-id and --base-url.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sid, base, err := sessionTarget(args, sessionID, baseURL)
			if err != nil {
				return err
			}

			timeout := time.Duration(cfg.SubmitTimeoutSeconds) * time.Second
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			info := agent.NewCollector(cfg, log.Logger).Collect()
			resp, err := client.New(base, timeout).SubmitPhoneData(ctx, sid, info)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Submitted snapshot for session %s: %s\n", sid, resp.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "diagnosis session id")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "diagnosis server base URL")
	return cmd
}

func checkCmd() *cobra.Command {
	var sessionID, baseURL string

	cmd := &cobra.Command{
		Use:   "check [deep-link]",
		Short: "Check whether the diagnosis server received a snapshot",
		Long: `Query {base_url}/api/check_phone_data/{session_id} and print the stored
snapshot, if any.

The session and server come from a deep link or from --session-id and --base-url.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sid, base, err := sessionTarget(args, sessionID, baseURL)
			if err != nil {
				return err
			}

			timeout := time.Duration(cfg.SubmitTimeoutSeconds) * time.Second
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return agent.Check(ctx, cfg, base, sid, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "diagnosis session id")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "diagnosis server base URL")
	return cmd
}

// sessionTarget resolves the session and server from a deep link argument
// or the --session-id and --base-url flags
func sessionTarget(args []string, sessionID, baseURL string) (string, string, error) {
	if len(args) == 1 {
		sid, base, ok := page.Params(args[0])
		if !ok {
			return "", "", fmt.Errorf("deep link must carry %s and %s", page.ParamSessionID, page.ParamBaseURL)
		}
		sessionID, baseURL = sid, base
	}
	if sessionID == "" || baseURL == "" {
		return "", "", fmt.Errorf("session id and base url are required")
	}
	return sessionID, baseURL, nil
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show agent status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			return agent.Status(cfg, cmd.OutOrStdout())
		},
	}

	return cmd
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := cfg.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", cfg.Paths().Config)
			return nil
		},
	}

	return cmd
}
