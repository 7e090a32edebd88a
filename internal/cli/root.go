// Package cli wires configuration, the store client and the views into the
// msglist command.
package cli

import (
	"fmt"
	"os"

	"github.com/adi-253/msglist/internal/config"
	"github.com/adi-253/msglist/internal/version"
	"github.com/spf13/cobra"
)

// Execute runs the msglist command with os.Args.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. The root command runs the terminal view.
func NewRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   version.AppName,
		Short: "Keep a list of messages in sync with a remote message store",
		Long: `msglist shows the messages held by a remote message store and lets you
add and delete them. Changes appear immediately and are confirmed by the
store in the background.

Run without a subcommand for the interactive view.`,
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			return applyFlags(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, cfg)
		},
	}

	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("store-url", config.DefaultStoreURL, "base URL of the message store")
	flags.Duration("timeout", config.DefaultRequestTimeout, "timeout for each store call")
	flags.Bool("revert-failed", false, "undo changes the store did not confirm")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-sink", "", `log destination: "", "stderr", "stdout" or "file:<path>"`)
	flags.String("metrics-addr", "", "serve prometheus metrics on this address")
	flags.Duration("refresh", 0, "reload the list on this interval (0 disables)")

	cfgFn := func() *config.Config { return cfg }
	rootCmd.AddCommand(
		newListCmd(cfgFn),
		newGetCmd(cfgFn),
		newAddCmd(cfgFn),
		newDeleteCmd(cfgFn),
	)
	return rootCmd
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("store-url") {
		if cfg.StoreURL, err = flags.GetString("store-url"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.RequestTimeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("revert-failed") {
		if cfg.RevertFailed, err = flags.GetBool("revert-failed"); err != nil {
			return err
		}
	}
	if flags.Changed("log-level") {
		if cfg.LogLevel, err = flags.GetString("log-level"); err != nil {
			return err
		}
	}
	if flags.Changed("log-sink") {
		if cfg.LogSink, err = flags.GetString("log-sink"); err != nil {
			return err
		}
	}
	if flags.Changed("metrics-addr") {
		if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
			return err
		}
	}
	if flags.Changed("refresh") {
		if cfg.RefreshInterval, err = flags.GetDuration("refresh"); err != nil {
			return err
		}
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = config.DefaultRequestTimeout
	}
	if cfg.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative, got %v", cfg.RefreshInterval)
	}
	return nil
}
