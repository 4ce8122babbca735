package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/torosent/relaybench/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errThresholdsFailed is returned after the report when any threshold failed.
var errThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	cancel()
	if err != nil {
		if !errors.Is(err, errThresholdsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "relaybench",
		Short: "WebSocket relay connection and message benchmark",
		Long: `relaybench opens many WebSocket connections against a relay at a controlled
rate and measures connect time, connection lifetimes and message round trips.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newModeCmd(config.ModeConnect, "Open connections and hold them idle", stdout, stderr),
		newModeCmd(config.ModeEcho, "Send random text payloads and time each echo", stdout, stderr),
		newModeCmd(config.ModeRequest, "Run subscription query cycles against a relay", stdout, stderr),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "relaybench %s\n", version)
			},
		},
	)
	return root
}

// newModeCmd creates the subcommand of one benchmark mode. Flag parsing is
// left to the config loader so file, environment and flag values merge in
// one place.
func newModeCmd(mode config.Mode, short string, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:                fmt.Sprintf("%s [URL]", mode),
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().Load(mode, args)
			if err != nil {
				if errors.Is(err, config.ErrHelpRequested) {
					return nil
				}
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runBenchmark(cmd.Context(), cfg, stdout, stderr)
		},
	}
	// Registered for `relaybench help <mode>`; parsing happens in the loader.
	config.RegisterFlags(cmd, mode)
	return cmd
}
