package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/cmd/eventbot-dashboard/apiserver"
	"github.com/eventbot/dashboard/cmd/eventbot-dashboard/migrate"
)

// BuildInfo will be set by the build system
var BuildInfo = "{}"

const defaultGracefulShutdown = time.Second

// options carries the values set by persistent flags and the version command.
type options struct {
	gracefulShutdown time.Duration
	skipShutdownWait bool
}

func versionCmd(opts *options, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the EventBot dashboard build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			opts.skipShutdownWait = true

			value, err := utils.ExtractFromComplexValue(BuildInfo)
			if err != nil {
				return fmt.Errorf("reading build info: %w", err)
			}

			_, err = fmt.Fprintln(out, value)
			return err
		},
	}
}

func rootCmd(opts *options, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "eventbot-dashboard",
		Short:         "EventBot dashboard",
		Long:          "EventBot dashboard backend, connecting Spotify accounts with PKCE and relaying top artists to Telegram.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().DurationVar(&opts.gracefulShutdown, "graceful-shutdown", defaultGracefulShutdown,
		"time to wait after the command returns, letting telemetry flush")

	cmd.AddCommand(
		versionCmd(opts, out),
		apiserver.Cmd(BuildInfo),
		migrate.Cmd(BuildInfo),
	)

	return cmd
}

func execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &options{}
	cmd := rootCmd(opts, os.Stdout)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "Failed to run the application", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	if !opts.skipShutdownWait && opts.gracefulShutdown > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "Graceful shutdown in %s\n", opts.gracefulShutdown)
		time.Sleep(opts.gracefulShutdown)
	}

	return nil
}

func main() {
	if err := execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
