// Package cmdutils builds the cobra subcommands and the process lifecycle around the business entry points.
package cmdutils

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/openkcm/common-sdk/pkg/status"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/internal/config"
)

const (
	healthStatusTimeout = 5 * time.Second
)

// configPaths are searched in order for config.yaml.
var configPaths = []string{
	"/etc/eventbot-dashboard",
	"$HOME/.eventbot-dashboard",
	".",
}

// BusinessFunc is the entry point of a subcommand, e.g. business.Main.
type BusinessFunc func(context.Context, *config.Config) error

// WrapperFunc prepares the process around a BusinessFunc. See RunAsService and RunAsJob.
type WrapperFunc func(context.Context, func(context.Context, *config.Config) error, *config.Config) error

type runOptions struct {
	telemetry    bool
	statusServer bool
}

func CobraCommand(use, short, long, buildInfo string, wrap WrapperFunc, fn BusinessFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(buildInfo)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if err := wrap(cmd.Context(), fn, cfg); err != nil {
				return fmt.Errorf("running %s: %w", use, err)
			}

			return nil
		},
	}
}

// RunAsService runs fn with telemetry and the status server, for long running commands.
func RunAsService(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	return run(ctx, runOptions{telemetry: true, statusServer: true}, fn, cfg)
}

// RunAsJob runs fn with logging only, for commands that exit when done.
func RunAsJob(ctx context.Context, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	return run(ctx, runOptions{}, fn, cfg)
}

func run(ctx context.Context, opts runOptions, fn func(context.Context, *config.Config) error, cfg *config.Config) error {
	if err := logger.InitAsDefault(cfg.Logger, cfg.Application); err != nil {
		return oops.In("main").Wrapf(err, "Failed to initialise the logger")
	}

	ctx = slogctx.With(ctx, "application", cfg.Application.Name)
	logStartup(ctx, cfg)

	if opts.telemetry {
		if err := otlp.Init(ctx, &cfg.Application, &cfg.Telemetry, &cfg.Logger); err != nil {
			return oops.In("main").Wrapf(err, "Failed to load the telemetry")
		}
	}

	if opts.statusServer {
		go func() {
			if err := startStatusServer(ctx, cfg); err != nil {
				slogctx.Error(ctx, "Failure on the status server", "error", err)
				// the API must not keep serving without probes
				_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
			}
		}()
	}

	if err := fn(ctx, cfg); err != nil {
		return oops.In("main").Wrapf(err, "Failed to run the business application")
	}

	return nil
}

// logStartup logs the application section only. The rest of the config holds secrets.
func logStartup(ctx context.Context, cfg *config.Config) {
	slogctx.Debug(ctx, "Starting the application", slog.Any("application", cfg.Application))
}

func loadConfig(buildInfo string) (*config.Config, error) {
	cfg := &config.Config{}

	if err := commoncfg.LoadConfig(cfg, map[string]any{}, configPaths...); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if err := commoncfg.UpdateConfigVersion(&cfg.BaseConfig, buildInfo); err != nil {
		return nil, fmt.Errorf("updating the version configuration: %w", err)
	}

	return cfg, nil
}

// startStatusServer serves liveness and a readiness probe backed by the user config database.
func startStatusServer(ctx context.Context, cfg *config.Config) error {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making connection string from config: %w", err)
	}

	liveness := status.WithLiveness(
		health.NewHandler(
			health.NewChecker(health.WithDisabledAutostart()),
		),
	)

	readiness := status.WithReadiness(
		health.NewHandler(
			health.NewChecker(
				health.WithDisabledAutostart(),
				health.WithTimeout(healthStatusTimeout),
				health.WithDatabaseChecker("pgx", connStr),
				health.WithStatusListener(statusListener),
			),
		),
	)

	if err := status.Start(ctx, &cfg.BaseConfig, liveness, readiness); err != nil {
		return fmt.Errorf("starting status server: %w", err)
	}

	return nil
}

func statusListener(ctx context.Context, state health.State) {
	slogctx.Info(ctx, "Readiness status changed", "status", state.Status)

	for name, check := range state.CheckState {
		if check.Result != nil {
			slogctx.Warn(ctx, "Readiness check failing", "check", name, "status", check.Status, "error", check.Result)
		}
	}
}
