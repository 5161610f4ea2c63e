package cli

import (
	"context"
	"time"

	"github.com/secmon-lab/anzen/pkg/cli/config"
	"github.com/secmon-lab/anzen/pkg/utils/async"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// notificationGrace bounds how long a command waits for notifications still
// being delivered when it exits
const notificationGrace = 10 * time.Second

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()

	flags := loggerCfg.Flags()
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "anzen",
		Usage:   "Workplace safety incident ledger with risk scoring and mirrored sync",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, f)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Debug("Starting anzen", "logger", loggerCfg, "sentry", sentryCfg)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			waitCtx, cancel := context.WithTimeout(context.Background(), notificationGrace)
			defer cancel()
			if err := async.Wait(waitCtx); err != nil {
				logging.Default().Warn("exiting with notifications in flight", "error", err)
			}

			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdRecord(),
			cmdImport(),
			cmdReport(),
			cmdSync(),
			cmdExport(),
			cmdValidate(),
			cmdMigrate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
