package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/anzen/pkg/controller/http"
	"github.com/secmon-lab/anzen/pkg/service/worker"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var syncInterval time.Duration
	var sess session

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("ANZEN_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "sync-interval",
			Usage:       "Interval of background pushes to the mirror (0 disables)",
			Category:    "Sync",
			Value:       5 * time.Minute,
			Sources:     cli.EnvVars("ANZEN_SYNC_INTERVAL"),
			Destination: &syncInterval,
		},
	}
	flags = append(flags, sess.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := sess.open(ctx)
			if err != nil {
				return err
			}
			defer closer()

			var syncWorker *worker.SyncWorker
			if syncInterval > 0 && uc.SyncManager().HasMirror() {
				syncWorker = worker.NewSyncWorker(uc, syncInterval)
				if err := syncWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start sync worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"incidents", uc.Ledger().Len(),
					"mirror", uc.SyncManager().HasMirror(),
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if syncWorker != nil {
					syncWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// Push writes accepted since the last periodic sync
				if uc.SyncManager().HasMirror() {
					if err := reportSync(shutdownCtx, uc); err != nil {
						logging.Default().Warn("final sync failed", "error", err)
					}
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
