package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/usecase"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdSync() *cli.Command {
	var pull bool
	var history int
	var output string
	var sess session

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "pull",
			Usage:       "Adopt the mirrored ledger before pushing, keeping local incidents it does not have",
			Category:    "Sync",
			Destination: &pull,
		},
		&cli.IntFlag{
			Name:        "history",
			Usage:       "List the latest N mirrored revisions instead of pushing",
			Category:    "Sync",
			Destination: &history,
		},
		outputFlag(&output),
	}
	flags = append(flags, sess.Flags()...)

	return &cli.Command{
		Name:  "sync",
		Usage: "Push the local ledger to the mirror",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := sess.open(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if history > 0 {
				return printHistory(ctx, c, uc, history, output)
			}

			if pull {
				version, err := uc.Pull(ctx)
				switch {
				case err == nil:
					logging.Default().Info("Ledger pulled from mirror",
						"version", version,
						"incidents", uc.Ledger().Len(),
					)
				case errors.Is(err, model.ErrNotFound):
					logging.Default().Info("Mirror has no ledger yet, pushing local copy")
				default:
					return goerr.Wrap(err, "failed to pull ledger")
				}
			}

			return reportSync(ctx, uc)
		},
	}
}

func printHistory(ctx context.Context, c *cli.Command, uc *usecase.LedgerUseCase, limit int, output string) error {
	revs, err := uc.Revisions(ctx, limit)
	if err != nil {
		return goerr.Wrap(err, "failed to list mirror revisions")
	}

	w, closeOutput, err := openOutput(c, output)
	if err != nil {
		return err
	}
	err = writeHistory(w, uc.SyncManager().Base(), revs)
	if closeErr := closeOutput(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return goerr.Wrap(err, "failed to write mirror revisions")
	}
	return nil
}

// writeHistory prints one revision per line, marking the version the local
// ledger was last synced with
func writeHistory(w io.Writer, base model.Version, revs []*model.Revision) error {
	if _, err := fmt.Fprintln(w, "pushed_at\tversion\tprevious\tbase"); err != nil {
		return err
	}
	for _, rev := range revs {
		mark := ""
		if rev.Version == base {
			mark = "*"
		}
		previous := rev.Previous.String()
		if previous == "" {
			previous = "-"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rev.PushedAt.UTC().Format(time.RFC3339), rev.Version, previous, mark); err != nil {
			return err
		}
	}
	return nil
}
