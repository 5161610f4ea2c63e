package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/cli/config"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/usecase"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func cmdImport() *cli.Command {
	var workbookPath string
	var noSync bool
	var notionCfg config.Notion
	var sess session

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "workbook",
			Aliases:     []string{"w"},
			Usage:       "Workbook document replacing incidents, hazards and training",
			Category:    "Import",
			Destination: &workbookPath,
		},
		&cli.BoolFlag{
			Name:        "no-sync",
			Usage:       "Only write the local ledger, do not push to the mirror",
			Category:    "Sync",
			Destination: &noSync,
		},
	}
	flags = append(flags, notionCfg.Flags()...)
	flags = append(flags, sess.Flags()...)

	return &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Load a workbook and/or the Notion hazard database into the ledger",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			notionSvc, dbID, err := notionCfg.Configure()
			if err != nil {
				return err
			}
			if workbookPath == "" && notionSvc == nil {
				return goerr.Wrap(config.ErrMissingArgument, "nothing to import",
					goerr.V(config.OptionKey, "workbook or notion-hazard-db"))
			}

			uc, closer, err := sess.open(ctx)
			if err != nil {
				return err
			}
			defer closer()

			var data []byte
			var hazards []model.HazardInput

			eg, egCtx := errgroup.WithContext(ctx)
			if workbookPath != "" {
				eg.Go(func() error {
					// #nosec G304 - path is expected to be provided by CLI argument
					raw, err := os.ReadFile(workbookPath)
					if err != nil {
						return goerr.Wrap(err, "failed to read workbook", goerr.V("path", workbookPath))
					}
					data = raw
					return nil
				})
			}
			if notionSvc != nil {
				eg.Go(func() error {
					rows, err := usecase.FetchHazards(egCtx, notionSvc, dbID)
					if err != nil {
						return goerr.Wrap(err, "failed to fetch hazards from Notion", goerr.V("database_id", dbID))
					}
					hazards = rows
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			// The workbook replaces the whole ledger, so hazards from Notion
			// are applied on top of it.
			if data != nil {
				if err := uc.ImportWorkbook(ctx, data); err != nil {
					return err
				}
			}
			if notionSvc != nil {
				if err := uc.ImportHazards(ctx, hazards); err != nil {
					return err
				}
			}

			logging.Default().Info("Import completed",
				"incidents", uc.Ledger().Len(),
				"hazards", len(uc.Ledger().Hazards()),
			)

			if noSync {
				if err := uc.Save(ctx); err != nil {
					return goerr.Wrap(err, "failed to write local ledger")
				}
				return nil
			}
			return reportSync(ctx, uc)
		},
	}
}
