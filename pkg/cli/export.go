package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/workbook"
	"github.com/urfave/cli/v3"
)

func cmdExport() *cli.Command {
	var table string
	var output string
	var document bool
	var sess session

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "table",
			Aliases:     []string{"t"},
			Usage:       "Table to export [" + workbook.TableIncidents + "|" + workbook.TableHazards + "|" + workbook.TableTraining + "]",
			Value:       workbook.TableIncidents,
			Destination: &table,
		},
		&cli.BoolFlag{
			Name:        "document",
			Usage:       "Write the whole workbook document instead of one CSV table",
			Destination: &document,
		},
		outputFlag(&output),
	}
	flags = append(flags, sess.Flags()...)

	return &cli.Command{
		Name:    "export",
		Aliases: []string{"e"},
		Usage:   "Export the local ledger as CSV or as a workbook document",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := sess.open(ctx)
			if err != nil {
				return err
			}
			defer closer()

			snapshot := uc.Ledger().Snapshot()

			w, closeOutput, err := openOutput(c, output)
			if err != nil {
				return err
			}

			if document {
				var data []byte
				data, err = uc.Codec().Encode(snapshot)
				if err == nil {
					_, err = w.Write(data)
				}
			} else {
				err = uc.Codec().WriteCSV(w, snapshot, table)
			}
			if closeErr := closeOutput(); err == nil && closeErr != nil {
				err = closeErr
			}
			if err != nil {
				return goerr.Wrap(err, "failed to export ledger", goerr.V("table", table))
			}
			return nil
		},
	}
}
