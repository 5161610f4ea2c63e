package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdRecord() *cli.Command {
	var input model.IncidentInput
	var lostDays int
	var noSync bool
	var sess session

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Incident identifier as written on the form",
			Category:    "Incident",
			Destination: &input.ID,
		},
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Date of the incident (YYYY-MM-DD)",
			Category:    "Incident",
			Required:    true,
			Destination: &input.Date,
		},
		&cli.StringFlag{
			Name:        "time",
			Usage:       "Time of day (HH:MM)",
			Category:    "Incident",
			Destination: &input.Time,
		},
		&cli.StringFlag{
			Name:        "area",
			Usage:       "Area where it happened",
			Category:    "Incident",
			Destination: &input.Area,
		},
		&cli.StringFlag{
			Name:        "role",
			Usage:       "Role or position of the person involved",
			Category:    "Incident",
			Destination: &input.Role,
		},
		&cli.StringFlag{
			Name:        "type",
			Usage:       "Incident type (Accident, Incident, Near-Miss, Other)",
			Category:    "Incident",
			Required:    true,
			Destination: &input.Type,
		},
		&cli.StringFlag{
			Name:        "hazard",
			Usage:       "Hazard involved",
			Category:    "Incident",
			Destination: &input.Hazard,
		},
		&cli.IntFlag{
			Name:        "lost-days",
			Usage:       "Working days lost",
			Category:    "Incident",
			Destination: &lostDays,
		},
		&cli.StringFlag{
			Name:        "probability",
			Usage:       "Probability label (e.g. Alta)",
			Category:    "Incident",
			Required:    true,
			Destination: &input.Probability,
		},
		&cli.StringFlag{
			Name:        "severity",
			Usage:       "Severity label (e.g. Grave)",
			Category:    "Incident",
			Required:    true,
			Destination: &input.Severity,
		},
		&cli.StringFlag{
			Name:        "description",
			Usage:       "Free text description",
			Category:    "Incident",
			Destination: &input.Description,
		},
		&cli.BoolFlag{
			Name:        "no-sync",
			Usage:       "Only write the local ledger, do not push to the mirror",
			Category:    "Sync",
			Destination: &noSync,
		},
	}
	flags = append(flags, sess.Flags()...)

	return &cli.Command{
		Name:    "record",
		Aliases: []string{"r"},
		Usage:   "Record one incident and sync the ledger",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := sess.open(ctx)
			if err != nil {
				return err
			}
			defer closer()

			input.LostDays = lostDays
			record, err := uc.RecordIncident(ctx, input)
			if err != nil {
				var verr *model.ValidationError
				if errors.As(err, &verr) {
					for _, fe := range verr.Fields {
						logging.Default().Error("invalid incident field", "field", fe.Field, "message", fe.Message)
					}
				}
				return goerr.Wrap(err, "incident rejected")
			}

			w := c.Root().Writer
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", record.Key, record.Type, record.Score, record.Level)

			if noSync {
				if err := uc.Save(ctx); err != nil {
					return goerr.Wrap(err, "failed to write local ledger")
				}
				logging.Default().Info("Ledger written locally", "incidents", uc.Ledger().Len())
				return nil
			}
			return reportSync(ctx, uc)
		},
	}
}
