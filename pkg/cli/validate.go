package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/cli/config"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/secmon-lab/anzen/pkg/workbook"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var vocabCfg config.Vocabulary
	var workbookPath string

	flags := vocabCfg.Flags()
	flags = append(flags, &cli.StringFlag{
		Name:        "workbook",
		Aliases:     []string{"w"},
		Usage:       "Workbook document to check against the vocabulary",
		Destination: &workbookPath,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the tier vocabulary and optionally a workbook document",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			classifier, err := vocabCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "vocabulary validation failed")
			}

			thresholds := classifier.Thresholds()
			logger.Info("Vocabulary validation passed",
				"path", vocabCfg.Path(),
				"version", classifier.Version(),
				"high", thresholds.High,
				"medium", thresholds.Medium,
			)
			for _, axis := range []types.Axis{types.AxisProbability, types.AxisSeverity} {
				for _, tier := range types.AllTiers() {
					weight, err := classifier.Weight(axis, tier)
					if err != nil {
						return err
					}
					logger.Debug("Tier", "axis", axis, "tier", tier, "name", classifier.Name(axis, tier), "weight", weight)
				}
			}

			if workbookPath == "" {
				return nil
			}

			// #nosec G304 - path is expected to be provided by CLI argument
			data, err := os.ReadFile(workbookPath)
			if err != nil {
				return goerr.Wrap(err, "failed to read workbook", goerr.V("path", workbookPath))
			}

			snapshot, err := workbook.New(classifier).Decode(data)
			if err != nil {
				var verr *model.ValidationError
				if errors.As(err, &verr) {
					for _, fe := range verr.Fields {
						logger.Warn("Workbook issue found", "field", fe.Field, "value", fe.Value, "message", fe.Message)
					}
					return fmt.Errorf("workbook check found %d issue(s)", len(verr.Fields))
				}
				return goerr.Wrap(err, "workbook validation failed")
			}

			logger.Info("Workbook validation passed",
				"incidents", len(snapshot.Incidents),
				"hazards", len(snapshot.Hazards),
				"training", len(snapshot.Training),
			)
			return nil
		},
	}
}
