package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/kpi"
	"github.com/secmon-lab/anzen/pkg/service/summary"
	"github.com/urfave/cli/v3"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	levelColors  = map[types.RiskLevel]*color.Color{
		types.RiskLevelHigh:   color.New(color.FgRed, color.Bold),
		types.RiskLevelMedium: color.New(color.FgYellow),
		types.RiskLevelLow:    color.New(color.FgGreen),
	}
)

func cmdReport() *cli.Command {
	var format string
	var output string
	var withSummary bool
	var sess session

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format [text|json]",
			Value:       "text",
			Destination: &format,
		},
		&cli.BoolFlag{
			Name:        "summary",
			Usage:       "Append an LLM generated briefing (requires --gemini-project)",
			Destination: &withSummary,
		},
		outputFlag(&output),
	}
	flags = append(flags, sess.Flags()...)

	return &cli.Command{
		Name:  "report",
		Usage: "Print safety indicators of the local ledger",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if format != "text" && format != "json" {
				return goerr.New("invalid report format", goerr.V("format", format))
			}

			uc, closer, err := sess.open(ctx)
			if err != nil {
				return err
			}
			defer closer()

			report := uc.Report(ctx)

			var brief *summary.Summary
			if withSummary {
				brief, err = uc.Summarize(ctx)
				if err != nil {
					return err
				}
			}

			w, closeOutput, err := openOutput(c, output)
			if err != nil {
				return err
			}

			if format == "json" {
				err = writeReportJSON(w, report, brief)
			} else {
				err = writeReportText(w, report, brief)
			}
			if closeErr := closeOutput(); err == nil && closeErr != nil {
				err = goerr.Wrap(closeErr, "failed to close output")
			}
			return err
		},
	}
}

func writeReportJSON(w io.Writer, report *kpi.Report, brief *summary.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		*kpi.Report
		Summary *summary.Summary `json:"summary,omitempty"`
	}{report, brief}); err != nil {
		return goerr.Wrap(err, "failed to encode report")
	}
	return nil
}

func writeReportText(w io.Writer, r *kpi.Report, brief *summary.Summary) error {
	var werr error
	printf := func(c *color.Color, format string, args ...any) {
		if werr != nil {
			return
		}
		if c == nil {
			_, werr = fmt.Fprintf(w, format, args...)
			return
		}
		_, werr = c.Fprintf(w, format, args...)
	}

	printf(headingColor, "Safety report (vocabulary %s, %s)\n", r.VocabularyVersion, r.TakenAt.Format("2006-01-02 15:04"))

	printf(headingColor, "\nIncidents\n")
	printf(nil, "  %-12s %6s %8s\n", "Type", "Count", "Rate")
	for _, t := range types.AllIncidentTypes() {
		printf(nil, "  %-12s %6d %7.2f%%\n", t, r.TotalsByType[t], r.Rates[t])
	}
	printf(nil, "  %-12s %6d\n", "Total", r.TotalIncidents)
	printf(nil, "  Lost days: %d\n", r.LostDays)

	printf(headingColor, "\nRisk distribution\n")
	for _, level := range types.AllRiskLevels() {
		printf(levelColors[level], "  %-8s %d\n", level, r.RiskDistribution[level])
	}

	if len(r.Areas) > 0 {
		printf(headingColor, "\nAreas\n")
		for _, a := range r.Areas {
			printf(nil, "  %-20s %4d incidents %4d lost days\n", a.Area, a.Count, a.LostDays)
		}
	}

	if len(r.HighRisk) > 0 {
		printf(headingColor, "\nHigh risk incidents\n")
		for _, inc := range r.HighRisk {
			printf(levelColors[inc.Level], "  %s %-10s score %2d %-6s %s %s\n",
				inc.Date.Format("2006-01-02"), inc.Type, inc.Score, inc.Level, inc.Area, inc.Hazard)
		}
	}

	if r.Training.Months > 0 {
		printf(headingColor, "\nTraining\n")
		printf(nil, "  %d sessions, %d attendees over %d months\n",
			r.Training.Sessions, r.Training.Attendees, r.Training.Months)
	}

	if brief != nil {
		printf(headingColor, "\nSummary\n")
		printf(nil, "  %s\n", brief.ExecutiveSummary)
		for _, section := range []struct {
			title string
			items []string
		}{
			{"Top risks", brief.TopRisks},
			{"Recommended actions", brief.RecommendedActions},
			{"Checklist", brief.Checklist},
		} {
			if len(section.items) == 0 {
				continue
			}
			printf(headingColor, "\n%s\n", section.title)
			for _, item := range section.items {
				printf(nil, "  - %s\n", item)
			}
		}
	}

	if werr != nil {
		return goerr.Wrap(werr, "failed to write report")
	}
	return nil
}
