package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/secmon-lab/anzen/pkg/service/summary"
	"github.com/urfave/cli/v3"
)

// Gemini holds configuration for the Gemini LLM client
type Gemini struct {
	projectID string
	location  string
	language  string
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "Summary",
			Sources:     cli.EnvVars("ANZEN_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Category:    "Summary",
			Value:       "us-central1",
			Sources:     cli.EnvVars("ANZEN_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.StringFlag{
			Name:        "summary-language",
			Usage:       "Language of generated summaries (e.g. Spanish)",
			Category:    "Summary",
			Sources:     cli.EnvVars("ANZEN_SUMMARY_LANGUAGE"),
			Destination: &g.language,
		},
	}
}

// LogAttrs returns log attributes for the Gemini configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
		slog.String("language", g.language),
	}
}

// Language returns the configured summary language
func (g *Gemini) Language() string {
	return g.language
}

// Configure creates the summary service backed by Gemini.
// Returns nil if projectID is not configured (summaries will be disabled).
func (g *Gemini) Configure(ctx context.Context) (summary.Service, error) {
	if g.projectID == "" {
		return nil, nil
	}

	client, err := gemini.New(ctx, g.projectID, g.location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	svc, err := summary.New(client)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create summary service")
	}
	return svc, nil
}
