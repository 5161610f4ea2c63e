package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/service/notion"
	"github.com/urfave/cli/v3"
)

// Notion holds the hazard database source
type Notion struct {
	token      string
	databaseID string
}

func (x *Notion) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "notion-api-token",
			Usage:       "Notion API token",
			Category:    "Notion",
			Sources:     cli.EnvVars("ANZEN_NOTION_API_TOKEN"),
			Destination: &x.token,
		},
		&cli.StringFlag{
			Name:        "notion-hazard-db",
			Usage:       "Notion database ID or URL holding the hazard matrix",
			Category:    "Notion",
			Sources:     cli.EnvVars("ANZEN_NOTION_HAZARD_DB"),
			Destination: &x.databaseID,
		},
	}
}

func (x Notion) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("token.len", len(x.token)),
		slog.String("database_id", x.databaseID),
	)
}

// IsConfigured reports whether a hazard database is configured
func (x *Notion) IsConfigured() bool {
	return x.databaseID != ""
}

// Configure returns the Notion service and the normalised database ID.
// Returns nil when no database is configured.
func (x *Notion) Configure() (notion.Service, string, error) {
	if !x.IsConfigured() {
		return nil, "", nil
	}
	if x.token == "" {
		return nil, "", goerr.Wrap(ErrMissingArgument, "notion-api-token is required to read the hazard database",
			goerr.V(OptionKey, "notion-api-token"))
	}

	dbID, err := model.ParseNotionID(x.databaseID)
	if err != nil {
		return nil, "", goerr.Wrap(err, "invalid Notion database ID", goerr.V("database_id", x.databaseID))
	}

	svc, err := notion.New(x.token)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to initialize notion service")
	}
	return svc, dbID, nil
}
