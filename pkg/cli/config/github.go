package config

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/service/github"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// GitHub holds configuration for the GitHub mirror
type GitHub struct {
	repository     string
	branch         string
	endpoint       string
	token          string
	appID          int
	installationID int
	privateKey     string
}

func (g *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-repository",
			Usage:       "Repository holding the mirrored ledger (owner/name)",
			Category:    "GitHub",
			Sources:     cli.EnvVars("ANZEN_GITHUB_REPOSITORY"),
			Destination: &g.repository,
		},
		&cli.StringFlag{
			Name:        "github-branch",
			Usage:       "Branch of the mirrored ledger",
			Category:    "GitHub",
			Value:       "main",
			Sources:     cli.EnvVars("ANZEN_GITHUB_BRANCH"),
			Destination: &g.branch,
		},
		&cli.StringFlag{
			Name:        "github-endpoint",
			Usage:       "GraphQL endpoint for GitHub Enterprise Server",
			Category:    "GitHub",
			Sources:     cli.EnvVars("ANZEN_GITHUB_ENDPOINT"),
			Destination: &g.endpoint,
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub token (used when GitHub App is not configured)",
			Category:    "GitHub",
			Sources:     cli.EnvVars("ANZEN_GITHUB_TOKEN"),
			Destination: &g.token,
		},
		&cli.IntFlag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Category:    "GitHub",
			Sources:     cli.EnvVars("ANZEN_GITHUB_APP_ID"),
			Destination: &g.appID,
		},
		&cli.IntFlag{
			Name:        "github-app-installation-id",
			Usage:       "GitHub App Installation ID",
			Category:    "GitHub",
			Sources:     cli.EnvVars("ANZEN_GITHUB_APP_INSTALLATION_ID"),
			Destination: &g.installationID,
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Usage:       "GitHub App Private Key (PEM string or file path)",
			Category:    "GitHub",
			Sources:     cli.EnvVars("ANZEN_GITHUB_APP_PRIVATE_KEY"),
			Destination: &g.privateKey,
		},
	}
}

// LogAttrs returns log attributes for the GitHub configuration (secrets hidden)
func (g *GitHub) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("repository", g.repository),
		slog.String("branch", g.branch),
		slog.Int("app_id", g.appID),
		slog.Int("installation_id", g.installationID),
		slog.Bool("token", g.token != ""),
	}
}

// IsAppConfigured returns true if all GitHub App flags are set
func (g *GitHub) IsAppConfigured() bool {
	return g.appID != 0 && g.installationID != 0 && g.privateKey != ""
}

// ParseRepository splits "owner/name" into a repository on branch
func ParseRepository(s, branch string) (github.Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return github.Repository{}, goerr.Wrap(ErrInvalidConfig, "repository must be owner/name", goerr.V("repository", s))
	}
	return github.Repository{Owner: owner, Name: name, Branch: branch}, nil
}

// HasCredentials reports whether a GitHub App or a token is configured
func (g *GitHub) HasCredentials() bool {
	return g.IsAppConfigured() || g.token != ""
}

// Configure creates the GitHub mirror. A GitHub App takes precedence over a
// token. Without any credentials it returns nil and the ledger is kept
// locally only.
func (g *GitHub) Configure(ctx context.Context) (*github.Mirror, error) {
	repo, err := ParseRepository(g.repository, g.branch)
	if err != nil {
		return nil, err
	}

	if !g.HasCredentials() {
		logging.From(ctx).Warn("GitHub credentials are not configured, sync keeps the ledger locally only",
			"repository", g.repository,
			"required", "github-token or github-app-*",
		)
		return nil, nil
	}

	var httpClient *http.Client
	switch {
	case g.IsAppConfigured():
		httpClient, err = github.NewAppHTTPClient(int64(g.appID), int64(g.installationID), g.privateKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create GitHub App client")
		}
	default:
		httpClient = github.NewTokenHTTPClient(ctx, g.token)
	}

	var opts []github.Option
	if g.endpoint != "" {
		opts = append(opts, github.WithEndpoint(g.endpoint))
	}

	mirror, err := github.New(httpClient, repo, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub mirror")
	}
	return mirror, nil
}
