package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/repository/file"
	"github.com/secmon-lab/anzen/pkg/repository/memory"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Store selects local stable storage for the ledger
type Store struct {
	backend string
	path    string
}

func (x *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "local-backend",
			Usage:       "Local storage backend (file or memory)",
			Category:    "Storage",
			Value:       "file",
			Sources:     cli.EnvVars("ANZEN_LOCAL_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "ledger-file",
			Usage:       "Path of the local ledger document",
			Category:    "Storage",
			Value:       "anzen-ledger.json",
			Sources:     cli.EnvVars("ANZEN_LEDGER_FILE"),
			Destination: &x.path,
		},
	}
}

func (x Store) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("path", x.path),
	)
}

// Configure returns the ledger store and the store that remembers the last
// agreed mirror version
func (x *Store) Configure() (ledger interfaces.LocalStore, state interfaces.LocalStore, err error) {
	switch x.backend {
	case "file", "":
		if x.path == "" {
			return nil, nil, goerr.Wrap(ErrMissingArgument, "ledger file path is required", goerr.V(OptionKey, "ledger-file"))
		}
		logging.Default().Debug("Using file ledger store", "path", x.path)
		return file.New(x.path), file.New(x.path + ".sync"), nil

	case "memory":
		logging.Default().Info("Using in-memory ledger store (development mode)")
		return memory.NewLocalStore(), memory.NewLocalStore(), nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidBackend, "invalid local backend", goerr.V(BackendKey, x.backend))
	}
}
