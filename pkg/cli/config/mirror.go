package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/repository/firestore"
	"github.com/secmon-lab/anzen/pkg/repository/gcs"
	"github.com/secmon-lab/anzen/pkg/repository/memory"
	"github.com/secmon-lab/anzen/pkg/usecase"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Mirror selects the remote mirror backend
type Mirror struct {
	backend string
	path    string

	gcsBucket string
	gcsPrefix string

	firestoreProjectID  string
	firestoreDatabaseID string
	firestorePrefix     string

	GitHub GitHub
}

func (x *Mirror) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "mirror",
			Usage:       "Remote mirror backend (none, memory, github, gcs or firestore)",
			Category:    "Mirror",
			Value:       "none",
			Sources:     cli.EnvVars("ANZEN_MIRROR"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "mirror-path",
			Usage:       "Path of the ledger document on the mirror",
			Category:    "Mirror",
			Value:       usecase.DefaultMirrorPath,
			Sources:     cli.EnvVars("ANZEN_MIRROR_PATH"),
			Destination: &x.path,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Cloud Storage bucket (required for gcs mirror)",
			Category:    "Mirror",
			Sources:     cli.EnvVars("ANZEN_GCS_BUCKET"),
			Destination: &x.gcsBucket,
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix in the bucket",
			Category:    "Mirror",
			Sources:     cli.EnvVars("ANZEN_GCS_PREFIX"),
			Destination: &x.gcsPrefix,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required for firestore mirror)",
			Category:    "Mirror",
			Sources:     cli.EnvVars("ANZEN_FIRESTORE_PROJECT_ID"),
			Destination: &x.firestoreProjectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Mirror",
			Sources:     cli.EnvVars("ANZEN_FIRESTORE_DATABASE_ID"),
			Destination: &x.firestoreDatabaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix of Firestore collection names",
			Category:    "Mirror",
			Sources:     cli.EnvVars("ANZEN_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &x.firestorePrefix,
		},
	}
	return append(flags, x.GitHub.Flags()...)
}

func (x Mirror) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("backend", x.backend),
		slog.String("path", x.path),
	}
	switch x.backend {
	case "gcs":
		attrs = append(attrs, slog.String("bucket", x.gcsBucket), slog.String("prefix", x.gcsPrefix))
	case "firestore":
		attrs = append(attrs,
			slog.String("project_id", x.firestoreProjectID),
			slog.String("database_id", x.firestoreDatabaseID))
	case "github":
		attrs = append(attrs, x.GitHub.LogAttrs()...)
	}
	return slog.GroupValue(attrs...)
}

// Path returns the mirror path of the ledger document
func (x *Mirror) Path() string {
	return x.path
}

// FirestoreProjectID returns the Firestore project ID
func (x *Mirror) FirestoreProjectID() string {
	return x.firestoreProjectID
}

// FirestoreDatabaseID returns the Firestore database ID
func (x *Mirror) FirestoreDatabaseID() string {
	return x.firestoreDatabaseID
}

// FirestorePrefix returns the collection name prefix
func (x *Mirror) FirestorePrefix() string {
	return x.firestorePrefix
}

// Configure creates the configured mirror. The returned mirror is nil for
// "none"; the closer is always safe to call.
func (x *Mirror) Configure(ctx context.Context) (interfaces.Mirror, func(), error) {
	noop := func() {}
	logger := logging.Default()

	switch x.backend {
	case "none", "":
		logger.Warn("No remote mirror configured, sync keeps the ledger locally only")
		return nil, noop, nil

	case "memory":
		logger.Info("Using in-memory mirror (development mode)")
		return memory.NewMirror(), noop, nil

	case "github":
		m, err := x.GitHub.Configure(ctx)
		if err != nil {
			return nil, noop, err
		}
		if m == nil {
			return nil, noop, nil
		}
		logger.Info("Using GitHub mirror", "repository", x.GitHub.repository, "branch", x.GitHub.branch)
		return m, noop, nil

	case "gcs":
		if x.gcsBucket == "" {
			return nil, noop, goerr.Wrap(ErrMissingArgument, "gcs-bucket is required when using gcs mirror", goerr.V(OptionKey, "gcs-bucket"))
		}
		m, err := gcs.New(ctx, x.gcsBucket, nil, gcs.WithObjectPrefix(x.gcsPrefix))
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to initialize gcs mirror")
		}
		logger.Info("Using Cloud Storage mirror", "bucket", x.gcsBucket, "prefix", x.gcsPrefix)
		return m, closeWith(ctx, m.Close), nil

	case "firestore":
		if x.firestoreProjectID == "" {
			return nil, noop, goerr.Wrap(ErrMissingArgument, "firestore-project-id is required when using firestore mirror", goerr.V(OptionKey, "firestore-project-id"))
		}
		m, err := firestore.New(ctx, x.firestoreProjectID, x.firestoreDatabaseID, firestore.WithCollectionPrefix(x.firestorePrefix))
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to initialize firestore mirror")
		}
		logger.Info("Using Firestore mirror",
			"project_id", x.firestoreProjectID,
			"database_id", x.firestoreDatabaseID,
		)
		return m, closeWith(ctx, m.Close), nil

	default:
		return nil, noop, goerr.Wrap(ErrInvalidBackend, "invalid mirror backend", goerr.V(BackendKey, x.backend))
	}
}

func closeWith(ctx context.Context, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logging.From(ctx).Error("failed to close mirror", "error", err.Error())
		}
	}
}
