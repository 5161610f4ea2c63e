package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/utils/safe"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Mirror stores ledger documents as Cloud Storage objects. The version token
// is the object generation, and writes are guarded by generation
// preconditions.
type Mirror struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.Mirror = &Mirror{}

type Option func(*Mirror)

// WithObjectPrefix places every object under prefix
func WithObjectPrefix(prefix string) Option {
	return func(m *Mirror) {
		m.prefix = prefix
	}
}

func New(ctx context.Context, bucket string, clientOpts []option.ClientOption, opts ...Option) (*Mirror, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	m := &Mirror{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Mirror) Close() error {
	return m.client.Close()
}

func (m *Mirror) object(p string) *storage.ObjectHandle {
	return m.client.Bucket(m.bucket).Object(path.Join(m.prefix, p))
}

func (m *Mirror) Fetch(ctx context.Context, p string) (*model.RemoteObject, error) {
	r, err := m.object(p).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V(model.PathKey, p), goerr.V("bucket", m.bucket))
	}
	defer safe.Close(ctx, r, p)

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V(model.PathKey, p), goerr.V("bucket", m.bucket))
	}

	return &model.RemoteObject{
		Path:    p,
		Content: content,
		Version: generationVersion(r.Attrs.Generation),
	}, nil
}

func (m *Mirror) Put(ctx context.Context, p string, content []byte, expected model.Version) (model.Version, error) {
	cond := storage.Conditions{DoesNotExist: true}
	if !expected.IsZero() {
		gen, err := strconv.ParseInt(expected.String(), 10, 64)
		if err != nil {
			return "", goerr.Wrap(model.ErrSyncConflict, "expected version is not a generation",
				goerr.V(model.PathKey, p),
				goerr.V(model.ExpectedKey, expected))
		}
		cond = storage.Conditions{GenerationMatch: gen}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := m.object(p).If(cond).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(content); err != nil {
		cancel()
		_ = w.Close()
		return "", m.writeError(err, p, expected)
	}
	if err := w.Close(); err != nil {
		return "", m.writeError(err, p, expected)
	}

	return generationVersion(w.Attrs().Generation), nil
}

func (m *Mirror) writeError(err error, p string, expected model.Version) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return goerr.Wrap(model.ErrSyncConflict, "object generation changed",
			goerr.V(model.PathKey, p),
			goerr.V(model.ExpectedKey, expected),
			goerr.V("cause", err.Error()))
	}
	return goerr.Wrap(err, "failed to write object", goerr.V(model.PathKey, p), goerr.V("bucket", m.bucket))
}

func generationVersion(gen int64) model.Version {
	return model.Version(strconv.FormatInt(gen, 10))
}
