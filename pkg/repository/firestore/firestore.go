package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	mirrorCollection   = "mirror_objects"
	revisionCollection = "mirror_revisions"
)

// Mirror stores ledger documents in Firestore. Every accepted write also
// records a revision document so a pushed snapshot can be traced back to the
// version it replaced.
type Mirror struct {
	client           *firestore.Client
	collectionPrefix string
}

var (
	_ interfaces.Mirror         = &Mirror{}
	_ interfaces.RevisionLister = &Mirror{}
)

type Option func(*Mirror)

func WithCollectionPrefix(prefix string) Option {
	return func(m *Mirror) {
		m.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Mirror, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	m := &Mirror{client: client}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Mirror) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// mirrorDoc is the Firestore persistence model of a mirrored document
type mirrorDoc struct {
	Path      string    `firestore:"path"`
	Content   []byte    `firestore:"content"`
	Version   string    `firestore:"version"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// revisionDoc is the Firestore persistence model of an accepted write
type revisionDoc struct {
	Path     string    `firestore:"path"`
	Version  string    `firestore:"version"`
	Previous string    `firestore:"previous"`
	PushedAt time.Time `firestore:"pushed_at"`
}

// RevisionCollection returns the collection name holding revisions for prefix
func RevisionCollection(prefix string) string {
	if prefix != "" {
		return prefix + "_" + revisionCollection
	}
	return revisionCollection
}

func (m *Mirror) collection() *firestore.CollectionRef {
	if m.collectionPrefix != "" {
		return m.client.Collection(m.collectionPrefix + "_" + mirrorCollection)
	}
	return m.client.Collection(mirrorCollection)
}

func (m *Mirror) revisions() *firestore.CollectionRef {
	return m.client.Collection(RevisionCollection(m.collectionPrefix))
}

// Paths contain slashes, which Firestore reserves for nesting
func docID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

func contentVersion(content []byte) model.Version {
	sum := sha256.Sum256(content)
	return model.Version(hex.EncodeToString(sum[:]))
}

func (m *Mirror) Fetch(ctx context.Context, path string) (*model.RemoteObject, error) {
	doc, err := m.collection().Doc(docID(path)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get mirror document", goerr.V(model.PathKey, path))
	}

	var d mirrorDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal mirror document", goerr.V(model.PathKey, path))
	}

	return &model.RemoteObject{
		Path:    path,
		Content: d.Content,
		Version: model.Version(d.Version),
	}, nil
}

func (m *Mirror) Put(ctx context.Context, path string, content []byte, expected model.Version) (model.Version, error) {
	ref := m.collection().Doc(docID(path))
	version := contentVersion(content)
	now := time.Now().UTC()

	err := m.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current model.Version
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var d mirrorDoc
			if err := snap.DataTo(&d); err != nil {
				return goerr.Wrap(err, "failed to unmarshal mirror document", goerr.V(model.PathKey, path))
			}
			current = model.Version(d.Version)
		case status.Code(err) == codes.NotFound:
		default:
			return goerr.Wrap(err, "failed to read mirror document in transaction", goerr.V(model.PathKey, path))
		}

		if current != expected {
			return goerr.Wrap(model.ErrSyncConflict, "mirror document changed",
				goerr.V(model.PathKey, path),
				goerr.V(model.ExpectedKey, expected),
				goerr.V(model.ActualKey, current))
		}

		if err := tx.Set(ref, &mirrorDoc{
			Path:      path,
			Content:   content,
			Version:   version.String(),
			UpdatedAt: now,
		}); err != nil {
			return goerr.Wrap(err, "failed to set mirror document", goerr.V(model.PathKey, path))
		}

		return tx.Create(m.revisions().NewDoc(), &revisionDoc{
			Path:     path,
			Version:  version.String(),
			Previous: current.String(),
			PushedAt: now,
		})
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to put mirror document", goerr.V(model.PathKey, path))
	}

	return version, nil
}

func (m *Mirror) ListRevisions(ctx context.Context, path string, limit int) ([]*model.Revision, error) {
	q := m.revisions().
		Where("path", "==", path).
		OrderBy("pushed_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var revs []*model.Revision
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate mirror revisions", goerr.V(model.PathKey, path))
		}

		var d revisionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal mirror revision", goerr.V("docID", doc.Ref.ID))
		}
		revs = append(revs, &model.Revision{
			Path:     d.Path,
			Version:  model.Version(d.Version),
			Previous: model.Version(d.Previous),
			PushedAt: d.PushedAt,
		})
	}

	return revs, nil
}
