package interfaces

import (
	"context"

	"github.com/secmon-lab/anzen/pkg/domain/model"
)

// Mirror is a remote copy of the ledger document addressed by path
type Mirror interface {
	// Fetch returns the current content and version token of path, or nil
	// when the object does not exist
	Fetch(ctx context.Context, path string) (*model.RemoteObject, error)

	// Put replaces the content of path only if its current version still
	// equals expected. A zero expected version means create-only. A failed
	// precondition returns an error wrapping model.ErrSyncConflict; the
	// returned version identifies the new content.
	Put(ctx context.Context, path string, content []byte, expected model.Version) (model.Version, error)
}

// RevisionLister is implemented by mirrors that keep a history of accepted writes
type RevisionLister interface {
	// ListRevisions returns revisions of path, newest first
	ListRevisions(ctx context.Context, path string, limit int) ([]*model.Revision, error)
}
