package interfaces

import "context"

// LocalStore is the stable local storage of the serialised ledger
type LocalStore interface {
	// Save replaces the stored document atomically
	Save(ctx context.Context, data []byte) error

	// Load returns the stored document, or an error wrapping model.ErrNotFound
	// when nothing was saved yet
	Load(ctx context.Context) ([]byte, error)
}
