package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/utils/safe"
)

// Store keeps the serialised ledger in a single file. Writes go to a
// temporary file in the same directory which is then renamed over the
// target, so readers never observe a partial document.
type Store struct {
	path string
}

var _ interfaces.LocalStore = &Store{}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the target file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Save(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return goerr.Wrap(err, "failed to create ledger directory", goerr.V(model.PathKey, dir))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary file", goerr.V(model.PathKey, s.path))
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			safe.Remove(ctx, tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		safe.Close(ctx, tmp, tmpName)
		return goerr.Wrap(err, "failed to write ledger", goerr.V(model.PathKey, tmpName))
	}
	if err := tmp.Sync(); err != nil {
		safe.Close(ctx, tmp, tmpName)
		return goerr.Wrap(err, "failed to sync ledger", goerr.V(model.PathKey, tmpName))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close ledger", goerr.V(model.PathKey, tmpName))
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return goerr.Wrap(err, "failed to set ledger permissions", goerr.V(model.PathKey, tmpName))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return goerr.Wrap(err, "failed to replace ledger", goerr.V(model.PathKey, s.path))
	}
	committed = true

	return nil
}

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "ledger file does not exist", goerr.V(model.PathKey, s.path))
		}
		return nil, goerr.Wrap(err, "failed to read ledger", goerr.V(model.PathKey, s.path))
	}
	return data, nil
}
