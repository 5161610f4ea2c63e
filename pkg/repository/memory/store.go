package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/domain/model"
)

// LocalStore keeps the serialised ledger in process memory
type LocalStore struct {
	mu   sync.RWMutex
	data []byte
	err  error
}

var _ interfaces.LocalStore = &LocalStore{}

func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

// FailWith makes subsequent saves fail with err; nil restores normal behaviour
func (s *LocalStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *LocalStore) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return goerr.Wrap(s.err, "failed to save ledger")
	}
	s.data = append([]byte{}, data...)
	return nil
}

func (s *LocalStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "ledger has not been saved")
	}
	return append([]byte{}, s.data...), nil
}
