package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/domain/model"
)

type mirrorObject struct {
	content []byte
	version model.Version
}

// Mirror is an in-process remote mirror with compare-and-set semantics.
// Version tokens are content fingerprints.
type Mirror struct {
	mu        sync.RWMutex
	objects   map[string]*mirrorObject
	revisions map[string][]*model.Revision
	fetchErr  error
	putErr    error
}

var (
	_ interfaces.Mirror         = &Mirror{}
	_ interfaces.RevisionLister = &Mirror{}
)

func NewMirror() *Mirror {
	return &Mirror{
		objects:   make(map[string]*mirrorObject),
		revisions: make(map[string][]*model.Revision),
	}
}

// Fingerprint returns the version token of content
func Fingerprint(content []byte) model.Version {
	sum := sha256.Sum256(content)
	return model.Version(hex.EncodeToString(sum[:]))
}

// FailFetch makes Fetch return err until cleared with nil
func (m *Mirror) FailFetch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

// FailPut makes Put return err until cleared with nil
func (m *Mirror) FailPut(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
}

func (m *Mirror) Fetch(ctx context.Context, path string) (*model.RemoteObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.fetchErr != nil {
		return nil, goerr.Wrap(m.fetchErr, "failed to fetch mirror object", goerr.V(model.PathKey, path))
	}

	obj, ok := m.objects[path]
	if !ok {
		return nil, nil
	}
	return &model.RemoteObject{
		Path:    path,
		Content: append([]byte{}, obj.content...),
		Version: obj.version,
	}, nil
}

func (m *Mirror) Put(ctx context.Context, path string, content []byte, expected model.Version) (model.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putErr != nil {
		return "", goerr.Wrap(m.putErr, "failed to put mirror object", goerr.V(model.PathKey, path))
	}

	var current model.Version
	if obj, ok := m.objects[path]; ok {
		current = obj.version
	}
	if current != expected {
		return "", goerr.Wrap(model.ErrSyncConflict, "mirror object changed",
			goerr.V(model.PathKey, path),
			goerr.V(model.ExpectedKey, expected),
			goerr.V(model.ActualKey, current))
	}

	version := Fingerprint(content)
	m.objects[path] = &mirrorObject{
		content: append([]byte{}, content...),
		version: version,
	}
	m.revisions[path] = append(m.revisions[path], &model.Revision{
		Path:     path,
		Version:  version,
		Previous: current,
		PushedAt: time.Now().UTC(),
	})

	return version, nil
}

func (m *Mirror) ListRevisions(ctx context.Context, path string, limit int) ([]*model.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	revs := m.revisions[path]
	result := make([]*model.Revision, 0, len(revs))
	for i := len(revs) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		r := *revs[i]
		result = append(result, &r)
	}
	return result, nil
}
