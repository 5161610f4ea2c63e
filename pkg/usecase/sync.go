package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/secmon-lab/anzen/pkg/workbook"
)

const (
	// DefaultMirrorPath is where the ledger document lives on the mirror
	DefaultMirrorPath = "anzen/ledger.json"
	// DefaultSyncTimeout bounds one remote round-trip
	DefaultSyncTimeout = 10 * time.Second
)

// SyncManager persists ledger snapshots locally and mirrors them remotely
// under optimistic concurrency control. It remembers the version of the
// mirror it last agreed with (the base); a push succeeds only while the
// mirror still holds that version.
type SyncManager struct {
	codec   *workbook.Codec
	local   interfaces.LocalStore
	state   interfaces.LocalStore
	mirror  interfaces.Mirror
	path    string
	timeout time.Duration
	retry   RetryPolicy
	sleep   sleepFunc

	mu   sync.Mutex
	base model.Version

	conflicted atomic.Bool
}

// ApplyFunc adopts a snapshot pulled from the mirror. It returns the
// snapshot the session holds afterwards when that differs from the pulled
// one, or nil when the pulled snapshot was taken over as is.
type ApplyFunc func(remote *model.LedgerSnapshot) (*model.LedgerSnapshot, error)

// SyncOption configures a SyncManager
type SyncOption func(*SyncManager)

// WithMirror enables remote mirroring. Without it every push ends Skipped.
func WithMirror(mirror interfaces.Mirror) SyncOption {
	return func(m *SyncManager) {
		m.mirror = mirror
	}
}

// WithMirrorPath overrides DefaultMirrorPath
func WithMirrorPath(path string) SyncOption {
	return func(m *SyncManager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithStateStore keeps the base version across processes
func WithStateStore(store interfaces.LocalStore) SyncOption {
	return func(m *SyncManager) {
		m.state = store
	}
}

// WithSyncTimeout bounds each remote round-trip
func WithSyncTimeout(d time.Duration) SyncOption {
	return func(m *SyncManager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy
func WithRetryPolicy(p RetryPolicy) SyncOption {
	return func(m *SyncManager) {
		m.retry = p
	}
}

// NewSyncManager creates a SyncManager writing locally to local
func NewSyncManager(codec *workbook.Codec, local interfaces.LocalStore, opts ...SyncOption) *SyncManager {
	m := &SyncManager{
		codec:   codec,
		local:   local,
		path:    DefaultMirrorPath,
		timeout: DefaultSyncTimeout,
		retry:   DefaultRetryPolicy(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HasMirror reports whether a remote mirror is configured
func (m *SyncManager) HasMirror() bool {
	return m.mirror != nil
}

// Path returns the mirror path of the ledger document
func (m *SyncManager) Path() string {
	return m.path
}

// Conflicted reports whether the latest push was rejected by the mirror and
// no later push or pull has resolved it
func (m *SyncManager) Conflicted() bool {
	return m.conflicted.Load()
}

// Base returns the mirror version this manager last agreed with
func (m *SyncManager) Base() model.Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.base
}

type syncState struct {
	Path    string        `json:"path"`
	Version model.Version `json:"version"`
}

// LoadLocal reads the locally persisted ledger and the remembered base
// version. A ledger that was never saved yields nil without error.
func (m *SyncManager) LoadLocal(ctx context.Context) (*model.LedgerSnapshot, error) {
	if err := m.loadState(ctx); err != nil {
		return nil, err
	}

	data, err := m.local.Load(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(model.ErrPersistence, "failed to read local ledger", goerr.V("cause", err))
	}

	snapshot, err := m.codec.Decode(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode local ledger")
	}
	return snapshot, nil
}

func (m *SyncManager) loadState(ctx context.Context) error {
	if m.state == nil {
		return nil
	}

	data, err := m.state.Load(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to read sync state", goerr.V("cause", err))
	}

	var st syncState
	if err := json.Unmarshal(data, &st); err != nil {
		return goerr.Wrap(err, "failed to parse sync state")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st.Path == m.path {
		m.base = st.Version
	}
	return nil
}

// saveState must be called with m.mu held
func (m *SyncManager) saveState(ctx context.Context) {
	if m.state == nil {
		return
	}
	data, err := json.Marshal(syncState{Path: m.path, Version: m.base})
	if err != nil {
		logging.From(ctx).Warn("failed to encode sync state", "error", err)
		return
	}
	if err := m.state.Save(ctx, data); err != nil {
		logging.From(ctx).Warn("failed to save sync state", "error", err)
	}
}

func advance(r *model.SyncResult, state types.SyncState) {
	r.State = state
	r.Trace = append(r.Trace, state)
}

// SaveLocal writes the snapshot to local storage without contacting the mirror
func (m *SyncManager) SaveLocal(ctx context.Context, snapshot *model.LedgerSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.writeLocal(ctx, snapshot)
	return err
}

func (m *SyncManager) writeLocal(ctx context.Context, snapshot *model.LedgerSnapshot) ([]byte, error) {
	data, err := m.codec.Encode(snapshot)
	if err != nil {
		return nil, goerr.Wrap(model.ErrPersistence, "failed to encode ledger", goerr.V("cause", err))
	}
	if err := m.local.Save(ctx, data); err != nil {
		return nil, goerr.Wrap(model.ErrPersistence, "failed to write ledger locally", goerr.V("cause", err))
	}
	return data, nil
}

// Push serializes the snapshot, writes it locally and then to the mirror.
// Only a failed local write is returned as an error (wrapping
// model.ErrPersistence); remote outcomes are reported in the result.
func (m *SyncManager) Push(ctx context.Context, snapshot *model.LedgerSnapshot) (*model.SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &model.SyncResult{Path: m.path}
	advance(result, types.SyncStateIdle)

	data, err := m.writeLocal(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	advance(result, types.SyncStateLocalWritten)

	logger := logging.From(ctx)
	if m.mirror == nil {
		advance(result, types.SyncStateSkipped)
		logger.Warn("no remote mirror configured, ledger kept locally only")
		return result, nil
	}

	result.Previous = m.base
	err = m.retry.run(ctx, m.sleep, func(ctx context.Context, attempt int) error {
		result.Attempts = attempt
		return m.pushOnce(ctx, data, result)
	})

	switch {
	case err == nil:
		advance(result, types.SyncStateSynced)
		m.base = result.Current
		m.saveState(ctx)
		m.conflicted.Store(false)
		logger.Info("ledger synced", "path", m.path, "version", result.Current, "attempts", result.Attempts)

	case errors.Is(err, model.ErrSyncConflict):
		advance(result, types.SyncStateConflicted)
		result.Err = err
		m.conflicted.Store(true)
		logger.Warn("ledger sync conflict", "path", m.path, "base", m.base)

	default:
		advance(result, types.SyncStateUnavailable)
		result.Err = goerr.Wrap(model.ErrSyncUnavailable, "remote mirror did not respond",
			goerr.V(model.PathKey, m.path),
			goerr.V("attempts", result.Attempts),
			goerr.V("cause", err))
		logger.Warn("remote mirror unavailable, ledger kept locally", "path", m.path, "error", err)
	}

	return result, nil
}

func (m *SyncManager) pushOnce(ctx context.Context, data []byte, result *model.SyncResult) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	remote, err := m.mirror.Fetch(ctx, m.path)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch remote ledger")
	}
	if result.State != types.SyncStateRemoteChecked {
		advance(result, types.SyncStateRemoteChecked)
	}

	var current model.Version
	if remote != nil {
		current = remote.Version
		// Already applied, e.g. by an earlier attempt whose reply was lost
		if bytes.Equal(remote.Content, data) {
			result.Current = current
			return nil
		}
	}

	if current != m.base {
		return goerr.Wrap(model.ErrSyncConflict, "remote ledger was updated by another writer",
			goerr.V(model.PathKey, m.path),
			goerr.V(model.ExpectedKey, m.base),
			goerr.V(model.ActualKey, current))
	}

	version, err := m.mirror.Put(ctx, m.path, data, current)
	if err != nil {
		return goerr.Wrap(err, "failed to write remote ledger")
	}
	result.Current = version
	return nil
}

// Revisions lists accepted writes of the ledger document, newest first. A
// mirror without history returns an error wrapping model.ErrUnsupported.
func (m *SyncManager) Revisions(ctx context.Context, limit int) ([]*model.Revision, error) {
	if m.mirror == nil {
		return nil, goerr.Wrap(model.ErrSyncUnavailable, "no remote mirror configured")
	}
	lister, ok := m.mirror.(interfaces.RevisionLister)
	if !ok {
		return nil, goerr.Wrap(model.ErrUnsupported, "mirror keeps no revision history", goerr.V(model.PathKey, m.path))
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	revs, err := lister.ListRevisions(ctx, m.path, limit)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSyncUnavailable, "failed to list revisions",
			goerr.V(model.PathKey, m.path),
			goerr.V("cause", err))
	}
	return revs, nil
}

// Pull fetches the mirrored ledger and hands it to apply. Only when apply
// succeeds is the adopted ledger written locally and the remote version taken
// as the new base, so local records kept by apply are carried by the next
// push. A missing remote document returns an error wrapping model.ErrNotFound.
func (m *SyncManager) Pull(ctx context.Context, apply ApplyFunc) (model.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mirror == nil {
		return "", goerr.Wrap(model.ErrSyncUnavailable, "no remote mirror configured")
	}

	var remote *model.RemoteObject
	err := m.retry.run(ctx, m.sleep, func(ctx context.Context, attempt int) error {
		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		obj, err := m.mirror.Fetch(ctx, m.path)
		if err != nil {
			return err
		}
		remote = obj
		return nil
	})
	if err != nil {
		return "", goerr.Wrap(model.ErrSyncUnavailable, "failed to fetch remote ledger",
			goerr.V(model.PathKey, m.path),
			goerr.V("cause", err))
	}
	if remote == nil {
		return "", goerr.Wrap(model.ErrNotFound, "remote ledger does not exist", goerr.V(model.PathKey, m.path))
	}

	snapshot, err := m.codec.Decode(remote.Content)
	if err != nil {
		return "", goerr.Wrap(err, "failed to decode remote ledger", goerr.V(model.PathKey, m.path))
	}
	adopted, err := apply(snapshot)
	if err != nil {
		return "", goerr.Wrap(err, "failed to apply remote ledger")
	}

	if adopted != nil {
		if _, err := m.writeLocal(ctx, adopted); err != nil {
			return "", err
		}
	} else if err := m.local.Save(ctx, remote.Content); err != nil {
		return "", goerr.Wrap(model.ErrPersistence, "failed to write pulled ledger locally", goerr.V("cause", err))
	}
	m.base = remote.Version
	m.saveState(ctx)
	m.conflicted.Store(false)

	logging.From(ctx).Info("ledger pulled", "path", m.path, "version", remote.Version)
	return remote.Version, nil
}
