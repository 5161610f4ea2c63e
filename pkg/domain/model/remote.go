package model

import (
	"time"

	"github.com/secmon-lab/anzen/pkg/domain/types"
)

// Version is an opaque token identifying the content of a remote object.
// The zero value means the object did not exist.
type Version string

// IsZero reports whether the version is unset
func (v Version) IsZero() bool {
	return v == ""
}

// String returns the string representation of Version
func (v Version) String() string {
	return string(v)
}

// RemoteObject is the content of a mirror path together with its version
type RemoteObject struct {
	Path    string
	Content []byte
	Version Version
}

// Revision is one accepted write to a mirror path
type Revision struct {
	Path     string
	Version  Version
	Previous Version
	PushedAt time.Time
}

// SyncResult is the typed outcome of one push. Remote failures are reported
// here rather than as a returned error.
type SyncResult struct {
	State    types.SyncState
	Trace    []types.SyncState
	Path     string
	Previous Version
	Current  Version
	Attempts int
	Err      error
}

// OK reports whether the local ledger is now mirrored, or no mirror is configured
func (r *SyncResult) OK() bool {
	return r.State == types.SyncStateSynced || r.State == types.SyncStateSkipped
}
