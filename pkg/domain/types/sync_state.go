package types

// SyncState is a state of the sync protocol
type SyncState string

const (
	SyncStateIdle          SyncState = "IDLE"
	SyncStateLocalWritten  SyncState = "LOCAL_WRITTEN"
	SyncStateRemoteChecked SyncState = "REMOTE_CHECKED"
	SyncStateSynced        SyncState = "SYNCED"
	SyncStateConflicted    SyncState = "CONFLICTED"
	SyncStateUnavailable   SyncState = "UNAVAILABLE"
	// SyncStateSkipped is terminal when no remote mirror is configured; the
	// local write still happened.
	SyncStateSkipped SyncState = "SKIPPED"
)

// IsTerminal reports whether the protocol stops in this state
func (s SyncState) IsTerminal() bool {
	switch s {
	case SyncStateSynced,
		SyncStateConflicted,
		SyncStateUnavailable,
		SyncStateSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sync state
func (s SyncState) String() string {
	return string(s)
}
