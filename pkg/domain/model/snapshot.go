package model

import "time"

// LedgerSnapshot is a point-in-time copy of the whole ledger; the unit of
// persistence and remote synchronisation.
type LedgerSnapshot struct {
	Incidents         []IncidentRecord
	Hazards           []HazardEntry
	Training          []TrainingRecord
	VocabularyVersion string
	TakenAt           time.Time
}

// Len returns the number of incident records
func (s *LedgerSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Incidents)
}
