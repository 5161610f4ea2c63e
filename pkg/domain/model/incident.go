package model

import (
	"time"

	"github.com/secmon-lab/anzen/pkg/domain/types"
)

// RecordKey is the surrogate key the ledger assigns to every appended record.
// Caller supplied identifiers are labels and may repeat.
type RecordKey string

// String returns the string representation of RecordKey
func (k RecordKey) String() string {
	return string(k)
}

// IncidentRecord is an appended, immutable incident entry
type IncidentRecord struct {
	Key         RecordKey          `json:"key"`
	ID          string             `json:"id"`
	Date        time.Time          `json:"date"`
	Time        string             `json:"time,omitempty"`
	Area        string             `json:"area"`
	Role        string             `json:"role,omitempty"`
	Type        types.IncidentType `json:"type"`
	Hazard      string             `json:"hazard,omitempty"`
	LostDays    int                `json:"lost_days"`
	Probability types.Tier         `json:"probability"`
	Severity    types.Tier         `json:"severity"`
	Score       int                `json:"score"`
	Level       types.RiskLevel    `json:"level"`
	Description string             `json:"description,omitempty"`
}

// IncidentInput is the raw form submission before validation
type IncidentInput struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Area        string `json:"area"`
	Role        string `json:"role,omitempty"`
	Type        string `json:"type"`
	Hazard      string `json:"hazard,omitempty"`
	LostDays    int    `json:"lost_days"`
	Probability string `json:"probability"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
}

// DateLayouts are accepted for incident dates, tried in order
var DateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006/01/02",
}

// ParseDate parses an incident date and truncates it to the calendar day in UTC
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// IncidentFilter selects records in Query. Zero fields match everything;
// From and To are inclusive calendar dates.
type IncidentFilter struct {
	Area string
	Type types.IncidentType
	From time.Time
	To   time.Time
}

// Match reports whether the record satisfies the filter
func (f IncidentFilter) Match(r *IncidentRecord) bool {
	if f.Area != "" && f.Area != r.Area {
		return false
	}
	if f.Type != "" && f.Type != r.Type {
		return false
	}
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To) {
		return false
	}
	return true
}
