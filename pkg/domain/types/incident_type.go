package types

import (
	"fmt"
	"strings"
)

// IncidentType classifies what happened
type IncidentType string

const (
	IncidentTypeAccident IncidentType = "Accident"
	IncidentTypeIncident IncidentType = "Incident"
	IncidentTypeNearMiss IncidentType = "Near-Miss"
	IncidentTypeOther    IncidentType = "Other"
)

// AllIncidentTypes returns all valid incident types
func AllIncidentTypes() []IncidentType {
	return []IncidentType{
		IncidentTypeAccident,
		IncidentTypeIncident,
		IncidentTypeNearMiss,
		IncidentTypeOther,
	}
}

// IsValid checks if the incident type is valid
func (t IncidentType) IsValid() bool {
	switch t {
	case IncidentTypeAccident,
		IncidentTypeIncident,
		IncidentTypeNearMiss,
		IncidentTypeOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the incident type
func (t IncidentType) String() string {
	return string(t)
}

var incidentTypeAliases = map[string]IncidentType{
	"accident":        IncidentTypeAccident,
	"accidente":       IncidentTypeAccident,
	"incident":        IncidentTypeIncident,
	"incidente":       IncidentTypeIncident,
	"near-miss":       IncidentTypeNearMiss,
	"near miss":       IncidentTypeNearMiss,
	"nearmiss":        IncidentTypeNearMiss,
	"casi accidente":  IncidentTypeNearMiss,
	"cuasi accidente": IncidentTypeNearMiss,
	"other":           IncidentTypeOther,
	"otro":            IncidentTypeOther,
}

// ParseIncidentType parses a label into an IncidentType. Matching ignores
// case and surrounding whitespace, and accepts Spanish labels found in
// existing workbooks.
func ParseIncidentType(s string) (IncidentType, error) {
	if t, ok := incidentTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("invalid incident type: %s", s)
}
