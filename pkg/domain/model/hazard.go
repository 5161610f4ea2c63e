package model

import "github.com/secmon-lab/anzen/pkg/domain/types"

// HazardEntry is a row of the hazard matrix loaded by bulk import
type HazardEntry struct {
	ID          string          `json:"id"`
	Area        string          `json:"area"`
	Hazard      string          `json:"hazard"`
	Probability types.Tier      `json:"probability"`
	Severity    types.Tier      `json:"severity"`
	Score       int             `json:"score"`
	Level       types.RiskLevel `json:"level"`
}

// HazardInput is a raw hazard row from a workbook or an external source
type HazardInput struct {
	ID          string
	Area        string
	Hazard      string
	Probability string
	Severity    string
}

// TrainingRecord summarises training activity of one month
type TrainingRecord struct {
	Month     Month `json:"month"`
	Sessions  int   `json:"sessions"`
	Attendees int   `json:"attendees"`
}
