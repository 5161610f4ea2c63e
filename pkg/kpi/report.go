package kpi

import (
	"time"

	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
)

// Report bundles every indicator computed from one snapshot
type Report struct {
	TakenAt           time.Time                             `json:"taken_at"`
	VocabularyVersion string                                `json:"vocabulary_version"`
	TotalIncidents    int                                   `json:"total_incidents"`
	TotalsByType      map[types.IncidentType]int            `json:"totals_by_type"`
	Rates             map[types.IncidentType]float64        `json:"rates"`
	LostDays          int                                   `json:"lost_days"`
	Monthly           map[types.IncidentType][]MonthlyPoint `json:"monthly"`
	RiskDistribution  map[types.RiskLevel]int               `json:"risk_distribution"`
	HighRisk          []model.IncidentRecord                `json:"high_risk"`
	Areas             []AreaTotal                           `json:"areas"`
	Training          TrainingSummary                       `json:"training"`
}

// Build computes a Report. threshold <= 0 falls back to DefaultHighRiskThreshold.
func Build(s *model.LedgerSnapshot, threshold int) *Report {
	if threshold <= 0 {
		threshold = DefaultHighRiskThreshold
	}

	monthly := make(map[types.IncidentType][]MonthlyPoint, len(types.AllIncidentTypes()))
	for _, t := range types.AllIncidentTypes() {
		monthly[t] = MonthlySeries(s, t)
	}

	report := &Report{
		TotalIncidents:   s.Len(),
		TotalsByType:     TotalsByType(s),
		Rates:            Rates(s),
		LostDays:         LostDaysTotal(s),
		Monthly:          monthly,
		RiskDistribution: RiskDistribution(s),
		HighRisk:         HighRiskIncidents(s, threshold),
		Areas:            TotalsByArea(s),
		Training:         Training(s),
	}
	if s != nil {
		report.TakenAt = s.TakenAt
		report.VocabularyVersion = s.VocabularyVersion
	}
	return report
}
