// Package kpi derives operational indicators from a ledger snapshot. Every
// function is pure and total: an empty snapshot yields zeros or empty series.
package kpi

import (
	"sort"

	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
)

// DefaultHighRiskThreshold is the score from which an incident counts as high risk
const DefaultHighRiskThreshold = 15

// MonthlyPoint is one bucket of a monthly series
type MonthlyPoint struct {
	Month model.Month `json:"month"`
	Count int         `json:"count"`
}

// AreaTotal is the incident count and lost days of one area
type AreaTotal struct {
	Area     string `json:"area"`
	Count    int    `json:"count"`
	LostDays int    `json:"lost_days"`
}

// TrainingSummary totals the training table
type TrainingSummary struct {
	Months    int `json:"months"`
	Sessions  int `json:"sessions"`
	Attendees int `json:"attendees"`
}

// TotalsByType counts incidents per type. Every known type is present.
func TotalsByType(s *model.LedgerSnapshot) map[types.IncidentType]int {
	totals := make(map[types.IncidentType]int, len(types.AllIncidentTypes()))
	for _, t := range types.AllIncidentTypes() {
		totals[t] = 0
	}
	if s == nil {
		return totals
	}
	for _, r := range s.Incidents {
		totals[r.Type]++
	}
	return totals
}

// LostDaysTotal sums lost days over all incidents
func LostDaysTotal(s *model.LedgerSnapshot) int {
	if s == nil {
		return 0
	}
	total := 0
	for _, r := range s.Incidents {
		total += r.LostDays
	}
	return total
}

// Rate returns count(type) / (total + 1) * 100. The +1 keeps the rate defined
// on an empty ledger.
func Rate(s *model.LedgerSnapshot, t types.IncidentType) float64 {
	count := 0
	for _, r := range incidents(s) {
		if r.Type == t {
			count++
		}
	}
	return float64(count) / float64(s.Len()+1) * 100
}

// Rates returns Rate for every known type
func Rates(s *model.LedgerSnapshot) map[types.IncidentType]float64 {
	rates := make(map[types.IncidentType]float64, len(types.AllIncidentTypes()))
	for _, t := range types.AllIncidentTypes() {
		rates[t] = Rate(s, t)
	}
	return rates
}

// MonthlySeries counts incidents of type t per month. The series spans the
// months observed in the whole ledger, from the earliest to the latest, with
// zero-filled gaps. Record order does not matter.
func MonthlySeries(s *model.LedgerSnapshot, t types.IncidentType) []MonthlyPoint {
	records := incidents(s)
	if len(records) == 0 {
		return []MonthlyPoint{}
	}

	first := model.MonthOf(records[0].Date)
	last := first
	for _, r := range records[1:] {
		m := model.MonthOf(r.Date)
		if m.Before(first) {
			first = m
		}
		if last.Before(m) {
			last = m
		}
	}

	return MonthlySeriesBetween(s, t, first, last)
}

// MonthlySeriesBetween counts incidents of type t for every month in
// [from, to]. An inverted range yields an empty series.
func MonthlySeriesBetween(s *model.LedgerSnapshot, t types.IncidentType, from, to model.Month) []MonthlyPoint {
	if to.Before(from) {
		return []MonthlyPoint{}
	}

	counts := make(map[model.Month]int)
	for _, r := range incidents(s) {
		if r.Type == t {
			counts[model.MonthOf(r.Date)]++
		}
	}

	var series []MonthlyPoint
	for m := from; !to.Before(m); m = m.Next() {
		series = append(series, MonthlyPoint{Month: m, Count: counts[m]})
	}
	return series
}

// RiskDistribution counts hazard entries per derived level. Every level is present.
func RiskDistribution(s *model.LedgerSnapshot) map[types.RiskLevel]int {
	dist := make(map[types.RiskLevel]int, len(types.AllRiskLevels()))
	for _, l := range types.AllRiskLevels() {
		dist[l] = 0
	}
	if s == nil {
		return dist
	}
	for _, h := range s.Hazards {
		dist[h.Level]++
	}
	return dist
}

// HighRiskIncidents returns incidents with score >= threshold, most recent
// first. Incidents of the same date keep their insertion order.
func HighRiskIncidents(s *model.LedgerSnapshot, threshold int) []model.IncidentRecord {
	result := []model.IncidentRecord{}
	for _, r := range incidents(s) {
		if r.Score >= threshold {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result
}

// TotalsByArea counts incidents and lost days per area, sorted by count
// descending and then by area name
func TotalsByArea(s *model.LedgerSnapshot) []AreaTotal {
	byArea := make(map[string]*AreaTotal)
	for _, r := range incidents(s) {
		a, ok := byArea[r.Area]
		if !ok {
			a = &AreaTotal{Area: r.Area}
			byArea[r.Area] = a
		}
		a.Count++
		a.LostDays += r.LostDays
	}

	result := make([]AreaTotal, 0, len(byArea))
	for _, a := range byArea {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Area < result[j].Area
	})
	return result
}

// Training totals the training table
func Training(s *model.LedgerSnapshot) TrainingSummary {
	var summary TrainingSummary
	if s == nil {
		return summary
	}
	for _, t := range s.Training {
		summary.Months++
		summary.Sessions += t.Sessions
		summary.Attendees += t.Attendees
	}
	return summary
}

func incidents(s *model.LedgerSnapshot) []model.IncidentRecord {
	if s == nil {
		return nil
	}
	return s.Incidents
}
