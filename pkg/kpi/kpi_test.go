package kpi_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/kpi"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func incident(date time.Time, t types.IncidentType, score int) model.IncidentRecord {
	return model.IncidentRecord{
		Key:   model.RecordKey(date.Format(time.DateOnly) + "-" + t.String()),
		Date:  date,
		Type:  t,
		Area:  "Warehouse",
		Score: score,
	}
}

func TestEmptyLedger(t *testing.T) {
	for _, s := range []*model.LedgerSnapshot{nil, {}} {
		for _, typ := range types.AllIncidentTypes() {
			gt.Value(t, kpi.Rate(s, typ)).Equal(0.0)
			gt.Array(t, kpi.MonthlySeries(s, typ)).Length(0)
			gt.Value(t, kpi.TotalsByType(s)[typ]).Equal(0)
		}
		gt.Value(t, kpi.LostDaysTotal(s)).Equal(0)
		gt.Array(t, kpi.HighRiskIncidents(s, 15)).Length(0)
		gt.Array(t, kpi.TotalsByArea(s)).Length(0)
		gt.Value(t, kpi.RiskDistribution(s)[types.RiskLevelHigh]).Equal(0)
		gt.Value(t, kpi.Training(s)).Equal(kpi.TrainingSummary{})
	}
}

func TestTotalsByType(t *testing.T) {
	s := &model.LedgerSnapshot{Incidents: []model.IncidentRecord{
		incident(day(2024, 1, 1), types.IncidentTypeAccident, 1),
		incident(day(2024, 1, 2), types.IncidentTypeAccident, 1),
		incident(day(2024, 1, 3), types.IncidentTypeNearMiss, 1),
	}}

	totals := kpi.TotalsByType(s)
	gt.Value(t, totals[types.IncidentTypeAccident]).Equal(2)
	gt.Value(t, totals[types.IncidentTypeNearMiss]).Equal(1)
	gt.Value(t, totals[types.IncidentTypeIncident]).Equal(0)
	gt.Value(t, totals[types.IncidentTypeOther]).Equal(0)
	gt.Value(t, len(totals)).Equal(4)
}

func TestLostDaysTotal(t *testing.T) {
	s := &model.LedgerSnapshot{Incidents: []model.IncidentRecord{
		{LostDays: 3},
		{LostDays: 0},
		{LostDays: 5},
	}}
	gt.Value(t, kpi.LostDaysTotal(s)).Equal(8)
}

func TestRate(t *testing.T) {
	s := &model.LedgerSnapshot{Incidents: []model.IncidentRecord{
		incident(day(2024, 1, 1), types.IncidentTypeAccident, 1),
		incident(day(2024, 1, 2), types.IncidentTypeNearMiss, 1),
		incident(day(2024, 1, 3), types.IncidentTypeNearMiss, 1),
	}}

	// 1 / (3 + 1) * 100
	gt.Value(t, kpi.Rate(s, types.IncidentTypeAccident)).Equal(25.0)
	gt.Value(t, kpi.Rate(s, types.IncidentTypeNearMiss)).Equal(50.0)
	gt.Value(t, kpi.Rate(s, types.IncidentTypeOther)).Equal(0.0)

	t.Run("one more record strictly increases the rate", func(t *testing.T) {
		before := kpi.Rate(s, types.IncidentTypeAccident)
		more := &model.LedgerSnapshot{Incidents: append(append([]model.IncidentRecord{}, s.Incidents...),
			incident(day(2024, 1, 4), types.IncidentTypeAccident, 1))}
		gt.Bool(t, kpi.Rate(more, types.IncidentTypeAccident) > before).True()
	})
}

func TestMonthlySeries(t *testing.T) {
	records := []model.IncidentRecord{
		incident(day(2024, 4, 20), types.IncidentTypeAccident, 1),
		incident(day(2023, 11, 2), types.IncidentTypeAccident, 1),
		incident(day(2024, 1, 15), types.IncidentTypeNearMiss, 1),
		incident(day(2024, 1, 16), types.IncidentTypeAccident, 1),
		incident(day(2024, 1, 31), types.IncidentTypeAccident, 1),
	}
	s := &model.LedgerSnapshot{Incidents: records}

	series := kpi.MonthlySeries(s, types.IncidentTypeAccident)

	// 2023-11 .. 2024-04 is six months
	gt.Array(t, series).Length(6).Required()
	want := []struct {
		month string
		count int
	}{
		{"2023-11", 1},
		{"2023-12", 0},
		{"2024-01", 2},
		{"2024-02", 0},
		{"2024-03", 0},
		{"2024-04", 1},
	}
	for i, w := range want {
		gt.Value(t, series[i].Month.String()).Equal(w.month)
		gt.Value(t, series[i].Count).Equal(w.count)
	}

	t.Run("range covers every type", func(t *testing.T) {
		nearMiss := kpi.MonthlySeries(s, types.IncidentTypeNearMiss)
		gt.Array(t, nearMiss).Length(6).Required()
		gt.Value(t, nearMiss[2].Count).Equal(1)
	})

	t.Run("order independent", func(t *testing.T) {
		reversed := make([]model.IncidentRecord, len(records))
		for i, r := range records {
			reversed[len(records)-1-i] = r
		}
		gt.Value(t, kpi.MonthlySeries(&model.LedgerSnapshot{Incidents: reversed}, types.IncidentTypeAccident)).Equal(series)
	})
}

func TestMonthlySeriesBetween(t *testing.T) {
	s := &model.LedgerSnapshot{Incidents: []model.IncidentRecord{
		incident(day(2024, 2, 1), types.IncidentTypeOther, 1),
	}}
	from := model.Month{Year: 2023, Month: time.December}
	to := model.Month{Year: 2024, Month: time.March}

	series := kpi.MonthlySeriesBetween(s, types.IncidentTypeOther, from, to)
	gt.Array(t, series).Length(4).Required()
	gt.Value(t, series[2].Count).Equal(1)

	gt.Array(t, kpi.MonthlySeriesBetween(s, types.IncidentTypeOther, to, from)).Length(0)
}

func TestRiskDistribution(t *testing.T) {
	s := &model.LedgerSnapshot{Hazards: []model.HazardEntry{
		{ID: "H-1", Level: types.RiskLevelHigh},
		{ID: "H-2", Level: types.RiskLevelLow},
		{ID: "H-3", Level: types.RiskLevelLow},
	}}

	dist := kpi.RiskDistribution(s)
	gt.Value(t, dist[types.RiskLevelHigh]).Equal(1)
	gt.Value(t, dist[types.RiskLevelMedium]).Equal(0)
	gt.Value(t, dist[types.RiskLevelLow]).Equal(2)
}

func TestHighRiskIncidents(t *testing.T) {
	s := &model.LedgerSnapshot{Incidents: []model.IncidentRecord{
		incident(day(2024, 1, 10), types.IncidentTypeAccident, 20),
		incident(day(2024, 3, 10), types.IncidentTypeAccident, 14),
		incident(day(2024, 2, 10), types.IncidentTypeAccident, 15),
		incident(day(2024, 4, 10), types.IncidentTypeAccident, 6),
	}}

	got := kpi.HighRiskIncidents(s, 15)
	gt.Array(t, got).Length(2).Required()
	gt.Value(t, got[0].Score).Equal(15)
	gt.Value(t, got[0].Date).Equal(day(2024, 2, 10))
	gt.Value(t, got[1].Score).Equal(20)
	gt.Value(t, got[1].Date).Equal(day(2024, 1, 10))
}

func TestTotalsByArea(t *testing.T) {
	s := &model.LedgerSnapshot{Incidents: []model.IncidentRecord{
		{Area: "Office", LostDays: 1},
		{Area: "Warehouse", LostDays: 2},
		{Area: "Warehouse", LostDays: 3},
		{Area: "Dock"},
	}}

	got := kpi.TotalsByArea(s)
	gt.Array(t, got).Length(3).Required()
	gt.Value(t, got[0]).Equal(kpi.AreaTotal{Area: "Warehouse", Count: 2, LostDays: 5})
	gt.Value(t, got[1].Area).Equal("Dock")
	gt.Value(t, got[2].Area).Equal("Office")
}

func TestBuild(t *testing.T) {
	s := &model.LedgerSnapshot{
		Incidents: []model.IncidentRecord{
			incident(day(2024, 1, 10), types.IncidentTypeAccident, 16),
		},
		Training: []model.TrainingRecord{
			{Month: model.Month{Year: 2024, Month: time.January}, Sessions: 2, Attendees: 20},
			{Month: model.Month{Year: 2024, Month: time.February}, Sessions: 1, Attendees: 8},
		},
		VocabularyVersion: "2024-1",
	}

	r := kpi.Build(s, 0)
	gt.Value(t, r.TotalIncidents).Equal(1)
	gt.Value(t, r.VocabularyVersion).Equal("2024-1")
	gt.Array(t, r.HighRisk).Length(1)
	gt.Array(t, r.Monthly[types.IncidentTypeAccident]).Length(1)
	gt.Value(t, r.Training).Equal(kpi.TrainingSummary{Months: 2, Sessions: 3, Attendees: 28})
	gt.Value(t, r.Rates[types.IncidentTypeAccident]).Equal(50.0)

	gt.Array(t, kpi.Build(s, 20).HighRisk).Length(0)
}
