package ledger_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/ledger"
	"github.com/secmon-lab/anzen/pkg/risk"
)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	n := 0
	return ledger.New(risk.MustDefault(), ledger.WithKeyGenerator(func() model.RecordKey {
		n++
		return model.RecordKey(fmt.Sprintf("key-%03d", n))
	}))
}

func validInput() model.IncidentInput {
	return model.IncidentInput{
		ID:          "INC-1",
		Date:        "2024-03-15",
		Time:        "10:30",
		Area:        "Warehouse",
		Role:        "Operator",
		Type:        "Accident",
		Hazard:      "Forklift",
		LostDays:    2,
		Probability: "Alta",
		Severity:    "Crítica",
		Description: "Pinched finger",
	}
}

func TestAppend(t *testing.T) {
	l := newLedger(t)

	key, err := l.Append(validInput())
	gt.NoError(t, err).Required()
	gt.Value(t, key).Equal(model.RecordKey("key-001"))
	gt.Value(t, l.Len()).Equal(1)

	records := l.Query(model.IncidentFilter{})
	gt.Array(t, records).Length(1).Required()
	r := records[0]
	gt.Value(t, r.Key).Equal(key)
	gt.Value(t, r.ID).Equal("INC-1")
	gt.Value(t, r.Date).Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	gt.Value(t, r.Type).Equal(types.IncidentTypeAccident)
	gt.Value(t, r.Probability).Equal(types.TierHigh)
	gt.Value(t, r.Severity).Equal(types.TierCritical)
	gt.Value(t, r.Score).Equal(12)
	gt.Value(t, r.Level).Equal(types.RiskLevelMedium)
}

func TestAppend_InvalidDate(t *testing.T) {
	l := newLedger(t)
	_, err := l.Append(validInput())
	gt.NoError(t, err).Required()

	in := validInput()
	in.Date = "2024-13-40"
	_, err = l.Append(in)
	gt.Error(t, err).Is(model.ErrValidation)

	var verr *model.ValidationError
	gt.Bool(t, errors.As(err, &verr)).True()
	gt.Bool(t, verr.Has("Date")).True()
	gt.Array(t, verr.Fields).Length(1)
	gt.Value(t, l.Len()).Equal(1)
}

func TestAppend_ReportsEveryViolatedField(t *testing.T) {
	l := newLedger(t)

	_, err := l.Append(model.IncidentInput{
		Date:        "not a date",
		Type:        "Explosion",
		LostDays:    -1,
		Probability: "Sometimes",
		Severity:    "Catastrophic",
	})
	gt.Error(t, err).Is(model.ErrValidation)

	var verr *model.ValidationError
	gt.Bool(t, errors.As(err, &verr)).True()
	for _, field := range []string{"Date", "Type", "LostDays", "Probability", "Severity"} {
		gt.Bool(t, verr.Has(field)).True()
	}
	gt.Value(t, l.Len()).Equal(0)
}

func TestAppend_DuplicateIDsGetDistinctKeys(t *testing.T) {
	l := newLedger(t)

	k1, err := l.Append(validInput())
	gt.NoError(t, err).Required()
	k2, err := l.Append(validInput())
	gt.NoError(t, err).Required()

	gt.Value(t, k1).NotEqual(k2)
	gt.Value(t, l.Len()).Equal(2)
}

func TestAppend_EmptyIDUsesKey(t *testing.T) {
	l := newLedger(t)
	in := validInput()
	in.ID = ""

	key, err := l.Append(in)
	gt.NoError(t, err).Required()
	gt.Value(t, l.Query(model.IncidentFilter{})[0].ID).Equal(key.String())
}

func TestQuery(t *testing.T) {
	l := newLedger(t)

	inputs := []model.IncidentInput{
		{Date: "2024-01-10", Area: "Warehouse", Type: "Accident", Probability: "Baja", Severity: "Leve"},
		{Date: "2024-02-10", Area: "Office", Type: "Near-Miss", Probability: "Baja", Severity: "Leve"},
		{Date: "2024-03-10", Area: "Warehouse", Type: "Near-Miss", Probability: "Baja", Severity: "Leve"},
		{Date: "2024-04-10", Area: "Warehouse", Type: "Accident", Probability: "Baja", Severity: "Leve"},
	}
	for _, in := range inputs {
		_, err := l.Append(in)
		gt.NoError(t, err).Required()
	}

	t.Run("insertion order without filter", func(t *testing.T) {
		got := l.Query(model.IncidentFilter{})
		gt.Array(t, got).Length(4).Required()
		for i, key := range []string{"key-001", "key-002", "key-003", "key-004"} {
			gt.Value(t, got[i].Key.String()).Equal(key)
		}
	})

	t.Run("by area and type", func(t *testing.T) {
		got := l.Query(model.IncidentFilter{Area: "Warehouse", Type: types.IncidentTypeNearMiss})
		gt.Array(t, got).Length(1).Required()
		gt.Value(t, got[0].Key.String()).Equal("key-003")
	})

	t.Run("inclusive date range", func(t *testing.T) {
		got := l.Query(model.IncidentFilter{
			From: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		})
		gt.Array(t, got).Length(2)
	})

	t.Run("returns copies", func(t *testing.T) {
		got := l.Query(model.IncidentFilter{})
		got[0].Area = "mutated"
		gt.Value(t, l.Query(model.IncidentFilter{})[0].Area).Equal("Warehouse")
	})
}

func TestSnapshot_IsImmutable(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := ledger.New(risk.MustDefault(), ledger.WithClock(func() time.Time { return now }))

	_, err := l.Append(validInput())
	gt.NoError(t, err).Required()

	snap := l.Snapshot()
	gt.Value(t, snap.Len()).Equal(1)
	gt.Value(t, snap.TakenAt).Equal(now)
	gt.Value(t, snap.VocabularyVersion).Equal("2024-1")

	_, err = l.Append(validInput())
	gt.NoError(t, err).Required()
	gt.Value(t, snap.Len()).Equal(1)

	snap.Incidents[0].Area = "mutated"
	gt.Value(t, l.Query(model.IncidentFilter{})[0].Area).Equal("Warehouse")
}

func TestLoadHazards(t *testing.T) {
	l := newLedger(t)

	err := l.LoadHazards([]model.HazardInput{
		{ID: "H-1", Area: "Warehouse", Hazard: "Forklift", Probability: "Alta", Severity: "Crítica"},
		{ID: "H-2", Area: "Office", Hazard: "Cables", Probability: "Baja", Severity: "Leve"},
		{ID: "H-3", Area: "Roof", Hazard: "Fall", Probability: "Muy Alta", Severity: "Crítica"},
	})
	gt.NoError(t, err).Required()

	hazards := l.Hazards()
	gt.Array(t, hazards).Length(3).Required()
	gt.Value(t, hazards[0].Score).Equal(12)
	gt.Value(t, hazards[0].Level).Equal(types.RiskLevelMedium)
	gt.Value(t, hazards[1].Level).Equal(types.RiskLevelLow)
	gt.Value(t, hazards[2].Score).Equal(16)
	gt.Value(t, hazards[2].Level).Equal(types.RiskLevelHigh)

	t.Run("invalid rows reject the whole load", func(t *testing.T) {
		err := l.LoadHazards([]model.HazardInput{
			{ID: "H-9", Probability: "Alta", Severity: "Leve"},
			{ID: "H-10", Probability: "Nunca", Severity: "Leve"},
		})
		gt.Error(t, err).Is(model.ErrValidation)

		var verr *model.ValidationError
		gt.Bool(t, errors.As(err, &verr)).True()
		gt.Bool(t, verr.Has("Hazards[1].Probability")).True()
		gt.Array(t, l.Hazards()).Length(3)
	})

	t.Run("duplicate identifiers", func(t *testing.T) {
		err := l.LoadHazards([]model.HazardInput{
			{ID: "H-1", Probability: "Alta", Severity: "Leve"},
			{ID: "H-1", Probability: "Baja", Severity: "Leve"},
		})
		gt.Error(t, err).Is(model.ErrValidation)
	})
}

func TestSetTraining(t *testing.T) {
	l := newLedger(t)

	err := l.SetTraining([]model.TrainingRecord{
		{Month: model.Month{Year: 2024, Month: time.January}, Sessions: 2, Attendees: 30},
	})
	gt.NoError(t, err).Required()
	gt.Array(t, l.Snapshot().Training).Length(1)

	err = l.SetTraining([]model.TrainingRecord{{Sessions: -1}})
	gt.Error(t, err).Is(model.ErrValidation)
	gt.Array(t, l.Snapshot().Training).Length(1)
}

func TestRestore_RecomputesScores(t *testing.T) {
	l := newLedger(t)

	snap := &model.LedgerSnapshot{
		Incidents: []model.IncidentRecord{
			{
				Key:         "k-1",
				ID:          "INC-1",
				Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				Type:        types.IncidentTypeAccident,
				Probability: types.TierCritical,
				Severity:    types.TierCritical,
				Score:       1,
				Level:       types.RiskLevelLow,
			},
		},
		Hazards: []model.HazardEntry{
			{ID: "H-1", Probability: types.TierHigh, Severity: types.TierHigh},
		},
	}

	gt.NoError(t, l.Restore(snap)).Required()

	records := l.Query(model.IncidentFilter{})
	gt.Array(t, records).Length(1).Required()
	gt.Value(t, records[0].Key).Equal(model.RecordKey("k-1"))
	gt.Value(t, records[0].Score).Equal(16)
	gt.Value(t, records[0].Level).Equal(types.RiskLevelHigh)
	gt.Value(t, l.Hazards()[0].Score).Equal(9)
}

func TestRestore_InvalidTier(t *testing.T) {
	l := newLedger(t)
	_, err := l.Append(validInput())
	gt.NoError(t, err).Required()

	err = l.Restore(&model.LedgerSnapshot{
		Incidents: []model.IncidentRecord{{Probability: "extreme", Severity: types.TierLow}},
	})
	gt.Error(t, err).Is(model.ErrInvalidTier)
	gt.Value(t, l.Len()).Equal(1)
}

func TestRebase_KeepsUnmirroredIncidents(t *testing.T) {
	l := newLedger(t)

	shared, err := l.Append(validInput())
	gt.NoError(t, err).Required()
	local := validInput()
	local.ID = "INC-LOCAL"
	localKey, err := l.Append(local)
	gt.NoError(t, err).Required()

	remote := l.Snapshot()
	remote.Incidents = remote.Incidents[:1]
	other := remote.Incidents[0]
	other.Key = "remote-key"
	other.ID = "INC-REMOTE"
	remote.Incidents = append(remote.Incidents, other)
	remote.Hazards = []model.HazardEntry{
		{ID: "H-1", Probability: types.TierHigh, Severity: types.TierHigh},
	}

	kept, err := l.Rebase(remote)
	gt.NoError(t, err).Required()
	gt.Value(t, kept).Equal(1)

	records := l.Query(model.IncidentFilter{})
	gt.Array(t, records).Length(3).Required()
	gt.Value(t, records[0].Key).Equal(shared)
	gt.Value(t, records[1].Key).Equal(model.RecordKey("remote-key"))
	gt.Value(t, records[2].Key).Equal(localKey)
	gt.Value(t, records[2].ID).Equal("INC-LOCAL")
	gt.Array(t, l.Hazards()).Length(1)
}

func TestRebase_InvalidSnapshotKeepsLedger(t *testing.T) {
	l := newLedger(t)
	_, err := l.Append(validInput())
	gt.NoError(t, err).Required()

	_, err = l.Rebase(&model.LedgerSnapshot{
		Incidents: []model.IncidentRecord{{Probability: "extreme", Severity: types.TierLow}},
	})
	gt.Error(t, err).Is(model.ErrInvalidTier)
	gt.Value(t, l.Len()).Equal(1)
}

func TestConcurrentAppend(t *testing.T) {
	l := ledger.New(risk.MustDefault())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Append(validInput())
			_ = l.Snapshot()
		}()
	}
	wg.Wait()

	gt.Value(t, l.Len()).Equal(50)
}

func TestGet(t *testing.T) {
	l := newLedger(t)
	key, err := l.Append(validInput())
	gt.NoError(t, err).Required()

	r, ok := l.Get(key)
	gt.Bool(t, ok).True()
	gt.Value(t, r.ID).Equal("INC-1")

	// Returned record is a copy
	r.Area = "changed"
	again, _ := l.Get(key)
	gt.Value(t, again.Area).Equal("Warehouse")

	_, ok = l.Get("missing")
	gt.Bool(t, ok).False()
}
