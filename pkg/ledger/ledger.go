package ledger

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/risk"
)

// Ledger is the session-owned, append-only collection of incidents together
// with the hazard matrix and training table. It performs no I/O.
type Ledger struct {
	mu         sync.RWMutex
	classifier *risk.Classifier
	incidents  []model.IncidentRecord
	hazards    []model.HazardEntry
	training   []model.TrainingRecord

	newKey func() model.RecordKey
	now    func() time.Time
}

type Option func(*Ledger)

// WithKeyGenerator replaces the UUID surrogate key generator
func WithKeyGenerator(f func() model.RecordKey) Option {
	return func(l *Ledger) {
		l.newKey = f
	}
}

// WithClock replaces the clock used for snapshot timestamps
func WithClock(f func() time.Time) Option {
	return func(l *Ledger) {
		l.now = f
	}
}

func New(classifier *risk.Classifier, opts ...Option) *Ledger {
	l := &Ledger{
		classifier: classifier,
		newKey: func() model.RecordKey {
			return model.RecordKey(uuid.NewString())
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Classifier returns the classifier that derives every score in the ledger
func (l *Ledger) Classifier() *risk.Classifier {
	return l.classifier
}

// Append validates the input, derives its score and level and appends it at
// the tail. All violated fields are reported in a single *model.ValidationError.
func (l *Ledger) Append(input model.IncidentInput) (model.RecordKey, error) {
	record, err := l.buildIncident(input)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record.Key = l.newKey()
	if record.ID == "" {
		record.ID = record.Key.String()
	}
	l.incidents = append(l.incidents, *record)

	return record.Key, nil
}

func (l *Ledger) buildIncident(input model.IncidentInput) (*model.IncidentRecord, error) {
	verr := &model.ValidationError{}

	date, ok := model.ParseDate(input.Date)
	if !ok {
		verr.Add("Date", input.Date, "date must be a valid calendar date (YYYY-MM-DD)")
	}

	if input.LostDays < 0 {
		verr.Add("LostDays", strconv.Itoa(input.LostDays), "lost days must not be negative")
	}

	incidentType, err := types.ParseIncidentType(input.Type)
	if err != nil {
		verr.Add("Type", input.Type, "unknown incident type")
	}

	probability, err := l.classifier.Resolve(types.AxisProbability, input.Probability)
	if err != nil {
		verr.Add("Probability", input.Probability, "unknown probability tier")
	}

	severity, err := l.classifier.Resolve(types.AxisSeverity, input.Severity)
	if err != nil {
		verr.Add("Severity", input.Severity, "unknown severity tier")
	}

	if err := verr.OrNil(); err != nil {
		return nil, goerr.Wrap(err, "invalid incident", goerr.V("id", input.ID))
	}

	score, level, err := l.classifier.Classify(probability, severity)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to classify incident")
	}

	return &model.IncidentRecord{
		ID:          input.ID,
		Date:        date,
		Time:        input.Time,
		Area:        input.Area,
		Role:        input.Role,
		Type:        incidentType,
		Hazard:      input.Hazard,
		LostDays:    input.LostDays,
		Probability: probability,
		Severity:    severity,
		Score:       score,
		Level:       level,
		Description: input.Description,
	}, nil
}

// Query returns copies of the records matching filter in insertion order
func (l *Ledger) Query(filter model.IncidentFilter) []model.IncidentRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]model.IncidentRecord, 0, len(l.incidents))
	for i := range l.incidents {
		if filter.Match(&l.incidents[i]) {
			result = append(result, l.incidents[i])
		}
	}
	return result
}

// Get returns a copy of the record with the given key
func (l *Ledger) Get(key model.RecordKey) (*model.IncidentRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.incidents {
		if l.incidents[i].Key == key {
			r := l.incidents[i]
			return &r, true
		}
	}
	return nil, false
}

// Len returns the number of incident records
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.incidents)
}

// Hazards returns a copy of the hazard matrix
func (l *Ledger) Hazards() []model.HazardEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.HazardEntry{}, l.hazards...)
}

// Snapshot returns an immutable point-in-time copy of the ledger
func (l *Ledger) Snapshot() *model.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return &model.LedgerSnapshot{
		Incidents:         append([]model.IncidentRecord{}, l.incidents...),
		Hazards:           append([]model.HazardEntry{}, l.hazards...),
		Training:          append([]model.TrainingRecord{}, l.training...),
		VocabularyVersion: l.classifier.Version(),
		TakenAt:           l.now(),
	}
}

// LoadHazards replaces the hazard matrix. Rows are classified with the same
// vocabulary as incidents; any invalid row rejects the whole load.
func (l *Ledger) LoadHazards(inputs []model.HazardInput) error {
	verr := &model.ValidationError{}
	entries := make([]model.HazardEntry, 0, len(inputs))

	for i, in := range inputs {
		prefix := "Hazards[" + strconv.Itoa(i) + "]."
		if in.ID == "" {
			verr.Add(prefix+"ID", "", "hazard identifier is required")
		}
		p, s, score, level, err := l.classifier.ClassifyLabels(in.Probability, in.Severity)
		if err != nil {
			if _, perr := l.classifier.Resolve(types.AxisProbability, in.Probability); perr != nil {
				verr.Add(prefix+"Probability", in.Probability, "unknown probability tier")
			}
			if _, serr := l.classifier.Resolve(types.AxisSeverity, in.Severity); serr != nil {
				verr.Add(prefix+"Severity", in.Severity, "unknown severity tier")
			}
			continue
		}

		entries = append(entries, model.HazardEntry{
			ID:          in.ID,
			Area:        in.Area,
			Hazard:      in.Hazard,
			Probability: p,
			Severity:    s,
			Score:       score,
			Level:       level,
		})
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			verr.Add("Hazards.ID", e.ID, "duplicate hazard identifier")
		}
		seen[e.ID] = struct{}{}
	}

	if err := verr.OrNil(); err != nil {
		return goerr.Wrap(err, "invalid hazard matrix", goerr.V("rows", len(inputs)))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.hazards = entries
	return nil
}

// SetTraining replaces the read-only training table
func (l *Ledger) SetTraining(records []model.TrainingRecord) error {
	verr := &model.ValidationError{}
	for i, r := range records {
		prefix := "Training[" + strconv.Itoa(i) + "]."
		if r.Month.IsZero() {
			verr.Add(prefix+"Month", "", "month is required")
		}
		if r.Sessions < 0 {
			verr.Add(prefix+"Sessions", strconv.Itoa(r.Sessions), "sessions must not be negative")
		}
		if r.Attendees < 0 {
			verr.Add(prefix+"Attendees", strconv.Itoa(r.Attendees), "attendees must not be negative")
		}
	}
	if err := verr.OrNil(); err != nil {
		return goerr.Wrap(err, "invalid training table")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.training = append([]model.TrainingRecord{}, records...)
	return nil
}

// Restore replaces the whole ledger with a snapshot, as when importing a
// workbook or reloading after a vocabulary change. Scores and levels are
// recomputed with the current classifier; stored values are not trusted.
func (l *Ledger) Restore(snapshot *model.LedgerSnapshot) error {
	incidents, hazards, err := l.prepare(snapshot)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.incidents = incidents
	l.hazards = hazards
	l.training = append([]model.TrainingRecord{}, snapshot.Training...)
	return nil
}

// Rebase adopts a snapshot taken from the mirror while keeping every local
// incident whose key the snapshot does not contain. Those are appended after
// the mirrored incidents in their local order, so nothing accepted by this
// ledger is dropped. It returns the number of kept local incidents.
func (l *Ledger) Rebase(snapshot *model.LedgerSnapshot) (int, error) {
	incidents, hazards, err := l.prepare(snapshot)
	if err != nil {
		return 0, err
	}

	known := make(map[model.RecordKey]struct{}, len(incidents))
	for _, r := range incidents {
		known[r.Key] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var kept int
	for _, r := range l.incidents {
		if _, ok := known[r.Key]; ok {
			continue
		}
		incidents = append(incidents, r)
		kept++
	}

	l.incidents = incidents
	l.hazards = hazards
	l.training = append([]model.TrainingRecord{}, snapshot.Training...)
	return kept, nil
}

func (l *Ledger) prepare(snapshot *model.LedgerSnapshot) ([]model.IncidentRecord, []model.HazardEntry, error) {
	if snapshot == nil {
		return nil, nil, goerr.New("snapshot is required")
	}

	incidents := make([]model.IncidentRecord, len(snapshot.Incidents))
	for i, r := range snapshot.Incidents {
		score, level, err := l.classifier.Classify(r.Probability, r.Severity)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to reclassify incident", goerr.V("index", i), goerr.V("id", r.ID))
		}
		if r.LostDays < 0 {
			return nil, nil, goerr.Wrap(model.ErrValidation, "negative lost days in snapshot", goerr.V("index", i), goerr.V("id", r.ID))
		}
		if r.Key == "" {
			r.Key = l.newKey()
		}
		if r.ID == "" {
			r.ID = r.Key.String()
		}
		r.Score = score
		r.Level = level
		incidents[i] = r
	}

	hazards := make([]model.HazardEntry, len(snapshot.Hazards))
	for i, h := range snapshot.Hazards {
		score, level, err := l.classifier.Classify(h.Probability, h.Severity)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to reclassify hazard", goerr.V("index", i), goerr.V("id", h.ID))
		}
		h.Score = score
		h.Level = level
		hazards[i] = h
	}

	return incidents, hazards, nil
}
