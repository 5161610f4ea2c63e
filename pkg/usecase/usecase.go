package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/kpi"
	"github.com/secmon-lab/anzen/pkg/ledger"
	"github.com/secmon-lab/anzen/pkg/service/notion"
	"github.com/secmon-lab/anzen/pkg/service/summary"
	"github.com/secmon-lab/anzen/pkg/utils/async"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/secmon-lab/anzen/pkg/workbook"
	"golang.org/x/sync/singleflight"
)

// ErrSummaryNotConfigured is returned by Summarize when no LLM is configured
var ErrSummaryNotConfigured = errors.New("summary generator is not configured")

// Notifier announces ledger events to people
type Notifier interface {
	NotifyHighRisk(ctx context.Context, r *model.IncidentRecord) error
	NotifyConflict(ctx context.Context, result *model.SyncResult) error
}

// LedgerUseCase orchestrates one session: the ledger it owns, its
// persistence and the optional notification and summary integrations.
type LedgerUseCase struct {
	ledger     *ledger.Ledger
	codec      *workbook.Codec
	sync       *SyncManager
	notifier   Notifier
	summarizer summary.Service
	language   string
	threshold  int

	summaries singleflight.Group
}

type Option func(*LedgerUseCase)

func WithNotifier(n Notifier) Option {
	return func(uc *LedgerUseCase) {
		uc.notifier = n
	}
}

func WithSummarizer(s summary.Service) Option {
	return func(uc *LedgerUseCase) {
		uc.summarizer = s
	}
}

// WithSummaryLanguage sets the language summaries are written in
func WithSummaryLanguage(lang string) Option {
	return func(uc *LedgerUseCase) {
		uc.language = lang
	}
}

// WithHighRiskThreshold sets the score from which incidents are listed as
// high risk in reports
func WithHighRiskThreshold(threshold int) Option {
	return func(uc *LedgerUseCase) {
		uc.threshold = threshold
	}
}

func New(l *ledger.Ledger, sm *SyncManager, opts ...Option) *LedgerUseCase {
	uc := &LedgerUseCase{
		ledger:    l,
		codec:     workbook.New(l.Classifier()),
		sync:      sm,
		threshold: kpi.DefaultHighRiskThreshold,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Ledger returns the session ledger
func (uc *LedgerUseCase) Ledger() *ledger.Ledger {
	return uc.ledger
}

// Codec returns the workbook codec bound to the session vocabulary
func (uc *LedgerUseCase) Codec() *workbook.Codec {
	return uc.codec
}

// SyncManager returns the session's sync manager
func (uc *LedgerUseCase) SyncManager() *SyncManager {
	return uc.sync
}

// HighRiskThreshold returns the configured high-risk score threshold
func (uc *LedgerUseCase) HighRiskThreshold() int {
	return uc.threshold
}

// HasSummarizer reports whether Summarize can be used
func (uc *LedgerUseCase) HasSummarizer() bool {
	return uc.summarizer != nil
}

// Open restores the ledger from local storage. A fresh workspace is not an error.
func (uc *LedgerUseCase) Open(ctx context.Context) error {
	snapshot, err := uc.sync.LoadLocal(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		logging.From(ctx).Debug("no local ledger found, starting empty")
		return nil
	}
	if err := uc.ledger.Restore(snapshot); err != nil {
		return goerr.Wrap(err, "failed to restore local ledger")
	}
	logging.From(ctx).Debug("local ledger restored", "incidents", uc.ledger.Len())
	return nil
}

// RecordIncident validates and appends one incident. When the incident is
// classified High, the notifier is told asynchronously.
func (uc *LedgerUseCase) RecordIncident(ctx context.Context, input model.IncidentInput) (*model.IncidentRecord, error) {
	key, err := uc.ledger.Append(input)
	if err != nil {
		return nil, err
	}

	record, ok := uc.ledger.Get(key)
	if !ok {
		return nil, goerr.New("appended incident not found", goerr.V("key", key))
	}

	logging.From(ctx).Info("incident recorded",
		"key", record.Key,
		"area", record.Area,
		"type", record.Type,
		"score", record.Score,
		"level", record.Level,
	)

	if record.Level == types.RiskLevelHigh && uc.notifier != nil {
		notified := *record
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.notifier.NotifyHighRisk(ctx, &notified)
		})
	}

	return record, nil
}

// Report computes every indicator over the current ledger
func (uc *LedgerUseCase) Report(ctx context.Context) *kpi.Report {
	return kpi.Build(uc.ledger.Snapshot(), uc.threshold)
}

// Save writes the current ledger to local storage only
func (uc *LedgerUseCase) Save(ctx context.Context) error {
	return uc.sync.SaveLocal(ctx, uc.ledger.Snapshot())
}

// Sync pushes the current ledger. Concurrent calls are serialized by the
// SyncManager and each pushes a snapshot taken when it was called, so a
// reported outcome always covers the caller's own writes.
func (uc *LedgerUseCase) Sync(ctx context.Context) (*model.SyncResult, error) {
	result, err := uc.sync.Push(ctx, uc.ledger.Snapshot())
	if err != nil {
		return nil, err
	}

	if result.State == types.SyncStateConflicted && uc.notifier != nil {
		conflict := *result
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.notifier.NotifyConflict(ctx, &conflict)
		})
	}
	return result, nil
}

// Pull adopts the mirrored ledger. Local incidents the mirror does not know
// yet are kept after the mirrored ones and go out with the next push.
func (uc *LedgerUseCase) Pull(ctx context.Context) (model.Version, error) {
	return uc.sync.Pull(ctx, func(remote *model.LedgerSnapshot) (*model.LedgerSnapshot, error) {
		kept, err := uc.ledger.Rebase(remote)
		if err != nil {
			return nil, err
		}
		if kept == 0 {
			return nil, nil
		}
		logging.From(ctx).Warn("local incidents missing from mirror kept for next push", "count", kept)
		return uc.ledger.Snapshot(), nil
	})
}

// Conflicted reports whether the last push conflicted and is still unresolved
func (uc *LedgerUseCase) Conflicted() bool {
	return uc.sync.Conflicted()
}

// Revisions lists accepted writes of the mirrored ledger, newest first
func (uc *LedgerUseCase) Revisions(ctx context.Context, limit int) ([]*model.Revision, error) {
	return uc.sync.Revisions(ctx, limit)
}

// ImportWorkbook replaces the ledger with the content of a workbook document
func (uc *LedgerUseCase) ImportWorkbook(ctx context.Context, data []byte) error {
	snapshot, err := uc.codec.Decode(data)
	if err != nil {
		return err
	}
	if err := uc.ledger.Restore(snapshot); err != nil {
		return goerr.Wrap(err, "failed to import workbook")
	}

	logging.From(ctx).Info("workbook imported",
		"incidents", len(snapshot.Incidents),
		"hazards", len(snapshot.Hazards),
		"training", len(snapshot.Training),
	)
	return nil
}

// ImportHazards replaces the hazard table
func (uc *LedgerUseCase) ImportHazards(ctx context.Context, rows []model.HazardInput) error {
	if err := uc.ledger.LoadHazards(rows); err != nil {
		return err
	}
	logging.From(ctx).Info("hazards imported", "count", len(rows))
	return nil
}

// Summarize asks the configured summarizer for a briefing of the current report
func (uc *LedgerUseCase) Summarize(ctx context.Context) (*summary.Summary, error) {
	if uc.summarizer == nil {
		return nil, ErrSummaryNotConfigured
	}

	snapshot := uc.ledger.Snapshot()
	data, err := uc.codec.Encode(snapshot)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode ledger for summary")
	}
	report := kpi.Build(snapshot, uc.threshold)

	// Callers asking while a summary of identical content is in flight share it
	digest := sha256.Sum256(data)
	key := uc.language + ":" + hex.EncodeToString(digest[:])
	v, err, _ := uc.summaries.Do(key, func() (any, error) {
		return uc.summarizer.Summarize(ctx, summary.Input{
			Report:   report,
			Language: uc.language,
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to summarize ledger")
	}
	return v.(*summary.Summary), nil
}

// FetchHazards collects every row of a Notion hazard database
func FetchHazards(ctx context.Context, src notion.Service, databaseID string) ([]model.HazardInput, error) {
	var rows []model.HazardInput
	for row, err := range src.QueryHazards(ctx, databaseID) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row.Input())
	}
	return rows, nil
}
