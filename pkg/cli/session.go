package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/cli/config"
	"github.com/secmon-lab/anzen/pkg/ledger"
	"github.com/secmon-lab/anzen/pkg/usecase"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
	"github.com/secmon-lab/anzen/pkg/workbook"
	"github.com/urfave/cli/v3"
)

// session is the configuration shared by every command that works on the
// ledger: vocabulary, local storage, mirror and the optional integrations.
type session struct {
	vocabulary config.Vocabulary
	store      config.Store
	mirror     config.Mirror
	sync       config.Sync
	slack      config.Slack
	gemini     config.Gemini
}

func (s *session) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, s.vocabulary.Flags()...)
	flags = append(flags, s.store.Flags()...)
	flags = append(flags, s.mirror.Flags()...)
	flags = append(flags, s.sync.Flags()...)
	flags = append(flags, s.slack.Flags()...)
	flags = append(flags, s.gemini.Flags()...)
	return flags
}

// open wires the session and restores the local ledger. The returned closer
// releases the mirror client and is always safe to call.
func (s *session) open(ctx context.Context) (*usecase.LedgerUseCase, func(), error) {
	noop := func() {}

	logging.Default().Debug("Session configuration",
		"vocabulary", s.vocabulary,
		"store", s.store,
		"mirror", s.mirror,
		"sync", s.sync,
		"slack", s.slack,
	)

	classifier, err := s.vocabulary.Configure()
	if err != nil {
		return nil, noop, err
	}

	local, state, err := s.store.Configure()
	if err != nil {
		return nil, noop, goerr.Wrap(err, "failed to initialize local store")
	}

	mirror, closeMirror, err := s.mirror.Configure(ctx)
	if err != nil {
		return nil, noop, goerr.Wrap(err, "failed to initialize mirror")
	}

	syncOpts := s.sync.Options()
	syncOpts = append(syncOpts,
		usecase.WithStateStore(state),
		usecase.WithMirrorPath(s.mirror.Path()),
	)
	if mirror != nil {
		syncOpts = append(syncOpts, usecase.WithMirror(mirror))
	}
	sm := usecase.NewSyncManager(workbook.New(classifier), local, syncOpts...)

	ucOpts := []usecase.Option{
		usecase.WithSummaryLanguage(s.gemini.Language()),
	}
	if threshold := s.sync.Threshold(); threshold > 0 {
		ucOpts = append(ucOpts, usecase.WithHighRiskThreshold(threshold))
	}

	notifier, err := s.slack.Configure(ctx)
	if err != nil {
		closeMirror()
		return nil, noop, err
	}
	if notifier != nil {
		ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
	}

	summarizer, err := s.gemini.Configure(ctx)
	if err != nil {
		closeMirror()
		return nil, noop, err
	}
	if summarizer != nil {
		ucOpts = append(ucOpts, usecase.WithSummarizer(summarizer))
		logging.Default().Info("Summary generation enabled", "gemini", slog.GroupValue(s.gemini.LogAttrs()...))
	}

	uc := usecase.New(ledger.New(classifier), sm, ucOpts...)
	if err := uc.Open(ctx); err != nil {
		closeMirror()
		return nil, noop, goerr.Wrap(err, "failed to open local ledger")
	}

	return uc, closeMirror, nil
}

// reportSync logs the outcome of a push and turns Conflicted and Unavailable
// into errors so that the command exits non-zero.
func reportSync(ctx context.Context, uc *usecase.LedgerUseCase) error {
	result, err := uc.Sync(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to sync ledger")
	}

	logger := logging.From(ctx)
	switch {
	case result.OK():
		logger.Info("Ledger synced",
			"state", result.State,
			"path", result.Path,
			"version", result.Current,
			"attempts", result.Attempts,
		)
		return nil
	default:
		logger.Warn("Ledger kept locally only",
			"state", result.State,
			"path", result.Path,
			"trace", result.Trace,
		)
		if result.Err == nil {
			return goerr.New("sync did not complete", goerr.V("state", result.State))
		}
		return goerr.Wrap(result.Err, "sync did not complete", goerr.V("state", result.State))
	}
}
