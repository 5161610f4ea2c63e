package config

import (
	"log/slog"
	"time"

	"github.com/secmon-lab/anzen/pkg/kpi"
	"github.com/secmon-lab/anzen/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Sync holds the sync protocol and reporting parameters
type Sync struct {
	timeout   time.Duration
	attempts  int
	backoff   time.Duration
	threshold int
}

func (x *Sync) Flags() []cli.Flag {
	def := usecase.DefaultRetryPolicy()
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "sync-timeout",
			Usage:       "Timeout of one remote round-trip",
			Category:    "Sync",
			Value:       usecase.DefaultSyncTimeout,
			Sources:     cli.EnvVars("ANZEN_SYNC_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.IntFlag{
			Name:        "sync-attempts",
			Usage:       "Attempts before the mirror is reported unavailable",
			Category:    "Sync",
			Value:       def.MaxAttempts,
			Sources:     cli.EnvVars("ANZEN_SYNC_ATTEMPTS"),
			Destination: &x.attempts,
		},
		&cli.DurationFlag{
			Name:        "sync-backoff",
			Usage:       "Initial backoff between attempts",
			Category:    "Sync",
			Value:       def.InitialBackoff,
			Sources:     cli.EnvVars("ANZEN_SYNC_BACKOFF"),
			Destination: &x.backoff,
		},
		&cli.IntFlag{
			Name:        "high-risk-threshold",
			Usage:       "Score from which incidents are reported as high risk",
			Category:    "Report",
			Value:       kpi.DefaultHighRiskThreshold,
			Sources:     cli.EnvVars("ANZEN_HIGH_RISK_THRESHOLD"),
			Destination: &x.threshold,
		},
	}
}

func (x Sync) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("timeout", x.timeout),
		slog.Int("attempts", x.attempts),
		slog.Duration("backoff", x.backoff),
		slog.Int("high_risk_threshold", x.threshold),
	)
}

// Threshold returns the high-risk score threshold
func (x *Sync) Threshold() int {
	return x.threshold
}

// Options converts the flags into SyncManager options
func (x *Sync) Options() []usecase.SyncOption {
	policy := usecase.DefaultRetryPolicy()
	if x.attempts > 0 {
		policy.MaxAttempts = x.attempts
	}
	if x.backoff > 0 {
		policy.InitialBackoff = x.backoff
		policy.MaxBackoff = max(policy.MaxBackoff, x.backoff)
	}

	return []usecase.SyncOption{
		usecase.WithSyncTimeout(x.timeout),
		usecase.WithRetryPolicy(policy),
	}
}
