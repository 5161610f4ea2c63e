package usecase

import (
	"context"
	"time"
)

// DisableBackoff makes retries of m immediate
func DisableBackoff(m *SyncManager) {
	m.sleep = func(ctx context.Context, d time.Duration) error { return nil }
}

var (
	WithJitter  = withJitter
	NextBackoff = nextBackoff
)
