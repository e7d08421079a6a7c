package session

import (
	"context"
	"time"
)

// Run checks once immediately, then every RefreshInterval and on every Nudge,
// until ctx is cancelled
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.timings.RefreshInterval)
	defer ticker.Stop()

	m.tick(ctx, "start")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.tick(ctx, "interval")
		case <-m.nudge:
			m.tick(ctx, "nudge")
		}
	}
}

// Nudge asks a running Run loop for an extra check. It never blocks and
// nudges arriving while one is pending are merged.
func (m *Manager) Nudge() {
	select {
	case m.nudge <- struct{}{}:
	default:
	}
}

func (m *Manager) tick(ctx context.Context, trigger string) {
	outcome, err := m.RefreshIfNeeded(ctx)
	if err != nil && ctx.Err() == nil {
		m.logger.Err(err).Str("trigger", trigger).Str("outcome", outcome.String()).Msg("session check")
		return
	}
	m.logger.Debug().Str("trigger", trigger).Str("outcome", outcome.String()).Msg("session check")
}
