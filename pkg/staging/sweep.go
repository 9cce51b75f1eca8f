package staging

import (
	"context"
	"time"

	"github.com/cperrin88/grabvid/internal/logger"
)

// Sweep removes stale job directories once immediately and then every
// interval until ctx is done. A non-positive interval sweeps only once.
// A non-positive staleAfter disables sweeping: every directory would count
// as stale, including live areas owned by other processes sharing the root.
func (m *Manager) Sweep(ctx context.Context, interval, staleAfter time.Duration) {
	if staleAfter <= 0 {
		logger.Info("staging sweep disabled", logger.Fields{"root": m.root})
		return
	}
	m.sweepOnce(staleAfter)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepOnce(staleAfter)
		}
	}
}

func (m *Manager) sweepOnce(staleAfter time.Duration) {
	res, err := m.Clean(staleAfter)
	if err != nil {
		logger.Warn("staging sweep failed", logger.Fields{"root": m.root, "error": err.Error()})
	}
	if res != nil && res.Removed > 0 {
		logger.Info("removed stale staging areas", logger.Fields{
			"root":    m.root,
			"removed": res.Removed,
			"freed":   res.Freed,
		})
	}
}
