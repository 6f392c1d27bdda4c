package session

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartHousekeeping runs a periodic structured-log snapshot of store
// occupancy. It never mutates session state and is not itself a spec.md
// operation — it generalizes the scheduled-job pattern the teacher
// carries robfig/cron for elsewhere into plain store telemetry here.
func (m *Manager) StartHousekeeping(logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc("@every 1m", func() {
		stats := m.Stats()
		logger.Info("session store snapshot",
			"active", stats.ActiveCount,
			"completed", stats.CompletedCount,
			"oldestCompletedAge", stats.OldestCompletedAge.String(),
		)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
