// Package scheduler runs the periodic maintenance jobs: expired-session
// sweeps and the session gauge refresh.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/pocketmedic/triage-gateway/internal/metrics"
	"github.com/pocketmedic/triage-gateway/internal/session"
)

// Scheduler manages the cron jobs of the gateway.
type Scheduler struct {
	cron     *cron.Cron
	sessions *session.Store
	logger   *slog.Logger
}

// NewScheduler wires the maintenance jobs. spec is a standard cron
// expression; an invalid one is reported and the sweep simply never runs.
func NewScheduler(sessions *session.Store, spec string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		logger.Error("invalid cleanup schedule", "spec", spec, "error", err)
	}
	return s
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sweep() {
	removed := s.sessions.CleanupExpired()
	if removed > 0 {
		s.logger.Info("expired sessions removed", "count", removed)
	}
	metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
}
