package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler fires the pipeline on a fixed cron schedule. It is a thin wrapper
// over robfig/cron so the rest of the app never touches cron types.
type Scheduler struct {
	cron *cron.Cron
	spec string
	log  *slog.Logger
}

// NewScheduler validates spec (standard 5-field cron, plus @every and
// friends) and registers job against it.
func NewScheduler(spec string, log *slog.Logger, job func()) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, spec: spec, log: log}, nil
}

// Start launches the scheduling loop in its own goroutine.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "spec", s.spec)
	s.cron.Start()
}

// Stop halts scheduling. Runs already started keep going.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}
