// Package pipeline runs the generate-and-publish pipeline: a fixed sequence
// of named steps executed strictly in order, one run at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Anaethelion/havewecrashedyet/market"
)

// TriggerKind says what started a run.
type TriggerKind string

const (
	TriggerPush     TriggerKind = "push"
	TriggerSchedule TriggerKind = "schedule"
	TriggerManual   TriggerKind = "manual"
)

// Trigger describes what started a run. Detail carries the triggering change
// description when there is one (the head commit message of a push).
type Trigger struct {
	Kind   TriggerKind
	Detail string
}

// CommitMessage derives the publish commit message from the trigger.
// A push reuses the triggering change description; other triggers get a
// timestamped message.
func (t Trigger) CommitMessage(prefix string, now time.Time) string {
	if t.Detail != "" {
		return fmt.Sprintf("%s: %s", prefix, t.Detail)
	}
	return fmt.Sprintf("%s: %s run at %s", prefix, t.Kind, now.UTC().Format(time.RFC3339))
}

// State is threaded through the steps of a single run. Earlier steps fill it
// in, later steps consume it.
type State struct {
	Trigger       Trigger
	CommitMessage string
	Quote         *market.Quote
	Status        market.Status
	Notices       []string
}

// Notice records a non-fatal observation that ends up on the run record.
func (s *State) Notice(format string, args ...any) {
	s.Notices = append(s.Notices, fmt.Sprintf(format, args...))
}

// Step is one stage of the pipeline.
type Step interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

// StepResult is the recorded outcome of one step.
type StepResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Result is the recorded outcome of one run.
type Result struct {
	ID            string
	Trigger       Trigger
	CommitMessage string
	StartedAt     time.Time
	FinishedAt    time.Time
	Steps         []StepResult
	FailedStep    string
	Err           error
	Quote         *market.Quote
	Status        market.Status
	Notices       []string
}

// OK reports whether the run completed without a failing step.
func (r *Result) OK() bool { return r.Err == nil }

// ErrRunInProgress is returned when a trigger fires while a run is active.
// Overlapping runs are rejected rather than queued.
var ErrRunInProgress = errors.New("pipeline: run already in progress")

// Runner executes the pipeline. It is safe for concurrent use; concurrent
// triggers beyond the active run fail fast with ErrRunInProgress.
type Runner struct {
	steps []Step
	log   *slog.Logger
	mu    sync.Mutex
	now   func() time.Time
}

// NewRunner builds a Runner over the given ordered steps.
func NewRunner(log *slog.Logger, steps ...Step) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{steps: steps, log: log, now: time.Now}
}

// Running reports whether a run currently holds the runner. The answer can
// be stale by the time the caller acts on it; Run itself stays authoritative.
func (r *Runner) Running() bool {
	if r.mu.TryLock() {
		r.mu.Unlock()
		return false
	}
	return true
}

// StepNames returns the pipeline's step names in execution order.
func (r *Runner) StepNames() []string {
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.Name()
	}
	return names
}

// Run executes every step in order and stops at the first failure.
// commitMessage is the message the publish step will use.
func (r *Runner) Run(ctx context.Context, trig Trigger, commitMessage string) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	res := &Result{
		ID:            uuid.NewString(),
		Trigger:       trig,
		CommitMessage: commitMessage,
		StartedAt:     r.now(),
	}
	st := &State{Trigger: trig, CommitMessage: commitMessage}
	log := r.log.With("run_id", res.ID, "trigger", string(trig.Kind))
	log.Info("run started")

	for _, step := range r.steps {
		stepStart := r.now()
		err := step.Run(ctx, st)
		sr := StepResult{Name: step.Name(), Duration: r.now().Sub(stepStart), Err: err}
		res.Steps = append(res.Steps, sr)
		if err != nil {
			// All-or-nothing: the first failing step aborts the run.
			res.FailedStep = step.Name()
			res.Err = fmt.Errorf("step %s: %w", step.Name(), err)
			break
		}
		log.Debug("step finished", "step", step.Name(), "duration", sr.Duration)
	}

	res.FinishedAt = r.now()
	res.Quote = st.Quote
	res.Status = st.Status
	res.Notices = st.Notices

	if res.Err != nil {
		log.Error("run failed", "step", res.FailedStep, "error", res.Err)
	} else {
		log.Info("run finished", "status", res.Status.Class, "duration", res.FinishedAt.Sub(res.StartedAt))
	}
	return res, nil
}
