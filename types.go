package havewecrashedyet

import "time"

// Snapshot is one successful market fetch, stored per run and rendered into
// the history feed and the admin dashboard.
type Snapshot struct {
	ID            int64
	Symbol        string
	Price         float64
	ChangePercent float64
	HasChange     bool // false when the provider omitted the change
	StatusClass   string
	StatusText    string
	Subtitle      string
	CreatedAt     time.Time
}

// Run statuses persisted in the runs table.
const (
	RunOK      = "ok"
	RunFailed  = "failed"
	RunSkipped = "skipped"
)

// Run is the persisted record of one pipeline dispatch.
type Run struct {
	ID            string
	Trigger       string
	Detail        string
	CommitMessage string
	Status        string
	FailedStep    string
	Error         string
	Notices       []string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration is the wall-clock time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
