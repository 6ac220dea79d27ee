package havewecrashedyet

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding pipeline runs and market snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL so the HTTP handlers can read while a run writes, a busy timeout
	// so writers wait instead of failing with SQLITE_BUSY, and
	// synchronous=NORMAL which is safe under WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    trigger TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    commit_message TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    failed_step TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    notices TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    price REAL NOT NULL,
    change_percent REAL NOT NULL,
    has_change INTEGER NOT NULL DEFAULT 1,
    status_class TEXT NOT NULL,
    status_text TEXT NOT NULL,
    subtitle TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at DESC);
`)
	return err
}

// SaveRun inserts a run record.
func (s *Store) SaveRun(r Run) error {
	_, err := s.db.Exec(`INSERT INTO runs
		(id, trigger, detail, commit_message, status, failed_step, error, notices, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Trigger, r.Detail, r.CommitMessage, r.Status, r.FailedStep, r.Error,
		joinNotices(r.Notices), r.StartedAt.UTC(), r.FinishedAt.UTC())
	return err
}

// ListRecentRuns returns the newest runs first, capped at limit.
func (s *Store) ListRecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, trigger, detail, commit_message, status, failed_step, error, notices, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var notices string
		if err := rows.Scan(&r.ID, &r.Trigger, &r.Detail, &r.CommitMessage, &r.Status,
			&r.FailedStep, &r.Error, &notices, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Notices = splitNotices(notices)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SaveSnapshot inserts a snapshot and returns it with the assigned id.
func (s *Store) SaveSnapshot(snap Snapshot) (Snapshot, error) {
	hasChange := 0
	if snap.HasChange {
		hasChange = 1
	}
	res, err := s.db.Exec(`INSERT INTO snapshots
		(symbol, price, change_percent, has_change, status_class, status_text, subtitle, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Symbol, snap.Price, snap.ChangePercent, hasChange,
		snap.StatusClass, snap.StatusText, snap.Subtitle, snap.CreatedAt.UTC())
	if err != nil {
		return Snapshot{}, err
	}
	snap.ID, err = res.LastInsertId()
	return snap, err
}

// LatestSnapshot returns the most recent snapshot, or sql.ErrNoRows when
// nothing has been fetched yet.
func (s *Store) LatestSnapshot() (Snapshot, error) {
	row := s.db.QueryRow(`SELECT id, symbol, price, change_percent, has_change, status_class, status_text, subtitle, created_at
		FROM snapshots ORDER BY created_at DESC, id DESC LIMIT 1`)
	return scanSnapshot(row)
}

// ListRecentSnapshots returns the newest snapshots first, capped at limit.
func (s *Store) ListRecentSnapshots(limit int) ([]Snapshot, error) {
	rows, err := s.db.Query(`SELECT id, symbol, price, change_percent, has_change, status_class, status_text, subtitle, created_at
		FROM snapshots ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// StatusChanges filters snapshots down to the ones where the verdict flipped,
// newest first. This powers the feed: a new item appears when the market
// status changes, not on every fetch.
func StatusChanges(snaps []Snapshot) []Snapshot {
	var changes []Snapshot
	for i := 0; i < len(snaps); i++ {
		// snaps is newest-first, so the predecessor in time is the next entry.
		if i == len(snaps)-1 || snaps[i].StatusClass != snaps[i+1].StatusClass {
			changes = append(changes, snaps[i])
		}
	}
	return changes
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var snap Snapshot
	var hasChange int
	err := row.Scan(&snap.ID, &snap.Symbol, &snap.Price, &snap.ChangePercent, &hasChange,
		&snap.StatusClass, &snap.StatusText, &snap.Subtitle, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, err
	}
	snap.HasChange = hasChange == 1
	return snap, nil
}

// Notices are stored newline-delimited. A notice can quote multi-line
// command or response output, so embedded newlines are flattened before
// joining to keep the round-trip intact.
func joinNotices(notices []string) string {
	clean := make([]string, len(notices))
	for i, n := range notices {
		clean[i] = strings.ReplaceAll(n, "\n", " ")
	}
	return strings.Join(clean, "\n")
}

func splitNotices(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// PruneSnapshots deletes snapshots older than keep, preventing unbounded
// growth under an hourly schedule.
func (s *Store) PruneSnapshots(keep time.Duration) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE created_at < ?`, time.Now().Add(-keep).UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
