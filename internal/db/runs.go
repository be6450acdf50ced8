package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/banshee-data/gla14/internal/gla14"
	"github.com/banshee-data/gla14/internal/timeutil"
)

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one extraction of one granule.
type Run struct {
	RunID          string `json:"run_id"`
	SourcePath     string `json:"source_path"`
	Layout         string `json:"layout"`
	RecordLength   int    `json:"record_length"`
	HeaderLength   int64  `json:"header_length"`
	Status         string `json:"status"`
	Records        int64  `json:"records"`
	Shots          int64  `json:"shots"`
	Kept           int64  `json:"kept"`
	TruncatedBytes int64  `json:"truncated_bytes"`
	Error          string `json:"error,omitempty"`
	StartedUnix    int64  `json:"started_unix"`
	FinishedUnix   *int64 `json:"finished_unix,omitempty"`
}

// RunTotals are the counts recorded when a run completes.
type RunTotals struct {
	Records        int64
	Shots          int64
	Kept           int64
	TruncatedBytes int64
	Rejections     map[string]int64 // rule name -> rejected shots
}

// RunStore persists runs and their kept shots.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore. A nil clock uses the wall clock.
func NewRunStore(db *DB, clock timeutil.Clock) *RunStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RunStore{db: db.DB, clock: clock}
}

// Create inserts a new run in the running state.
// If run.RunID is empty, a new UUID is generated.
func (s *RunStore) Create(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	run.Status = RunRunning
	run.StartedUnix = s.clock.Now().Unix()

	_, err := s.db.Exec(`
		INSERT INTO runs (
			run_id, source_path, layout, record_length, header_length,
			status, started_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.SourcePath, run.Layout, run.RecordLength, run.HeaderLength,
		run.Status, run.StartedUnix,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// InsertBatch stores the kept shots of b in one transaction and returns how
// many rows were written.
func (s *RunStore) InsertBatch(runID string, b *gla14.Batch) (n int, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin batch %d: %w", b.Index, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO shots (
			run_id, rec_ndx, ordinal, shot, lat, lon, elev, sig_end_ht, ground_ht,
			peak_ht_2, peak_ht_3, peak_ht_4, peak_ht_5, peak_ht_6,
			g_amp_1, g_amp_2, g_amp_3, g_amp_4, g_amp_5, g_amp_6,
			g_area_1, g_area_2, g_area_3, g_area_4, g_area_5, g_area_6
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare shot insert: %w", err)
	}
	defer stmt.Close()

	for i := range b.Shots {
		sh := &b.Shots[i]
		if !sh.Keep {
			continue
		}
		args := []any{
			runID, sh.Index, b.Ordinal, sh.Shot, sh.Latitude, sh.Longitude, sh.Elevation,
			sh.SignalEndHeight, sh.GroundHeight,
		}
		for _, h := range sh.PeakHeights {
			args = append(args, h)
		}
		for _, a := range sh.Amplitudes {
			args = append(args, a)
		}
		for _, a := range sh.Areas {
			args = append(args, a)
		}
		if _, err = stmt.Exec(args...); err != nil {
			return n, fmt.Errorf("insert record %d shot %d: %w", sh.Index, sh.Shot, err)
		}
		n++
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch %d: %w", b.Index, err)
	}
	return n, nil
}

// Complete marks the run completed and stores its totals.
func (s *RunStore) Complete(runID string, t RunTotals) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin complete run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE runs SET status = ?, records = ?, shots = ?, kept = ?,
			truncated_bytes = ?, finished_unix = ?
		WHERE run_id = ?`,
		RunCompleted, t.Records, t.Shots, t.Kept, t.TruncatedBytes, s.clock.Now().Unix(), runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}

	rules := make([]string, 0, len(t.Rejections))
	for r := range t.Rejections {
		rules = append(rules, r)
	}
	sort.Strings(rules)
	for _, r := range rules {
		if _, err := tx.Exec(`
			INSERT INTO rejections (run_id, rule, shots) VALUES (?, ?, ?)
			ON CONFLICT (run_id, rule) DO UPDATE SET shots = excluded.shots`,
			runID, r, t.Rejections[r]); err != nil {
			return fmt.Errorf("insert rejections %s: %w", r, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete run: %w", err)
	}
	return nil
}

// Fail marks the run failed with cause.
func (s *RunStore) Fail(runID string, cause error) error {
	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, error = ?, finished_unix = ? WHERE run_id = ?`,
		RunFailed, cause.Error(), s.clock.Now().Unix(), runID,
	)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

const runColumns = `run_id, source_path, layout, record_length, header_length, status,
	records, shots, kept, truncated_bytes, error, started_unix, finished_unix`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	var errText sql.NullString
	var finished sql.NullInt64
	if err := row.Scan(&r.RunID, &r.SourcePath, &r.Layout, &r.RecordLength, &r.HeaderLength, &r.Status,
		&r.Records, &r.Shots, &r.Kept, &r.TruncatedBytes, &errText, &r.StartedUnix, &finished); err != nil {
		return nil, err
	}
	r.Error = errText.String
	if finished.Valid {
		r.FinishedUnix = &finished.Int64
	}
	return &r, nil
}

// Get returns one run.
func (s *RunStore) Get(runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs first.
func (s *RunStore) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_unix DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Rejections returns the per-rule rejection counts of a run.
func (s *RunStore) Rejections(runID string) (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT rule, shots FROM rejections WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("list rejections: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var rule string
		var n int64
		if err := rows.Scan(&rule, &n); err != nil {
			return nil, err
		}
		out[rule] = n
	}
	return out, rows.Err()
}

// Shots returns up to limit stored shots of a run in file order.
func (s *RunStore) Shots(runID string, limit int) ([]gla14.Shot, error) {
	rows, err := s.db.Query(`
		SELECT rec_ndx, shot, lat, lon, elev, sig_end_ht, ground_ht,
			peak_ht_2, peak_ht_3, peak_ht_4, peak_ht_5, peak_ht_6,
			g_amp_1, g_amp_2, g_amp_3, g_amp_4, g_amp_5, g_amp_6,
			g_area_1, g_area_2, g_area_3, g_area_4, g_area_5, g_area_6
		FROM shots WHERE run_id = ?
		ORDER BY ordinal, shot
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	defer rows.Close()

	var shots []gla14.Shot
	for rows.Next() {
		sh := gla14.Shot{Keep: true}
		dest := []any{&sh.Index, &sh.Shot, &sh.Latitude, &sh.Longitude, &sh.Elevation,
			&sh.SignalEndHeight, &sh.GroundHeight}
		for i := range sh.PeakHeights {
			dest = append(dest, &sh.PeakHeights[i])
		}
		for i := range sh.Amplitudes {
			dest = append(dest, &sh.Amplitudes[i])
		}
		for i := range sh.Areas {
			dest = append(dest, &sh.Areas[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		shots = append(shots, sh)
	}
	return shots, rows.Err()
}
