package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/stabilizer/internal/video/l6stabilize"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of the stabilizer over a frame stream.
type Run struct {
	RunID         string          `json:"run_id"`
	CreatedAt     int64           `json:"created_at"`
	InputPath     string          `json:"input_path"`
	OutputPath    string          `json:"output_path"`
	Solver        string          `json:"solver"`
	WindowSize    int             `json:"window_size"`
	MaxIter       int             `json:"max_iter"`
	NumLevels     int             `json:"num_levels"`
	ParamsJSON    json.RawMessage `json:"params_json,omitempty"`
	Status        string          `json:"status"`
	Error         string          `json:"error,omitempty"`
	Frames        int             `json:"frames"`
	Width         int             `json:"width"`
	Height        int             `json:"height"`
	OutputWidth   int             `json:"output_width"`
	OutputHeight  int             `json:"output_height"`
	MaxCorrection float64         `json:"max_correction"`
	Holes         int             `json:"holes"`
	ElapsedMS     int64           `json:"elapsed_ms"`
	CompletedAt   int64           `json:"completed_at,omitempty"`
}

// RunStore persists runs and their per-frame samples.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Insert persists a new run. Empty RunID, CreatedAt and Status are filled
// in with a fresh UUID, the current time and RunStatusRunning.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO stabilize_runs (
				run_id, created_at, input_path, output_path, solver,
				window_size, max_iter, num_levels, params_json, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.CreatedAt, run.InputPath, run.OutputPath, run.Solver,
			run.WindowSize, run.MaxIter, run.NumLevels, params, run.Status,
		)
		return err
	})
}

// Complete marks a run finished and stores its summary.
func (s *RunStore) Complete(runID string, sum l6stabilize.Summary) error {
	return s.finish(runID, RunStatusComplete, "", sum)
}

// Fail marks a run failed with cause, keeping whatever summary was reached.
func (s *RunStore) Fail(runID string, cause error, sum l6stabilize.Summary) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.finish(runID, RunStatusFailed, msg, sum)
}

func (s *RunStore) finish(runID, status, msg string, sum l6stabilize.Summary) error {
	var errText interface{}
	if msg != "" {
		errText = msg
	}
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`
			UPDATE stabilize_runs SET
				status = ?, error = ?, frames = ?, width = ?, height = ?,
				output_width = ?, output_height = ?, max_correction = ?, holes = ?,
				elapsed_ms = ?, completed_at = ?
			WHERE run_id = ?`,
			status, errText, sum.Frames, sum.Width, sum.Height,
			sum.OutputWidth, sum.OutputHeight, sum.MaxCorrection, sum.Holes,
			sum.Elapsed.Milliseconds(), time.Now().UnixNano(), runID,
		)
		if err != nil {
			return err
		}
		return requireOneRow(res, runID)
	})
}

const runColumns = `
	run_id, created_at, input_path, output_path, solver,
	window_size, max_iter, num_levels, params_json, status, error,
	frames, width, height, output_width, output_height,
	max_correction, holes, elapsed_ms, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var params, errText sql.NullString
	var completed sql.NullInt64
	err := row.Scan(
		&r.RunID, &r.CreatedAt, &r.InputPath, &r.OutputPath, &r.Solver,
		&r.WindowSize, &r.MaxIter, &r.NumLevels, &params, &r.Status, &errText,
		&r.Frames, &r.Width, &r.Height, &r.OutputWidth, &r.OutputHeight,
		&r.MaxCorrection, &r.Holes, &r.ElapsedMS, &completed,
	)
	if err != nil {
		return nil, err
	}
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	r.Error = errText.String
	r.CompletedAt = completed.Int64
	return &r, nil
}

// Get returns a single run by ID.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM stabilize_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs, newest first. limit <= 0 means all.
func (s *RunStore) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM stabilize_runs
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
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

// Delete removes a run and its samples.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`DELETE FROM stabilize_runs WHERE run_id = ?`, runID)
		if err != nil {
			return err
		}
		return requireOneRow(res, runID)
	})
}

// InsertSamples appends per-frame samples to a run in one transaction.
func (s *RunStore) InsertSamples(runID string, samples []l6stabilize.FrameSample) error {
	if len(samples) == 0 {
		return nil
	}
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT INTO stabilize_frame_samples (
				run_id, frame_index, mean_u, mean_v, correction_u, correction_v,
				holes, elapsed_us
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, fs := range samples {
			if _, err := stmt.Exec(runID, fs.Index, fs.MeanU, fs.MeanV,
				fs.CorrectionU, fs.CorrectionV, fs.Holes, fs.Elapsed.Microseconds()); err != nil {
				return fmt.Errorf("frame %d: %w", fs.Index, err)
			}
		}
		return tx.Commit()
	})
}

// Samples returns the per-frame samples of a run in frame order.
func (s *RunStore) Samples(runID string) ([]l6stabilize.FrameSample, error) {
	rows, err := s.db.Query(`
		SELECT frame_index, mean_u, mean_v, correction_u, correction_v, holes, elapsed_us
		FROM stabilize_frame_samples
		WHERE run_id = ?
		ORDER BY frame_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []l6stabilize.FrameSample
	for rows.Next() {
		var fs l6stabilize.FrameSample
		var us int64
		if err := rows.Scan(&fs.Index, &fs.MeanU, &fs.MeanV,
			&fs.CorrectionU, &fs.CorrectionV, &fs.Holes, &us); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		fs.Elapsed = time.Duration(us) * time.Microsecond
		out = append(out, fs)
	}
	return out, rows.Err()
}

func requireOneRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return nil
}
