// Package history persists run outcomes so the operator can see what was
// processed for which shift, and with what result.
package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"shiftledger/constants"
	"shiftledger/internal/common"
)

type Store struct {
	conn *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.NewAppError("HISTORY", "create history dir", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError("HISTORY", "open history db", err)
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, common.NewAppError("HISTORY", "set WAL mode", err)
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  startedAt TEXT NOT NULL,
  finishedAt TEXT,
  shiftDate TEXT NOT NULL,
  gasPrice REAL NOT NULL,
  workbookPath TEXT NOT NULL,
  status TEXT NOT NULL,
  instructions INTEGER NOT NULL DEFAULT 0,
  errorMessage TEXT
);
CREATE TABLE IF NOT EXISTS run_sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  source TEXT NOT NULL,
  category TEXT NOT NULL,
  status TEXT NOT NULL,
  instructions INTEGER NOT NULL DEFAULT 0,
  errorMessage TEXT
);
CREATE INDEX IF NOT EXISTS idx_run_sources_runId ON run_sources(runId);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return common.NewAppError("HISTORY", "init schema", err)
	}
	return nil
}

// Run is one recorded batch run.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	ShiftDate    string
	GasPrice     float64
	WorkbookPath string
	Status       constants.RunStatus
	Instructions int
	ErrorMessage string
}

// SourceRecord is the outcome of one source file within a run.
type SourceRecord struct {
	RunID        string
	Source       string
	Category     constants.Category
	Status       constants.SourceStatus
	Instructions int
	ErrorMessage string
}

func (s *Store) BeginRun(r Run) error {
	_, err := s.conn.Exec(
		`INSERT INTO runs (id, startedAt, shiftDate, gasPrice, workbookPath, status) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.ShiftDate, r.GasPrice, r.WorkbookPath, string(r.Status),
	)
	if err != nil {
		return common.NewAppError("HISTORY", "insert run", err)
	}
	return nil
}

func (s *Store) FinishRun(id string, status constants.RunStatus, instructions int, errMsg string) error {
	_, err := s.conn.Exec(
		`UPDATE runs SET finishedAt = ?, status = ?, instructions = ?, errorMessage = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), string(status), instructions, errMsg, id,
	)
	if err != nil {
		return common.NewAppError("HISTORY", "finish run", err)
	}
	return nil
}

func (s *Store) RecordSource(rec SourceRecord) error {
	_, err := s.conn.Exec(
		`INSERT INTO run_sources (runId, source, category, status, instructions, errorMessage) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Source, string(rec.Category), string(rec.Status), rec.Instructions, rec.ErrorMessage,
	)
	if err != nil {
		return common.NewAppError("HISTORY", "insert run source", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(
		`SELECT id, startedAt, finishedAt, shiftDate, gasPrice, workbookPath, status, instructions, COALESCE(errorMessage, '')
		 FROM runs ORDER BY startedAt DESC LIMIT ?`, limit)
	if err != nil {
		return nil, common.NewAppError("HISTORY", "query runs", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		var status string
		if err := rows.Scan(&r.ID, &started, &finished, &r.ShiftDate, &r.GasPrice, &r.WorkbookPath, &status, &r.Instructions, &r.ErrorMessage); err != nil {
			return nil, common.NewAppError("HISTORY", "scan run", err)
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			r.StartedAt = t
		}
		if finished.Valid {
			if t, err := time.Parse(time.RFC3339, finished.String); err == nil {
				r.FinishedAt = &t
			}
		}
		r.Status = constants.RunStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunSources returns the per-source outcomes of one run.
func (s *Store) RunSources(runID string) ([]SourceRecord, error) {
	rows, err := s.conn.Query(
		`SELECT runId, source, category, status, instructions, COALESCE(errorMessage, '')
		 FROM run_sources WHERE runId = ? ORDER BY id`, runID)
	if err != nil {
		return nil, common.NewAppError("HISTORY", "query run sources", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []SourceRecord
	for rows.Next() {
		var rec SourceRecord
		var category, status string
		if err := rows.Scan(&rec.RunID, &rec.Source, &category, &status, &rec.Instructions, &rec.ErrorMessage); err != nil {
			return nil, common.NewAppError("HISTORY", "scan run source", err)
		}
		rec.Category = constants.Category(category)
		rec.Status = constants.SourceStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
