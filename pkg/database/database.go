package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// Open opens or creates a SQLite database and initializes the schema
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL allows readers (simsnap-results) while a run is writing
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// CreateTestRun creates a new test run record
func (db *DB) CreateTestRun(run *TestRun) error {
	result, err := db.conn.Exec(`
		INSERT INTO test_runs (run_uuid, test_case_id, name, device_id, update_mode, pid, started_at, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunUUID, run.TestCaseID, run.Name, run.DeviceID, run.UpdateMode, run.PID,
		formatTime(run.StartedAt), run.Status, run.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create test run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// UpdateTestRun updates an existing test run
func (db *DB) UpdateTestRun(run *TestRun) error {
	var completedAt *string
	if run.CompletedAt != nil {
		t := formatTime(*run.CompletedAt)
		completedAt = &t
	}

	_, err := db.conn.Exec(`
		UPDATE test_runs
		SET pid = ?, completed_at = ?, status = ?, notes = ?
		WHERE id = ?`,
		run.PID, completedAt, run.Status, run.Notes, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update test run: %w", err)
	}

	return nil
}

const testRunColumns = `id, run_uuid, test_case_id, name, COALESCE(device_id, ''), update_mode, pid,
	started_at, completed_at, status, COALESCE(notes, '')`

type scanner interface {
	Scan(dest ...any) error
}

func scanTestRun(row scanner) (*TestRun, error) {
	var run TestRun
	var startedAt string
	var completedAt *string

	err := row.Scan(
		&run.ID, &run.RunUUID, &run.TestCaseID, &run.Name, &run.DeviceID, &run.UpdateMode, &run.PID,
		&startedAt, &completedAt, &run.Status, &run.Notes,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt = parseTime(startedAt)
	if completedAt != nil {
		t := parseTime(*completedAt)
		run.CompletedAt = &t
	}
	return &run, nil
}

// GetTestRun retrieves a test run by ID
func (db *DB) GetTestRun(id int64) (*TestRun, error) {
	run, err := scanTestRun(db.conn.QueryRow(`SELECT `+testRunColumns+` FROM test_runs WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get test run: %w", err)
	}
	return run, nil
}

// ListTestRuns lists test runs newest first, optionally filtered by test case id
func (db *DB) ListTestRuns(testCaseID ...string) ([]*TestRun, error) {
	query := `SELECT ` + testRunColumns + ` FROM test_runs`
	var args []any
	if len(testCaseID) > 0 && testCaseID[0] != "" {
		query += ` WHERE test_case_id = ?`
		args = append(args, testCaseID[0])
	}
	query += ` ORDER BY started_at DESC, id DESC`
	return db.queryTestRuns(query, args...)
}

// ListTestRunsByUUID lists the test cases executed under one run id
func (db *DB) ListTestRunsByUUID(runUUID string) ([]*TestRun, error) {
	return db.queryTestRuns(`SELECT `+testRunColumns+` FROM test_runs WHERE run_uuid = ? ORDER BY id`, runUUID)
}

func (db *DB) queryTestRuns(query string, args ...any) ([]*TestRun, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list test runs: %w", err)
	}
	defer rows.Close()

	var runs []*TestRun
	for rows.Next() {
		run, err := scanTestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// CreateOperation creates a new device operation record
func (db *DB) CreateOperation(op *Operation) error {
	result, err := db.conn.Exec(`
		INSERT INTO device_operations (run_id, step_index, operation, command, started_at, duration_ms, exit_code, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.RunID, op.StepIndex, op.Operation, op.Command,
		formatTime(op.StartedAt), op.DurationMs, op.ExitCode, op.Status, op.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	op.ID = id
	return nil
}

// ListOperations lists all device operations for a test run
func (db *DB) ListOperations(runID int64) ([]*Operation, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, step_index, operation, command, started_at, duration_ms, exit_code, status, COALESCE(error, '')
		FROM device_operations WHERE run_id = ? ORDER BY step_index, id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		var op Operation
		var startedAt string

		err := rows.Scan(
			&op.ID, &op.RunID, &op.StepIndex, &op.Operation, &op.Command,
			&startedAt, &op.DurationMs, &op.ExitCode, &op.Status, &op.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}

		op.StartedAt = parseTime(startedAt)
		ops = append(ops, &op)
	}

	return ops, rows.Err()
}

// CreateStep creates a new step result record
func (db *DB) CreateStep(s *StepRecord) error {
	result, err := db.conn.Exec(`
		INSERT INTO step_results (run_id, step_index, step_type, name, success, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.RunID, s.StepIndex, s.StepType, s.Name, s.Success, s.DurationMs, s.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to create step result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	s.ID = id
	return nil
}

// ListSteps lists the step results of a test run in execution order
func (db *DB) ListSteps(runID int64) ([]*StepRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, step_index, step_type, COALESCE(name, ''), success, duration_ms, COALESCE(error, '')
		FROM step_results WHERE run_id = ? ORDER BY step_index`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list step results: %w", err)
	}
	defer rows.Close()

	var steps []*StepRecord
	for rows.Next() {
		var s StepRecord
		err := rows.Scan(&s.ID, &s.RunID, &s.StepIndex, &s.StepType, &s.Name, &s.Success, &s.DurationMs, &s.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step result: %w", err)
		}
		steps = append(steps, &s)
	}

	return steps, rows.Err()
}

// CreateCheckpoint creates a new checkpoint result record
func (db *DB) CreateCheckpoint(c *CheckpointRecord) error {
	result, err := db.conn.Exec(`
		INSERT INTO checkpoint_results (run_id, step_index, name, matched, difference_ratio,
			baseline_path, actual_path, diff_path, baseline_missing, updated, is_full_page, segment_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.StepIndex, c.Name, c.Match, c.DifferenceRatio,
		c.BaselinePath, c.ActualPath, c.DiffPath, c.BaselineMissing, c.Updated, c.IsFullPage, c.SegmentCount,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	c.ID = id
	return nil
}

// ListCheckpoints lists the checkpoint results of a test run
func (db *DB) ListCheckpoints(runID int64) ([]*CheckpointRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, step_index, name, matched, difference_ratio,
			COALESCE(baseline_path, ''), COALESCE(actual_path, ''), COALESCE(diff_path, ''),
			baseline_missing, updated, is_full_page, COALESCE(segment_count, 0)
		FROM checkpoint_results WHERE run_id = ? ORDER BY step_index, id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoint results: %w", err)
	}
	defer rows.Close()

	var cps []*CheckpointRecord
	for rows.Next() {
		var c CheckpointRecord
		err := rows.Scan(
			&c.ID, &c.RunID, &c.StepIndex, &c.Name, &c.Match, &c.DifferenceRatio,
			&c.BaselinePath, &c.ActualPath, &c.DiffPath,
			&c.BaselineMissing, &c.Updated, &c.IsFullPage, &c.SegmentCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint result: %w", err)
		}
		cps = append(cps, &c)
	}

	return cps, rows.Err()
}

// CreateArtifact creates a new artifact checksum record
func (db *DB) CreateArtifact(a *Artifact) error {
	result, err := db.conn.Exec(`
		INSERT INTO artifacts (run_id, step_index, kind, file_path, crc32, size_bytes, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.StepIndex, a.Kind, a.FilePath, a.CRC32, a.SizeBytes,
		formatTime(a.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	a.ID = id
	return nil
}

// ListArtifacts lists all artifacts for a test run
func (db *DB) ListArtifacts(runID int64) ([]*Artifact, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, step_index, kind, file_path, crc32, size_bytes, computed_at
		FROM artifacts WHERE run_id = ? ORDER BY step_index, file_path`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		var a Artifact
		var computedAt string

		err := rows.Scan(
			&a.ID, &a.RunID, &a.StepIndex, &a.Kind, &a.FilePath,
			&a.CRC32, &a.SizeBytes, &computedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}

		a.ComputedAt = parseTime(computedAt)
		artifacts = append(artifacts, &a)
	}

	return artifacts, rows.Err()
}

// migration adds a column that older ledgers lack
type migration struct {
	table, column, definition string
}

var migrations = []migration{
	{"test_runs", "pid", "INTEGER DEFAULT 0"},
	{"test_runs", "device_id", "TEXT"},
	{"checkpoint_results", "segment_count", "INTEGER DEFAULT 0"},
}

// runMigrations applies database schema migrations for existing databases
func (db *DB) runMigrations() error {
	for _, m := range migrations {
		var exists bool
		err := db.conn.QueryRow(`
			SELECT COUNT(*) > 0
			FROM pragma_table_info(?)
			WHERE name = ?
		`, m.table, m.column).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check for %s.%s column: %w", m.table, m.column, err)
		}

		if !exists {
			stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, m.table, m.column, m.definition)
			if _, err := db.conn.Exec(stmt); err != nil {
				return fmt.Errorf("failed to add %s.%s column: %w", m.table, m.column, err)
			}
		}
	}

	return nil
}
