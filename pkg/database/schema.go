package database

const schema = `
CREATE TABLE IF NOT EXISTS test_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_uuid TEXT NOT NULL,
    test_case_id TEXT NOT NULL,
    name TEXT NOT NULL,
    device_id TEXT,
    update_mode INTEGER NOT NULL DEFAULT 0,
    pid INTEGER DEFAULT 0,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    status TEXT NOT NULL,
    notes TEXT
);

CREATE TABLE IF NOT EXISTS device_operations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    step_index INTEGER NOT NULL,
    operation TEXT NOT NULL,
    command TEXT NOT NULL,
    started_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    exit_code INTEGER NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    FOREIGN KEY (run_id) REFERENCES test_runs(id)
);

CREATE TABLE IF NOT EXISTS step_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    step_index INTEGER NOT NULL,
    step_type TEXT NOT NULL,
    name TEXT,
    success INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    error TEXT,
    FOREIGN KEY (run_id) REFERENCES test_runs(id)
);

CREATE TABLE IF NOT EXISTS checkpoint_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    step_index INTEGER NOT NULL,
    name TEXT NOT NULL,
    matched INTEGER NOT NULL,
    difference_ratio REAL NOT NULL,
    baseline_path TEXT,
    actual_path TEXT,
    diff_path TEXT,
    baseline_missing INTEGER NOT NULL DEFAULT 0,
    updated INTEGER NOT NULL DEFAULT 0,
    is_full_page INTEGER NOT NULL DEFAULT 0,
    segment_count INTEGER DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES test_runs(id)
);

CREATE TABLE IF NOT EXISTS artifacts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    step_index INTEGER NOT NULL,
    kind TEXT NOT NULL,
    file_path TEXT NOT NULL,
    crc32 TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    computed_at TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES test_runs(id)
);

CREATE INDEX IF NOT EXISTS idx_device_operations_run ON device_operations(run_id);
CREATE INDEX IF NOT EXISTS idx_step_results_run ON step_results(run_id);
CREATE INDEX IF NOT EXISTS idx_checkpoint_results_run ON checkpoint_results(run_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id);
CREATE INDEX IF NOT EXISTS idx_test_runs_case ON test_runs(test_case_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_test_runs_uuid ON test_runs(run_uuid, test_case_id);
`
