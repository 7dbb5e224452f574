package database

import (
	"database/sql"
	"fmt"
)

// Migration is a named schema change applied at most once per database.
type Migration struct {
	Name string
	SQL  string
}

// JournalMigrations define the run journal written by classmod.
var JournalMigrations = []Migration{
	{"create_runs", `CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		working_copy_id TEXT,
		module_name TEXT,
		target TEXT NOT NULL,
		replacement TEXT NOT NULL,
		dry_run BOOLEAN DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'running',
		replacements INTEGER DEFAULT 0,
		revision INTEGER,
		error TEXT,
		host TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	)`},
	{"create_mutations", `CREATE TABLE IF NOT EXISTS mutations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		element_id TEXT NOT NULL,
		element_name TEXT,
		before_value TEXT NOT NULL,
		after_value TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	)`},
	{"index_mutations_run_id", `CREATE INDEX IF NOT EXISTS idx_mutations_run_id ON mutations(run_id)`},
	{"index_runs_started_at", `CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`},
}

// ServerMigrations define the storage of the local model service.
var ServerMigrations = []Migration{
	{"create_api_users", `CREATE TABLE IF NOT EXISTS api_users (
		username TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`},
	{"create_projects", `CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`},
	{"create_revisions", `CREATE TABLE IF NOT EXISTS revisions (
		project_id TEXT NOT NULL,
		branch TEXT NOT NULL,
		number INTEGER NOT NULL,
		units TEXT NOT NULL,
		author TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (project_id, branch, number),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	)`},
	{"create_working_copies", `CREATE TABLE IF NOT EXISTS working_copies (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		branch TEXT NOT NULL,
		base_revision INTEGER NOT NULL,
		open_sessions INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`},
	{"create_units", `CREATE TABLE IF NOT EXISTS units (
		id TEXT NOT NULL,
		working_copy_id TEXT NOT NULL,
		type TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		position INTEGER NOT NULL,
		tree TEXT NOT NULL,
		PRIMARY KEY (working_copy_id, id),
		FOREIGN KEY (working_copy_id) REFERENCES working_copies(id) ON DELETE CASCADE
	)`},
	{"create_jobs", `CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		working_copy_id TEXT NOT NULL,
		branch TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		revision INTEGER DEFAULT 0,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (working_copy_id) REFERENCES working_copies(id) ON DELETE CASCADE
	)`},
	{"index_units_type", `CREATE INDEX IF NOT EXISTS idx_units_type ON units(working_copy_id, type)`},
	{"index_jobs_working_copy_id", `CREATE INDEX IF NOT EXISTS idx_jobs_working_copy_id ON jobs(working_copy_id)`},
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		migration TEXT UNIQUE NOT NULL,
		batch INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func hasMigrationRun(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM migrations WHERE migration = ?`, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordMigration(db *sql.DB, name string, batch int) error {
	_, err := db.Exec(`INSERT INTO migrations (migration, batch) VALUES (?, ?)`, name, batch)
	return err
}

func nextBatch(db *sql.DB) (int, error) {
	var batch sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(batch) FROM migrations`).Scan(&batch); err != nil {
		return 0, err
	}
	return int(batch.Int64) + 1, nil
}

func runMigrations(db *sql.DB, set []Migration) error {
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	batch, err := nextBatch(db)
	if err != nil {
		return err
	}

	for _, m := range set {
		done, err := hasMigrationRun(db, m.Name)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if err := recordMigration(db, m.Name, batch); err != nil {
			return err
		}
	}
	return nil
}
