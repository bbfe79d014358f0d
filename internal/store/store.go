package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting applied on Open.
type pragma struct {
	name  string
	value string
}

// pragmas are applied in order. WAL lets trace/replay read a database while
// a run is still recording into it.
var pragmas = []pragma{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migrations[i] upgrades a database from user_version i to i+1.
var migrations = []func(*sql.Tx) error{
	// v1: per-kind operation counts for trace summaries.
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_operations_kind ON operations(run_id, kind)`)
		return err
	},
	// v2: the failed run status. SQLite cannot alter a CHECK constraint, so
	// both tables are copied into new ones that are renamed into place.
	// operations goes first so dropping runs leaves no dangling references.
	func(tx *sql.Tx) error {
		for _, stmt := range rebuildForFailedStatus {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	},
}

var rebuildForFailedStatus = []string{
	`CREATE TABLE runs_v2 (
		id               TEXT PRIMARY KEY,
		seq              INTEGER NOT NULL UNIQUE,
		algorithm        TEXT NOT NULL,
		length           INTEGER NOT NULL,
		input            TEXT NOT NULL,
		output           TEXT NOT NULL DEFAULT '[]',
		status           TEXT NOT NULL DEFAULT 'running'
		                 CHECK (status IN ('running', 'complete', 'cancelled', 'failed')),
		emitted          INTEGER NOT NULL DEFAULT 0,
		dropped          INTEGER NOT NULL DEFAULT 0,
		digest           TEXT NOT NULL DEFAULT '',
		engine_version   TEXT NOT NULL,
		protocol_version TEXT NOT NULL
	)`,
	`CREATE TABLE operations_v2 (
		run_id     TEXT NOT NULL REFERENCES runs_v2(id),
		seq        INTEGER NOT NULL,
		kind       TEXT NOT NULL CHECK (kind IN ('set_phase', 'compare', 'overwrite')),
		idx        INTEGER NOT NULL,
		idx_b      INTEGER,
		phase      TEXT,
		elem_value INTEGER,
		elem_key   INTEGER,
		PRIMARY KEY (run_id, seq)
	)`,
	`INSERT INTO runs_v2
		(id, seq, algorithm, length, input, output, status, emitted, dropped, digest, engine_version, protocol_version)
		SELECT id, seq, algorithm, length, input, output, status, emitted, dropped, digest, engine_version, protocol_version
		FROM runs`,
	`INSERT INTO operations_v2
		(run_id, seq, kind, idx, idx_b, phase, elem_value, elem_key)
		SELECT run_id, seq, kind, idx, idx_b, phase, elem_value, elem_key
		FROM operations`,
	`DROP TABLE operations`,
	`DROP TABLE runs`,
	`ALTER TABLE runs_v2 RENAME TO runs`,
	`ALTER TABLE operations_v2 RENAME TO operations`,
	`CREATE INDEX IF NOT EXISTS idx_operations_kind ON operations(run_id, kind)`,
}

// schemaVersion is the user_version of a fully migrated database.
var schemaVersion = len(migrations)

// Store records sorting runs and their operation traces in SQLite.
//
// A Store holds a single connection: SQLite allows one writer, and an
// in-memory database (":memory:") exists only on the connection that
// created it.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and brings its schema up to
// date. Opening an existing database is safe and changes nothing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialize(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initialize(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return migrate(db)
}

// migrate runs every migration past the database's user_version, each in
// its own transaction together with the version bump.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for v := version; v < schemaVersion; v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := migrations[v](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: set user_version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for ad hoc queries and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// pragmaValue reads the current value of a pragma.
func (s *Store) pragmaValue(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
