package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/mergeviz/internal/protocol"
)

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestOpen_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	beginTestRun(t, s, "run-1", 2, 1)
	s.Close()

	for i := 0; i < 2; i++ {
		s, err = Open(path)
		if err != nil {
			t.Fatalf("reopen %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	run, err := s.ReadRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("run lost across reopen: %v", err)
	}
	if got := protocol.Values(run.Input); len(got) != 2 || got[0] != 2 {
		t.Errorf("input = %v, want [2 1]", got)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, expected := range want {
		got, err := s.pragmaValue(name)
		if err != nil {
			t.Error(err)
			continue
		}
		if got != expected {
			t.Errorf("%s = %q, want %q", name, got, expected)
		}
	}
}

func TestOpen_Migrated(t *testing.T) {
	s := createTestStore(t)

	got, err := s.pragmaValue("user_version")
	if err != nil {
		t.Fatal(err)
	}
	if got != "2" || schemaVersion != 2 {
		t.Errorf("user_version = %s, schemaVersion = %d, want 2", got, schemaVersion)
	}

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_operations_kind'",
	).Scan(&name)
	if err != nil {
		t.Errorf("migration index missing: %v", err)
	}
}

// v1Schema is the layout written by version 1 databases, before the failed
// run status existed.
const v1Schema = `
CREATE TABLE runs (
    id TEXT PRIMARY KEY,
    seq INTEGER NOT NULL UNIQUE,
    algorithm TEXT NOT NULL,
    length INTEGER NOT NULL,
    input TEXT NOT NULL,
    output TEXT NOT NULL DEFAULT '[]',
    status TEXT NOT NULL DEFAULT 'running'
        CHECK (status IN ('running', 'complete', 'cancelled')),
    emitted INTEGER NOT NULL DEFAULT 0,
    dropped INTEGER NOT NULL DEFAULT 0,
    digest TEXT NOT NULL DEFAULT '',
    engine_version TEXT NOT NULL,
    protocol_version TEXT NOT NULL
);
CREATE TABLE operations (
    run_id TEXT NOT NULL REFERENCES runs(id),
    seq INTEGER NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('set_phase', 'compare', 'overwrite')),
    idx INTEGER NOT NULL,
    idx_b INTEGER,
    phase TEXT,
    elem_value INTEGER,
    elem_key INTEGER,
    PRIMARY KEY (run_id, seq)
);
CREATE INDEX idx_operations_kind ON operations(run_id, kind);
INSERT INTO runs (id, seq, algorithm, length, input, status, engine_version, protocol_version)
VALUES ('old-run', 1, 'merge', 2, '[]', 'complete', 'e', 'p');
INSERT INTO operations (run_id, seq, kind, idx, idx_b)
VALUES ('old-run', 1, 'compare', 0, 1);
PRAGMA user_version = 1;
`

func TestOpen_MigratesV1Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(v1Schema); err != nil {
		t.Fatalf("write v1 schema: %v", err)
	}
	raw.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() on v1 database failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if v, _ := s.pragmaValue("user_version"); v != "2" {
		t.Errorf("user_version = %s, want 2", v)
	}

	ops, err := s.ReadOperations(ctx, "old-run")
	if err != nil || len(ops) != 1 {
		t.Fatalf("old trace lost: %d ops, err %v", len(ops), err)
	}

	beginTestRun(t, s, "new-run", 2, 1)
	if err := s.FinishRun(ctx, "new-run", RunResult{Status: StatusFailed}); err != nil {
		t.Fatalf("failed status rejected after migration: %v", err)
	}
	if err := s.WriteOperations(ctx, "ghost", sampleTrace()[:1]); err == nil {
		t.Error("foreign key on operations.run_id lost in migration")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	beginTestRun(t, s, "mem-run", 3, 1, 2)
	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("in-memory store lost its run: %d runs", len(runs))
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "runs.db"))
	if err == nil {
		t.Error("Open() should fail for a path in a missing directory")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on empty store: %v", err)
	}
}
