package record

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/homesim/homesim/sim"
)

// SQLite stores samples in a SQLite database, one row per (run, clock, entity, attr).
// Several runs can share one database file.
type SQLite struct {
	db    *sql.DB
	runID string
}

// OpenSQLite opens or creates the database at path and registers the run.
func OpenSQLite(path, runID string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`INSERT INTO runs(run_id, created_at) VALUES(?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register run %s: %w", runID, err)
	}
	return &SQLite{db: db, runID: runID}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL,
			clock INTEGER NOT NULL,
			entity TEXT NOT NULL,
			attr TEXT NOT NULL,
			kind TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (run_id, entity, attr, clock)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Write implements sim.Sink. Each tick is committed in its own transaction.
func (s *SQLite) Write(rec sim.TickRecord) error {
	if len(rec.Samples) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO samples(run_id, clock, entity, attr, kind, value) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, smp := range rec.Samples {
		if _, err := stmt.Exec(s.runID, rec.Clock, smp.Entity, smp.Attr, smp.Value.Kind().String(), smp.Value.Float()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s.%s: %w", smp.Entity, smp.Attr, err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Series reads back one probe of run runID, keyed by clock.
func (s *SQLite) Series(runID, entity, attr string) (map[int64]sim.Value, error) {
	rows, err := s.db.Query(`SELECT clock, kind, value FROM samples
		WHERE run_id = ? AND entity = ? AND attr = ? ORDER BY clock`, runID, entity, attr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]sim.Value)
	for rows.Next() {
		var (
			clock int64
			kind  string
			value float64
		)
		if err := rows.Scan(&clock, &kind, &value); err != nil {
			return nil, err
		}
		if kind == sim.KindBool.String() {
			out[clock] = sim.Bool(value != 0)
		} else {
			out[clock] = sim.Float(value)
		}
	}
	return out, rows.Err()
}

// RunIDs lists the runs stored in the database, oldest first.
func (s *SQLite) RunIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM runs ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
