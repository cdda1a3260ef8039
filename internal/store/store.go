// Package store persists ffprobe reports in SQLite so unchanged files are
// not analyzed twice.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the probe cache. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Record is one cached report. Report is opaque to the store.
type Record struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Report   []byte
	ProbedAt time.Time
}

// Open creates a Store at dbPath, creating tables if needed.
// ":memory:" gives a private in-process database; each call gets its own.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// pooled connections share the named database, other Opens do not
		connStr = "file:mx-" + uuid.NewString() + "?mode=memory&cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS probes (
		path TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		report BLOB NOT NULL,
		probed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_probes_probed ON probes(probed_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database. Waits for in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get returns the cached report for path when size and modTime still match.
// A stale or missing row is a miss, not an error.
func (s *Store) Get(path string, size int64, modTime time.Time) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		cachedSize int64
		cachedMod  int64
		report     []byte
	)
	err := s.db.QueryRow(
		"SELECT size, mod_time, report FROM probes WHERE path = ?", path,
	).Scan(&cachedSize, &cachedMod, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query probe %s: %w", path, err)
	}
	if cachedSize != size || cachedMod != modTime.UnixNano() {
		return nil, false, nil
	}
	return report, true, nil
}

// Put stores or replaces the report for path.
func (s *Store) Put(path string, size int64, modTime time.Time, report []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO probes (path, size, mod_time, report, probed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			report = excluded.report,
			probed_at = excluded.probed_at
	`, path, size, modTime.UnixNano(), report, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save probe %s: %w", path, err)
	}
	return nil
}

// Forget drops the cached report for path.
func (s *Store) Forget(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM probes WHERE path = ?", path)
	return err
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT path, size, mod_time, report, probed_at
		FROM probes
		ORDER BY probed_at DESC, path
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r             Record
			mod, probedAt int64
		)
		if err := rows.Scan(&r.Path, &r.Size, &mod, &r.Report, &probedAt); err != nil {
			return nil, err
		}
		r.ModTime = time.Unix(0, mod)
		r.ProbedAt = time.Unix(0, probedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of cached reports.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM probes").Scan(&n)
	return n, err
}

// Purge removes every cached report and returns how many were removed.
func (s *Store) Purge() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM probes")
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
