package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

// Derived describes one cached compression result. The JPEG itself lives in Filesystem.
type Derived struct {
	Key          string
	Backend      string
	Quality      int
	MaxWidth     int
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	SourceSize   int64
	FileSize     int64
	CreatedAt    int64
	AccessedAt   int64
	Hits         int64
}

type Stats struct {
	Entries     int64
	TotalBytes  int64
	TotalHits   int64
	SourceBytes int64
}

func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "squeeze.db")
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS derived (
		key TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		quality INTEGER NOT NULL,
		max_width INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		source_width INTEGER NOT NULL,
		source_height INTEGER NOT NULL,
		source_size INTEGER NOT NULL,
		file_size INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_derived_accessed ON derived(accessed_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}

	// Migration: add hits column if missing
	_, err := db.conn.Exec(`ALTER TABLE derived ADD COLUMN hits INTEGER NOT NULL DEFAULT 0`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column") {
		return fmt.Errorf("migrate hits: %w", err)
	}

	return nil
}

const derivedColumns = `key, backend, quality, max_width, width, height, source_width, source_height,
	source_size, file_size, created_at, accessed_at, hits`

func scanDerived(row interface{ Scan(...any) error }) (*Derived, error) {
	d := &Derived{}
	err := row.Scan(&d.Key, &d.Backend, &d.Quality, &d.MaxWidth, &d.Width, &d.Height,
		&d.SourceWidth, &d.SourceHeight, &d.SourceSize, &d.FileSize, &d.CreatedAt, &d.AccessedAt, &d.Hits)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// InsertDerived stores d, replacing any row with the same key.
func (db *DB) InsertDerived(d *Derived) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO derived (`+derivedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Key, d.Backend, d.Quality, d.MaxWidth, d.Width, d.Height, d.SourceWidth, d.SourceHeight,
		d.SourceSize, d.FileSize, d.CreatedAt, d.AccessedAt, d.Hits)
	return err
}

// GetDerived returns nil, nil when key is not cached.
func (db *DB) GetDerived(key string) (*Derived, error) {
	row := db.conn.QueryRow(`SELECT `+derivedColumns+` FROM derived WHERE key = ?`, key)
	d, err := scanDerived(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// TouchDerived records a cache hit at ts.
func (db *DB) TouchDerived(key string, ts int64) error {
	_, err := db.conn.Exec("UPDATE derived SET accessed_at = ?, hits = hits + 1 WHERE key = ?", ts, key)
	return err
}

func (db *DB) DeleteDerived(key string) error {
	_, err := db.conn.Exec("DELETE FROM derived WHERE key = ?", key)
	return err
}

// GetOldestDerived lists entries least recently accessed first.
func (db *DB) GetOldestDerived(limit int) ([]*Derived, error) {
	rows, err := db.conn.Query(`SELECT `+derivedColumns+` FROM derived ORDER BY accessed_at ASC, key ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Derived
	for rows.Next() {
		d, err := scanDerived(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, d)
	}
	return entries, rows.Err()
}

func (db *DB) GetTotalSize() (int64, error) {
	var total int64
	err := db.conn.QueryRow("SELECT COALESCE(SUM(file_size), 0) FROM derived").Scan(&total)
	return total, err
}

func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(file_size), 0), COALESCE(SUM(hits), 0), COALESCE(SUM(source_size), 0)
		FROM derived`).Scan(&s.Entries, &s.TotalBytes, &s.TotalHits, &s.SourceBytes)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
