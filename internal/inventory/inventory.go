// Package inventory persists per-shard scan results in SQLite. The tier
// exporter records what each shard contained as it walks; later passes and
// the verify command query it instead of re-reading every shard.
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Shard is one archive shard's recorded scan result.
type Shard struct {
	Path      string
	Day       string // YYYY-MM-DD
	Lines     int
	Malformed int
	Usable    int
	ScannedAt time.Time
}

// Store is a SQLite-backed shard inventory.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS shards (
	path       TEXT PRIMARY KEY,
	day        TEXT NOT NULL,
	lines      INTEGER NOT NULL,
	malformed  INTEGER NOT NULL,
	usable     INTEGER NOT NULL,
	scanned_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shards_day ON shards(day);
`

// Open opens (or creates) the inventory database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening inventory db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating inventory schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert records one shard's scan result, replacing any previous row for
// the same path. Re-scans therefore converge instead of accumulating.
func (s *Store) Upsert(ctx context.Context, sh Shard) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shards (path, day, lines, malformed, usable, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			day = excluded.day,
			lines = excluded.lines,
			malformed = excluded.malformed,
			usable = excluded.usable,
			scanned_at = excluded.scanned_at`,
		sh.Path, sh.Day, sh.Lines, sh.Malformed, sh.Usable,
		sh.ScannedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting shard %s: %w", sh.Path, err)
	}
	return nil
}

// ByDay returns the recorded shards for one calendar day, ordered by path.
func (s *Store) ByDay(ctx context.Context, day string) ([]Shard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, day, lines, malformed, usable, scanned_at
		FROM shards WHERE day = ? ORDER BY path`, day)
	if err != nil {
		return nil, fmt.Errorf("querying shards for %s: %w", day, err)
	}
	defer rows.Close()
	return scanShards(rows)
}

// Days returns every distinct calendar day in the inventory, ascending.
func (s *Store) Days(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT day FROM shards ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("querying inventory days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// Totals returns the summed line/malformed/usable counts across the whole
// inventory.
func (s *Store) Totals(ctx context.Context) (lines, malformed, usable int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(lines), 0), COALESCE(SUM(malformed), 0), COALESCE(SUM(usable), 0)
		FROM shards`)
	if err := row.Scan(&lines, &malformed, &usable); err != nil {
		return 0, 0, 0, fmt.Errorf("summing inventory: %w", err)
	}
	return lines, malformed, usable, nil
}

func scanShards(rows *sql.Rows) ([]Shard, error) {
	var out []Shard
	for rows.Next() {
		var sh Shard
		var scannedAt string
		if err := rows.Scan(&sh.Path, &sh.Day, &sh.Lines, &sh.Malformed, &sh.Usable, &scannedAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, scannedAt); err == nil {
			sh.ScannedAt = ts
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}
