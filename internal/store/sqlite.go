package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processed_postings (
    id          TEXT PRIMARY KEY,
    recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite is the default store. synchronous=FULL makes every committed
// insert durable before Record returns.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := "file:" + path + "?" + url.Values{
		"_pragma": []string{"busy_timeout(5000)", "journal_mode(WAL)", "synchronous(FULL)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Contains(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM processed_postings WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check posting %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLite) Record(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO processed_postings (id) VALUES (?)`, id); err != nil {
		return fmt.Errorf("failed to record posting %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM processed_postings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count postings: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
