// Package store persists high scores in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// HighScore is one recorded win.
type HighScore struct {
	Points     int       `json:"points"`
	Difficulty string    `json:"difficulty"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ScoreStore wraps the SQLite database holding win records.
type ScoreStore struct {
	db *sql.DB
}

// Open opens (or creates) the score database at path and runs migrations.
func Open(path string) (*ScoreStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open score database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &ScoreStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *ScoreStore) Close() error {
	return s.db.Close()
}

func (s *ScoreStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS wins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			points INTEGER NOT NULL,
			difficulty TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wins_points ON wins(points DESC, attempts ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_wins_difficulty ON wins(difficulty)`,
	}
	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// RecordWin inserts one win record.
func (s *ScoreStore) RecordWin(ctx context.Context, points int, difficulty string, attempts int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wins (points, difficulty, attempts) VALUES (?, ?, ?)`,
		points, difficulty, attempts)
	if err != nil {
		return fmt.Errorf("failed to record win: %w", err)
	}
	return nil
}

// Best returns the highest-ranked win: most points, then fewest attempts,
// then earliest. Returns a zero record (ok=false) when no wins exist.
func (s *ScoreStore) Best(ctx context.Context) (HighScore, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT points, difficulty, attempts, created_at FROM wins
		 ORDER BY points DESC, attempts ASC, created_at ASC LIMIT 1`)

	var hs HighScore
	err := row.Scan(&hs.Points, &hs.Difficulty, &hs.Attempts, &hs.CreatedAt)
	if err == sql.ErrNoRows {
		return HighScore{}, false, nil
	}
	if err != nil {
		return HighScore{}, false, fmt.Errorf("failed to query best score: %w", err)
	}
	return hs, true, nil
}

// Top returns up to n wins ordered best-first.
func (s *ScoreStore) Top(ctx context.Context, n int) ([]HighScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT points, difficulty, attempts, created_at FROM wins
		 ORDER BY points DESC, attempts ASC, created_at ASC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	scores := []HighScore{}
	for rows.Next() {
		var hs HighScore
		if err := rows.Scan(&hs.Points, &hs.Difficulty, &hs.Attempts, &hs.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		scores = append(scores, hs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("score row iteration failed: %w", err)
	}
	return scores, nil
}
