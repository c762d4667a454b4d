package digest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SeenStore tracks video IDs that already went into a digest, so
// consecutive runs do not re-summarize the same uploads.
type SeenStore struct {
	db *sql.DB
}

// OpenSeenStore opens (or creates) the SQLite seen-video database.
func OpenSeenStore(path string) (*SeenStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("seen store: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("seen store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS seen_videos (
		video_id TEXT PRIMARY KEY,
		title    TEXT,
		seen_at  TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("seen store: init schema: %w", err)
	}
	return &SeenStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SeenStore) Close() error {
	return s.db.Close()
}

// Has reports whether a video ID was already digested.
func (s *SeenStore) Has(ctx context.Context, videoID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM seen_videos WHERE video_id = ?`, videoID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seen store: query: %w", err)
	}
	return true, nil
}

// FilterNew returns the candidates not yet present in the store,
// preserving input order.
func (s *SeenStore) FilterNew(ctx context.Context, candidates []VideoCandidate) ([]VideoCandidate, error) {
	fresh := make([]VideoCandidate, 0, len(candidates))
	for _, c := range candidates {
		seen, err := s.Has(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if !seen {
			fresh = append(fresh, c)
		}
	}
	return fresh, nil
}

// MarkAll records candidates as digested. Called only after a successful
// generation so a failed run can retry the same videos.
func (s *SeenStore) MarkAll(ctx context.Context, candidates []VideoCandidate) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range candidates {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO seen_videos (video_id, title, seen_at) VALUES (?, ?, ?)`,
			c.ID, c.Title, now)
		if err != nil {
			return fmt.Errorf("seen store: mark %s: %w", c.ID, err)
		}
	}
	return nil
}
