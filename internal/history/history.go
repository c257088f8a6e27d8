// Package history keeps a log of played tracks in a SQLite database so they
// can be listed and replayed later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"u2b/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS plays (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	uploader  TEXT NOT NULL DEFAULT '',
	duration  INTEGER NOT NULL DEFAULT -1,
	url       TEXT NOT NULL,
	plays     INTEGER NOT NULL DEFAULT 1,
	played_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS plays_played_at ON plays (played_at DESC);
`

// Entry is one remembered track.
type Entry struct {
	ID              string
	Title           string
	Uploader        string
	DurationSeconds int
	URL             string
	Plays           int
	PlayedAt        time.Time
}

// Store is a play history backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving history path: %w", err)
	}
	// Escaped so that '?' or '#' in the path is not read as a query or fragment.
	dsn := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "_pragma=busy_timeout(5000)"}

	db, err := sql.Open("sqlite", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// One writer at a time; SQLite serialises them anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record stores a played track, bumping its play count if it is already known.
func (s *Store) Record(ctx context.Context, d *media.StreamDescriptor) error {
	key, link := d.ID, d.WebpageURL
	if link == "" && key != "" {
		link = media.WatchURL(key)
	}
	if key == "" {
		key = link
	}
	if key == "" {
		return errors.New("history: track has neither an id nor a url")
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO plays (id, title, uploader, duration, url, plays, played_at)
VALUES (?, ?, ?, ?, ?, 1, ?)
ON CONFLICT (id) DO UPDATE SET
	title     = excluded.title,
	uploader  = excluded.uploader,
	duration  = excluded.duration,
	url       = excluded.url,
	plays     = plays + 1,
	played_at = excluded.played_at`,
		key, d.Title, d.Uploader, d.DurationSeconds, link, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("recording %s: %w", key, err)
	}
	return nil
}

// Recent returns up to limit entries, most recently played first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, uploader, duration, url, plays, played_at
FROM plays ORDER BY played_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			playedAt int64
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Uploader, &e.DurationSeconds, &e.URL, &e.Plays, &playedAt); err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		e.PlayedAt = time.Unix(0, playedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes one entry.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plays WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing %s: %w", id, err)
	}
	return nil
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plays`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// FormatForDisplay creates one display line per entry for listings.
func FormatForDisplay(entries []Entry) []string {
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s [%s]", e.Title, media.FormatDuration(e.DurationSeconds))
		if e.Uploader != "" {
			line += " by " + e.Uploader
		}
		if e.Plays > 1 {
			line += fmt.Sprintf(" (%d plays)", e.Plays)
		}
		items = append(items, line)
	}
	return items
}
