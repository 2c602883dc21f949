package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/vidsurvey/internal/models"
)

// SQLiteStore implements Store with one row per (username, video) pair.
// Put is a single upsert, so concurrent writes to different videos never clobber each other.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		username TEXT NOT NULL,
		video_id TEXT NOT NULL,
		entry TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (username, video_id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns every entry stored for username, or ErrNotFound when there are none.
func (s *SQLiteStore) Get(ctx context.Context, username string) (models.UserResponses, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, entry FROM responses WHERE username = ? ORDER BY video_id`, username)
	if err != nil {
		return nil, fmt.Errorf("query responses for %s: %w", username, err)
	}
	defer rows.Close()

	doc := models.UserResponses{}
	for rows.Next() {
		var videoID, raw string
		if err := rows.Scan(&videoID, &raw); err != nil {
			return nil, fmt.Errorf("scan response for %s: %w", username, err)
		}
		var entry models.ResponseEntry
		if err := unmarshalNumbers([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("parse response %s/%s: %w", username, videoID, err)
		}
		doc[videoID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses for %s: %w", username, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%s: %w", username, ErrNotFound)
	}
	return doc, nil
}

// Put upserts the entry for (username, videoID).
func (s *SQLiteStore) Put(ctx context.Context, username, videoID string, entry models.ResponseEntry) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode response %s/%s: %w", username, videoID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO responses (username, video_id, entry, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(username, video_id) DO UPDATE SET
			entry = excluded.entry,
			updated_at = excluded.updated_at`,
		username, videoID, string(raw))
	if err != nil {
		return fmt.Errorf("save response %s/%s: %w", username, videoID, err)
	}
	return nil
}

// CountUsers returns the number of users with at least one stored response.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT username) FROM responses`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
