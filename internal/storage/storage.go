// Package storage persists per-user survey responses.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/vidsurvey/internal/config"
	"github.com/hyperjump/vidsurvey/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by Get when the user has no stored responses.
	ErrNotFound = errors.New("no responses found")
	// ErrInvalidUsername is returned for usernames that cannot name a document.
	ErrInvalidUsername = errors.New("invalid username")
)

// Store reads and writes one response document per user.
// Put replaces the entry for videoID and leaves other entries untouched.
type Store interface {
	Get(ctx context.Context, username string) (models.UserResponses, error)
	Put(ctx context.Context, username, videoID string, entry models.ResponseEntry) error
	Close() error
}

// Record stamps payload with now and stores it as username's response for videoID.
func Record(ctx context.Context, s Store, username, videoID string, payload map[string]any, now time.Time) (models.ResponseEntry, error) {
	entry := models.NewResponseEntry(payload, now)
	if err := s.Put(ctx, username, videoID, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ValidateUsername rejects names that are empty or could escape the responses directory.
func ValidateUsername(username string) error {
	switch {
	case username == "", username == ".", username == "..":
		return ErrInvalidUsername
	case strings.ContainsAny(username, "/\\\x00"):
		return ErrInvalidUsername
	}
	return nil
}

// NewStore builds the backend selected by cfg.Backend.
func NewStore(cfg *config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.ResponsesDir,
			WithLocking(cfg.LockWritesOrDefault()),
			WithAtomicWrites(cfg.AtomicWritesOrDefault()),
			WithLogger(logger),
		)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// unmarshalNumbers decodes data keeping numbers as json.Number so stored values
// are written back exactly as they were received.
func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
