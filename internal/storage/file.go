package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/hyperjump/vidsurvey/internal/models"
	"go.uber.org/zap"
)

const lockRetryDelay = 10 * time.Millisecond

// FileStore keeps each user's responses in <dir>/<username>.json.
//
// Put is a read-modify-write of the whole document. With locking disabled,
// concurrent writers for the same user can lose updates (last write wins).
type FileStore struct {
	dir          string
	lockWrites   bool
	atomicWrites bool
	logger       *zap.Logger
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLocking serializes Put per username with an advisory lock file.
func WithLocking(enabled bool) FileOption {
	return func(s *FileStore) { s.lockWrites = enabled }
}

// WithAtomicWrites writes documents to a temp file and renames it into place.
func WithAtomicWrites(enabled bool) FileOption {
	return func(s *FileStore) { s.atomicWrites = enabled }
}

// WithLogger sets the logger used for write diagnostics.
func WithLogger(l *zap.Logger) FileOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create responses directory: %w", err)
	}
	s := &FileStore{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the responses directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(username string) string {
	return filepath.Join(s.dir, username+".json")
}

// Get returns the user's document, or ErrNotFound when no document exists.
func (s *FileStore) Get(ctx context.Context, username string) (models.UserResponses, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read(username)
}

// Put sets doc[videoID] = entry, creating the document on first write.
func (s *FileStore) Put(ctx context.Context, username, videoID string, entry models.ResponseEntry) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.lockWrites {
		lock := flock.New(s.path(username) + ".lock")
		ok, err := lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("lock responses for %s: %w", username, err)
		}
		if !ok {
			return fmt.Errorf("lock responses for %s: not acquired", username)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				s.logger.Warn("failed to release response lock", zap.String("username", username), zap.Error(err))
			}
		}()
	}

	doc, err := s.read(username)
	if errors.Is(err, ErrNotFound) {
		doc = models.UserResponses{}
	} else if err != nil {
		return err
	}
	doc[videoID] = entry
	return s.write(username, doc)
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(username string) (models.UserResponses, error) {
	data, err := os.ReadFile(s.path(username))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("read responses for %s: %w", username, err)
	}
	var doc models.UserResponses
	if err := unmarshalNumbers(data, &doc); err != nil {
		return nil, fmt.Errorf("parse responses for %s: %w", username, err)
	}
	if doc == nil {
		doc = models.UserResponses{}
	}
	return doc, nil
}

func (s *FileStore) write(username string, doc models.UserResponses) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode responses for %s: %w", username, err)
	}
	target := s.path(username)
	if !s.atomicWrites {
		if err := os.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("write responses for %s: %w", username, err)
		}
		return nil
	}

	tmp := filepath.Join(s.dir, "."+username+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write responses for %s: %w", username, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace responses for %s: %w", username, err)
	}
	s.logger.Debug("responses written", zap.String("username", username), zap.Int("entries", len(doc)))
	return nil
}
