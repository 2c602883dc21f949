// Package content reads narrative texts and atomic-fact lists from the data directory.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/vidsurvey/internal/ids"
)

// Directory names under the data directory.
const (
	NarrativesDir   = "Narratives"
	AtomicFactsDir  = "Atomic Facts"
	narrativeFormat = "narrative_%s.txt"
	factsFormat     = "atomic_facts_%s.txt"
)

// ErrNotFound is returned when the content file for a valid identifier does not exist.
var ErrNotFound = errors.New("content not found")

// Reader resolves identifiers to files under a data directory.
type Reader struct {
	dataDir string
}

// NewReader returns a Reader rooted at dataDir.
func NewReader(dataDir string) *Reader {
	return &Reader{dataDir: dataDir}
}

// NarrativePath returns the file backing narrativeID.
func (r *Reader) NarrativePath(narrativeID string) (string, error) {
	key, err := ids.Narrative(narrativeID)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.dataDir, NarrativesDir, fmt.Sprintf(narrativeFormat, key)), nil
}

// AtomicFactsPath returns the file backing the atomic facts of videoID.
func (r *Reader) AtomicFactsPath(videoID string) (string, error) {
	key, err := ids.Video(videoID)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.dataDir, AtomicFactsDir, fmt.Sprintf(factsFormat, key)), nil
}

// Narrative returns the raw text of narrativeID, byte for byte.
func (r *Reader) Narrative(ctx context.Context, narrativeID string) (string, error) {
	path, err := r.NarrativePath(narrativeID)
	if err != nil {
		return "", err
	}
	data, err := readFile(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AtomicFacts returns the non-blank, trimmed lines of videoID's fact file in file order.
func (r *Reader) AtomicFacts(ctx context.Context, videoID string) ([]string, error) {
	path, err := r.AtomicFactsPath(videoID)
	if err != nil {
		return nil, err
	}
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return SplitFacts(string(data)), nil
}

// SplitFacts splits s on newlines, trims each line, and drops empty ones.
func SplitFacts(s string) []string {
	facts := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			facts = append(facts, line)
		}
	}
	return facts
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}
