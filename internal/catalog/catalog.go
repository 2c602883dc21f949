// Package catalog loads the video catalog from a CSV or XLSX file.
package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/vidsurvey/internal/models"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Options controls how rows are parsed.
type Options struct {
	// SkipMalformedRows drops rows that fail to parse or whose field count differs
	// from the header. When false, such a row fails the whole load.
	SkipMalformedRows bool
}

// ErrMalformedRow is wrapped by errors for rows rejected when SkipMalformedRows is false.
var ErrMalformedRow = errors.New("malformed catalog row")

// Reader loads the catalog file fresh on every call.
type Reader struct {
	path   string
	opts   Options
	logger *zap.Logger
}

// NewReader returns a Reader for the catalog at path. logger may be nil.
func NewReader(path string, opts Options, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{path: path, opts: opts, logger: logger}
}

// Path returns the catalog file path.
func (r *Reader) Path() string {
	return r.path
}

// Load reads and parses the catalog. Rows with a blank VideoID are excluded.
func (r *Reader) Load(ctx context.Context) ([]models.VideoRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if strings.EqualFold(filepath.Ext(r.path), ".xlsx") {
		return ParseXLSX(data, r.opts, r.logger)
	}
	return ParseCSV(bytes.NewReader(data), r.opts, r.logger)
}

// ParseCSV parses CSV catalog content. A leading byte-order mark is stripped and the
// first row supplies the column names.
func ParseCSV(src io.Reader, opts Options, logger *zap.Logger) ([]models.VideoRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cr := csv.NewReader(transform.NewReader(src, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.VideoRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	b := newBuilder(header, opts, logger)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("read catalog: %w", err)
			}
			if rejectErr := b.reject(pe.StartLine, pe.Err.Error()); rejectErr != nil {
				return nil, rejectErr
			}
			continue
		}
		line, _ := cr.FieldPos(0)
		if err := b.add(row, line, false); err != nil {
			return nil, err
		}
	}
	return b.records, nil
}

type builder struct {
	header  []string
	opts    Options
	logger  *zap.Logger
	records []models.VideoRecord
}

func newBuilder(header []string, opts Options, logger *zap.Logger) *builder {
	return &builder{
		header:  header,
		opts:    opts,
		logger:  logger,
		records: []models.VideoRecord{},
	}
}

// add appends row. When padShort is set, rows shorter than the header are padded
// with empty values instead of being treated as malformed.
func (b *builder) add(row []string, line int, padShort bool) error {
	if len(row) > len(b.header) || (len(row) < len(b.header) && !padShort) {
		return b.reject(line, fmt.Sprintf("got %d fields, header has %d", len(row), len(b.header)))
	}
	rec := make(models.VideoRecord, len(b.header))
	for i, col := range b.header {
		if i < len(row) {
			rec[col] = row[i]
		} else {
			rec[col] = ""
		}
	}
	if rec.ID() == "" {
		return nil
	}
	b.records = append(b.records, rec)
	return nil
}

func (b *builder) reject(line int, reason string) error {
	if !b.opts.SkipMalformedRows {
		return fmt.Errorf("line %d: %s: %w", line, reason, ErrMalformedRow)
	}
	b.logger.Debug("skipping malformed catalog row", zap.Int("line", line), zap.String("reason", reason))
	return nil
}
