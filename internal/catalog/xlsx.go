package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hyperjump/vidsurvey/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ParseXLSX parses the first sheet of an Excel workbook with the same rules as ParseCSV.
// Trailing empty cells are trimmed by excelize, so short rows are padded rather than rejected.
func ParseXLSX(content []byte, opts Options, logger *zap.Logger) ([]models.VideoRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []models.VideoRecord{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return []models.VideoRecord{}, nil
	}
	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	b := newBuilder(header, opts, logger)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		if err := b.add(row, i+2, true); err != nil {
			return nil, err
		}
	}
	return b.records, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
