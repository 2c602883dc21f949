// Package cli renders API results for the vidsurvey command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/hyperjump/vidsurvey/internal/models"
	"github.com/hyperjump/vidsurvey/pkg/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputTable is a human-readable table (default on a terminal).
	OutputTable OutputFormat = "table"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// maxCellWidth bounds table cells so long narratives or answers stay on one screen.
const maxCellWidth = 60

// DetectFormat returns OutputJSON when forceJSON is set or w is not a terminal.
func DetectFormat(w io.Writer, forceJSON bool) OutputFormat {
	if forceJSON {
		return OutputJSON
	}
	f, ok := w.(*os.File)
	if !ok {
		return OutputJSON
	}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return OutputTable
	}
	return OutputJSON
}

// WriteVideos writes the catalog. The table has VideoID first and the remaining
// columns in name order.
func WriteVideos(w io.Writer, videos []models.VideoRecord, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, videos)
	}
	columns := videoColumns(videos)
	tw := newTable(w)
	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, v := range videos {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = utils.Truncate(v[c], maxCellWidth)
		}
		tw.AppendRow(row)
	}
	tw.Render()
	return nil
}

func videoColumns(videos []models.VideoRecord) []string {
	seen := map[string]bool{models.VideoIDField: true}
	var rest []string
	for _, v := range videos {
		for k := range v {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append([]string{models.VideoIDField}, rest...)
}

// WriteFacts writes a numbered list of atomic facts.
func WriteFacts(w io.Writer, facts []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, models.FactsResponse{Facts: facts})
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"#", "Fact"})
	for i, f := range facts {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), f})
	}
	tw.Render()
	return nil
}

// WriteResponses writes one row per video, ordered by video ID.
// The answer column holds the entry without its timestamp, as compact JSON.
func WriteResponses(w io.Writer, responses models.UserResponses, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, responses)
	}
	videoIDs := make([]string, 0, len(responses))
	for id := range responses {
		videoIDs = append(videoIDs, id)
	}
	sort.Strings(videoIDs)

	tw := newTable(w)
	tw.AppendHeader(table.Row{"Video", "Timestamp", "Answer"})
	for _, id := range videoIDs {
		entry := responses[id]
		answer := make(map[string]any, len(entry))
		for k, v := range entry {
			if k != models.TimestampField {
				answer[k] = v
			}
		}
		b, err := json.Marshal(answer)
		if err != nil {
			return fmt.Errorf("encode answer for %s: %w", id, err)
		}
		ts, _ := entry[models.TimestampField].(string)
		tw.AppendRow(table.Row{id, ts, utils.Truncate(string(b), maxCellWidth)})
	}
	tw.Render()
	return nil
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	return tw
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
