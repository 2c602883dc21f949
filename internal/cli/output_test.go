package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperjump/vidsurvey/internal/models"
)

func TestDetectFormat(t *testing.T) {
	var buf bytes.Buffer
	if got := DetectFormat(&buf, false); got != OutputJSON {
		t.Errorf("non-terminal writer: got %q, want json", got)
	}
	if got := DetectFormat(&buf, true); got != OutputJSON {
		t.Errorf("forced: got %q, want json", got)
	}
}

func TestWriteVideos_JSON(t *testing.T) {
	videos := []models.VideoRecord{{"VideoID": "video_01", "Title": "A"}}
	var buf bytes.Buffer
	if err := WriteVideos(&buf, videos, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded []models.VideoRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(videos, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteVideos_Table(t *testing.T) {
	videos := []models.VideoRecord{
		{"VideoID": "video_01", "Title": "First", "Duration": "12"},
		{"VideoID": "video_02", "Title": strings.Repeat("x", 100)},
	}
	var buf bytes.Buffer
	if err := WriteVideos(&buf, videos, OutputTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"DURATION", "TITLE", "video_01", "First", "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("x", maxCellWidth+1)) {
		t.Error("long cells should be truncated")
	}
}

func TestVideoColumns(t *testing.T) {
	got := videoColumns([]models.VideoRecord{
		{"VideoID": "1", "Title": "a"},
		{"VideoID": "2", "Author": "b"},
	})
	want := []string{"VideoID", "Author", "Title"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFacts(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFacts(&buf, []string{"fact A", "fact B"}, OutputTable); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "fact B") {
		t.Errorf("table missing fact:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteFacts(&buf, []string{"fact A"}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.FactsResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Facts) != 1 || decoded.Facts[0] != "fact A" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteResponses_Table(t *testing.T) {
	responses := models.UserResponses{
		"video_2": {"rating": 2, "timestamp": "2025-06-01T08:00:01.000Z"},
		"video_1": {"rating": 4, "timestamp": "2025-06-01T08:00:00.000Z"},
	}
	var buf bytes.Buffer
	if err := WriteResponses(&buf, responses, OutputTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	first, second := strings.Index(out, "video_1"), strings.Index(out, "video_2")
	if first < 0 || second < 0 || first > second {
		t.Errorf("rows should be ordered by video ID:\n%s", out)
	}
	if !strings.Contains(out, `{"rating":4}`) {
		t.Errorf("answer column should omit the timestamp:\n%s", out)
	}
}

func TestWriteResponses_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponses(&buf, models.UserResponses{}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "{}" {
		t.Errorf("got %q", buf.String())
	}
}
