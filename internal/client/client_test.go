package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperjump/vidsurvey/internal/catalog"
	"github.com/hyperjump/vidsurvey/internal/config"
	"github.com/hyperjump/vidsurvey/internal/content"
	"github.com/hyperjump/vidsurvey/internal/models"
	"github.com/hyperjump/vidsurvey/internal/server"
	"github.com/hyperjump/vidsurvey/internal/storage"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.Dir = filepath.Join(dir, "data")
	cfg.Storage.ResponsesDir = filepath.Join(dir, "responses")
	writeFile(t, cfg.Data.CatalogPath(), "VideoID,Title\nvideo_01,Intro\n")
	writeFile(t, filepath.Join(cfg.Data.Dir, content.NarrativesDir, "narrative_01.txt"), "A story.")
	writeFile(t, filepath.Join(cfg.Data.Dir, content.AtomicFactsDir, "atomic_facts_01.txt"), "one\ntwo\n")

	store, err := storage.NewStore(&cfg.Storage, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	srv := server.NewServer(
		catalog.NewReader(cfg.Data.CatalogPath(), catalog.Options{SkipMalformedRows: true}, nil),
		content.NewReader(cfg.Data.Dir),
		store,
		cfg,
		zap.NewNop(),
		server.WithClock(func() time.Time { return now }),
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func TestClient_LoadVideos(t *testing.T) {
	c := newTestClient(t)
	videos, err := c.LoadVideos(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []models.VideoRecord{{"VideoID": "video_01", "Title": "Intro"}}
	if diff := cmp.Diff(want, videos); diff != "" {
		t.Errorf("videos mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_LoadNarrative(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	text, err := c.LoadNarrative(ctx, "narrative_1")
	if err != nil {
		t.Fatal(err)
	}
	if text != "A story." {
		t.Errorf("text = %q", text)
	}

	_, err = c.LoadNarrative(ctx, "narrative_5")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Message != "Narrative not found" {
		t.Errorf("status error = %+v", se)
	}
}

func TestClient_LoadAtomicFacts(t *testing.T) {
	c := newTestClient(t)
	facts, err := c.LoadAtomicFacts(context.Background(), "video_01")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"one", "two"}, facts); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}
	_, err = c.LoadAtomicFacts(context.Background(), "bogus")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestClient_ResponsesRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	got, err := c.LoadUserResponses(ctx, "alice")
	if err != nil {
		t.Fatalf("missing user should not be an error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty map, got %#v", got)
	}

	if err := c.SaveUserResponse(ctx, "alice", "video_1", map[string]any{"rating": 4}); err != nil {
		t.Fatal(err)
	}
	got, err = c.LoadUserResponses(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	want := models.UserResponses{
		"video_1": {"rating": float64(4), "timestamp": "2025-06-01T08:00:00.000Z"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_InvalidUsername(t *testing.T) {
	c := newTestClient(t)
	err := c.SaveUserResponse(context.Background(), "a/b", "video_1", nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest || se.Message != "Invalid username" {
		t.Errorf("expected 400 Invalid username, got %v", err)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing X-Request-Id header")
		}
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).LoadVideos(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway || se.Message != "upstream broke" {
		t.Errorf("status error = %+v", se)
	}
	if IsNotFound(err) {
		t.Error("502 is not a not-found error")
	}
}

func TestClient_SaveWithoutSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.SaveResponse{Success: false})
	}))
	defer ts.Close()

	if err := New(ts.URL).SaveUserResponse(context.Background(), "bob", "video_2", nil); err == nil {
		t.Error("expected error when server does not report success")
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.LoadVideos(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
