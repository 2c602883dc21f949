package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

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

// startTestServer serves a small data set and returns its URL.
func startTestServer(t *testing.T) string {
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
	return ts.URL
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "vidsurvey version dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestVideosCommand(t *testing.T) {
	url := startTestServer(t)
	out, err := runCLI(t, "", "videos", "--server", url)
	if err != nil {
		t.Fatal(err)
	}
	var videos []models.VideoRecord
	if err := json.Unmarshal([]byte(out), &videos); err != nil {
		t.Fatalf("non-terminal output should be JSON: %v\n%s", err, out)
	}
	if len(videos) != 1 || videos[0].ID() != "video_01" {
		t.Errorf("videos = %v", videos)
	}
}

func TestNarrativeCommand(t *testing.T) {
	url := startTestServer(t)
	out, err := runCLI(t, "", "narrative", "narrative_1", "--server", url)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got["text"] != "A story." || got["narrative_id"] != "narrative_1" {
		t.Errorf("got %v", got)
	}

	_, err = runCLI(t, "", "narrative", "narrative_9", "--server", url)
	if err == nil || !strings.Contains(err.Error(), "Narrative not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestFactsCommand(t *testing.T) {
	url := startTestServer(t)
	out, err := runCLI(t, "", "facts", "video_1", "--server", url, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got models.FactsResponse
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Facts) != 2 || got.Facts[1] != "two" {
		t.Errorf("facts = %v", got.Facts)
	}
}

func TestRespondThenResponses(t *testing.T) {
	url := startTestServer(t)

	out, err := runCLI(t, "", "responses", "alice", "--server", url)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "{}" {
		t.Errorf("unknown user should print an empty object, got %q", out)
	}

	if _, err := runCLI(t, "", "respond", "alice", "video_1", "--data", `{"rating":4}`, "--server", url); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, `{"rating":2}`, "respond", "alice", "video_2", "--data", "-", "--server", url); err != nil {
		t.Fatal(err)
	}

	out, err = runCLI(t, "", "responses", "alice", "--server", url)
	if err != nil {
		t.Fatal(err)
	}
	var got models.UserResponses
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["video_2"]["rating"] != float64(2) {
		t.Errorf("responses = %v", got)
	}
	if got["video_1"][models.TimestampField] != "2025-06-01T08:00:00.000Z" {
		t.Errorf("timestamp = %v", got["video_1"][models.TimestampField])
	}
}

func TestRespondRejectsNonObject(t *testing.T) {
	if _, err := runCLI(t, "", "respond", "alice", "video_1", "--data", "[1]", "--server", "http://127.0.0.1:1"); err == nil {
		t.Error("expected error for non-object payload")
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		data    string
		wantLen int
		wantErr bool
	}{
		{"default", "", "{}", 0, false},
		{"blank", "", "  ", 0, false},
		{"object", "", `{"a":1,"b":"x"}`, 2, false},
		{"null", "", "null", 0, false},
		{"stdin", `{"a":true}`, "-", 1, false},
		{"array", "", "[]", 0, true},
		{"garbage", "", "{", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePayload(strings.NewReader(tt.stdin), tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (got == nil || len(got) != tt.wantLen) {
				t.Errorf("got %v, want %d keys", got, tt.wantLen)
			}
		})
	}
}

func TestResolveServeConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	writeFile(t, configPath, "server:\n  port: 4000\ndata:\n  dir: ./content\n")

	env := map[string]string{"PORT": "5000", "NODE_ENV": "production"}
	getenv := func(k string) string { return env[k] }

	t.Run("env overrides file", func(t *testing.T) {
		cmd := newServeCommand(&globalFlags{})
		cfg, err := resolveServeConfig(cmd, configPath, getenv)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Port != 5000 || !cfg.Server.Production {
			t.Errorf("server = %+v", cfg.Server)
		}
		if cfg.Data.Dir != filepath.Join(dir, "content") {
			t.Errorf("data dir = %q", cfg.Data.Dir)
		}
	})

	t.Run("flags override env", func(t *testing.T) {
		cmd := newServeCommand(&globalFlags{})
		if err := cmd.Flags().Parse([]string{"--port", "6000", "--production=false"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := resolveServeConfig(cmd, configPath, getenv)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Port != 6000 || cfg.Server.Production {
			t.Errorf("server = %+v", cfg.Server)
		}
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		cmd := newServeCommand(&globalFlags{})
		cfg, err := resolveServeConfig(cmd, filepath.Join(dir, "absent.yaml"), func(string) string { return "" })
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Port != config.DefaultPort {
			t.Errorf("port = %d", cfg.Server.Port)
		}
	})

	t.Run("bad PORT", func(t *testing.T) {
		cmd := newServeCommand(&globalFlags{})
		_, err := resolveServeConfig(cmd, configPath, func(k string) string {
			if k == "PORT" {
				return "abc"
			}
			return ""
		})
		if err == nil {
			t.Error("expected error for non-numeric PORT")
		}
	})
}
