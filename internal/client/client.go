// Package client is a Go client for the survey HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/vidsurvey/internal/models"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	// Message is the server's "error" field, or the raw body when it is not JSON.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a StatusError with status 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client talks to a running survey server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the server at baseURL, e.g. "http://localhost:3001".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadVideos returns the video catalog.
func (c *Client) LoadVideos(ctx context.Context) ([]models.VideoRecord, error) {
	var videos []models.VideoRecord
	if err := c.getJSON(ctx, "/api/videos", &videos); err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}
	return videos, nil
}

// LoadNarrative returns the raw narrative text for narrativeID.
func (c *Client) LoadNarrative(ctx context.Context, narrativeID string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/narrative/"+url.PathEscape(narrativeID), nil)
	if err != nil {
		return "", fmt.Errorf("load narrative %s: %w", narrativeID, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("load narrative %s: %w", narrativeID, err)
	}
	return string(b), nil
}

// LoadAtomicFacts returns the atomic facts for videoID.
func (c *Client) LoadAtomicFacts(ctx context.Context, videoID string) ([]string, error) {
	var out models.FactsResponse
	if err := c.getJSON(ctx, "/api/atomic-facts/"+url.PathEscape(videoID), &out); err != nil {
		return nil, fmt.Errorf("load atomic facts %s: %w", videoID, err)
	}
	if out.Facts == nil {
		out.Facts = []string{}
	}
	return out.Facts, nil
}

// LoadUserResponses returns every stored response for username.
// A user with no responses yields an empty map, not an error.
func (c *Client) LoadUserResponses(ctx context.Context, username string) (models.UserResponses, error) {
	var out models.UserResponses
	err := c.getJSON(ctx, "/api/responses/"+url.PathEscape(username), &out)
	if IsNotFound(err) {
		return models.UserResponses{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load responses for %s: %w", username, err)
	}
	if out == nil {
		out = models.UserResponses{}
	}
	return out, nil
}

// SaveUserResponse stores payload as username's response for videoID.
func (c *Client) SaveUserResponse(ctx context.Context, username, videoID string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	path := "/api/responses/" + url.PathEscape(username) + "/" + url.PathEscape(videoID)
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("save response for %s/%s: %w", username, videoID, err)
	}
	defer resp.Body.Close()
	var out models.SaveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode save response: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("save response for %s/%s: server did not report success", username, videoID)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends the request and returns the response when the status is 2xx.
// Other statuses are consumed and returned as *StatusError.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	se := &StatusError{StatusCode: resp.StatusCode}
	var er models.ErrorResponse
	if json.Unmarshal(b, &er) == nil && er.Error != "" {
		se.Message = er.Error
	} else {
		se.Message = strings.TrimSpace(string(b))
	}
	return nil, se
}
