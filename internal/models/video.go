// Package models defines the catalog, content, and survey response types shared
// by the server, storage backends, and API client.
package models

import "strings"

// VideoIDField is the catalog column that identifies a video.
const VideoIDField = "VideoID"

// VideoRecord is one catalog row keyed by column header. The column set is open;
// only VideoIDField is required.
type VideoRecord map[string]string

// ID returns the trimmed VideoID value, or "" when the column is missing.
func (v VideoRecord) ID() string {
	return strings.TrimSpace(v[VideoIDField])
}

// FactsResponse is the body of GET /api/atomic-facts/{videoId}.
type FactsResponse struct {
	Facts []string `json:"facts"`
}

// SaveResponse is the body returned after a response is recorded.
type SaveResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}
