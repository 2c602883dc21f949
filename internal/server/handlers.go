package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/vidsurvey/internal/content"
	"github.com/hyperjump/vidsurvey/internal/ids"
	"github.com/hyperjump/vidsurvey/internal/models"
	"github.com/hyperjump/vidsurvey/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalog.Load(r.Context())
	if err != nil {
		s.logFailure(r, "failed to load videos", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load videos")
		return
	}
	s.respondJSON(w, http.StatusOK, videos)
}

func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "narrativeId")
	text, err := s.content.Narrative(r.Context(), id)
	switch {
	case errors.Is(err, ids.ErrInvalidIdentifier):
		s.respondError(w, http.StatusBadRequest, "Invalid narrative ID")
		return
	case errors.Is(err, content.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "Narrative not found")
		return
	case err != nil:
		s.logFailure(r, "failed to load narrative", err, zap.String("narrative_id", id))
		s.respondError(w, http.StatusInternalServerError, "Failed to load narrative")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleAtomicFacts(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "videoId")
	facts, err := s.content.AtomicFacts(r.Context(), id)
	switch {
	case errors.Is(err, ids.ErrInvalidIdentifier):
		s.respondError(w, http.StatusBadRequest, "Invalid video ID")
		return
	case errors.Is(err, content.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "Atomic facts not found")
		return
	case err != nil:
		s.logFailure(r, "failed to load atomic facts", err, zap.String("video_id", id))
		s.respondError(w, http.StatusInternalServerError, "Failed to load atomic facts")
		return
	}
	s.respondJSON(w, http.StatusOK, models.FactsResponse{Facts: facts})
}

func (s *Server) handleGetResponses(w http.ResponseWriter, r *http.Request) {
	username := urlParam(r, "username")
	doc, err := s.store.Get(r.Context(), username)
	switch {
	case errors.Is(err, storage.ErrInvalidUsername):
		s.respondError(w, http.StatusBadRequest, "Invalid username")
		return
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "No responses found")
		return
	case err != nil:
		s.logFailure(r, "failed to load user responses", err, zap.String("username", username))
		s.respondError(w, http.StatusInternalServerError, "Failed to load user responses")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSaveResponse(w http.ResponseWriter, r *http.Request) {
	username := urlParam(r, "username")
	videoID := urlParam(r, "videoId")

	payload, err := decodePayload(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err = storage.Record(r.Context(), s.store, username, videoID, payload, s.now())
	switch {
	case errors.Is(err, storage.ErrInvalidUsername):
		s.respondError(w, http.StatusBadRequest, "Invalid username")
		return
	case err != nil:
		s.logFailure(r, "failed to save response", err, zap.String("username", username), zap.String("video_id", videoID))
		s.respondError(w, http.StatusInternalServerError, "Failed to save response")
		return
	}
	s.logger.Info("response saved", zap.String("username", username), zap.String("video_id", videoID))
	s.respondJSON(w, http.StatusOK, models.SaveResponse{Success: true})
}

// decodePayload reads a JSON object. An empty body is an empty payload; numbers keep
// their original text so they round-trip unchanged.
func decodePayload(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return payload, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if s.watch != nil {
		resp["content_revision"] = s.watch.Revision()
		if t := s.watch.LastChange(); !t.IsZero() {
			resp["content_changed_at"] = t.UTC().Format(time.RFC3339)
		}
	}
	if sp, ok := s.store.(storage.StatsProvider); ok {
		st, err := sp.Stats(r.Context())
		if err != nil {
			s.logger.Warn("health: response stats failed", zap.Error(err))
		} else {
			resp["responses"] = st
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusNotFound, "API route not found")
}

func (s *Server) handleAPIMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// urlParam returns a decoded route parameter. chi matches on the escaped path when
// the URL carries encoded separators, so such values arrive still escaped.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func (s *Server) logFailure(r *http.Request, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	s.logger.Error(msg, fields...)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}
