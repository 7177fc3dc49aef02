package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/graph"
	"github.com/senpaisaul/multimodal-rag/internal/services/index"
	"github.com/senpaisaul/multimodal-rag/internal/services/ingest"
	"github.com/senpaisaul/multimodal-rag/internal/session"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// StatusForError maps pipeline errors to HTTP status codes
func StatusForError(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrDecode),
		errors.Is(err, index.ErrEmptyCorpus),
		errors.Is(err, graph.ErrNoDataPoints),
		errors.Is(err, graph.ErrInvalidSpec):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ModalityParam reads an optional modality from the query string; empty means none
func ModalityParam(r *http.Request) (*models.Modality, error) {
	return parseOptionalModality(r.URL.Query().Get("modality"))
}

// LimitParam reads a positive limit from the query string, falling back to def
func LimitParam(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func parseOptionalModality(s string) (*models.Modality, error) {
	if s == "" {
		return nil, nil
	}
	m, err := models.ParseModality(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
