// internal/handler/response.go
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string         `json:"error"`
	Kind  appErrors.Kind `json:"kind"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError maps err to a status code by kind. Internal errors are logged
// and their message is not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := appErrors.KindOf(err)
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch kind {
	case appErrors.KindValidation:
		status, msg = http.StatusBadRequest, err.Error()
	case appErrors.KindNotFound:
		status, msg = http.StatusNotFound, err.Error()
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	WriteJSON(w, status, ErrorBody{Error: msg, Kind: kind})
}

// DecodeJSON reads a JSON request body into v. Malformed bodies are
// validation errors.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return appErrors.NewInvalidArgument("body", "request body is empty")
		}
		return appErrors.NewInvalidArgument("body", err.Error())
	}
	return nil
}

func chiParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// IDParam parses a snowflake id from a chi URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chiParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.NewInvalidArgument(name, "must be a positive integer id")
	}
	return id, nil
}

// IntQuery parses an optional integer query parameter; absent means 0.
func IntQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.NewInvalidArgument(name, "must be an integer")
	}
	if n == 0 {
		return 0, appErrors.NewInvalidArgument(name, "must be at least 1")
	}
	return n, nil
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
