package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrPartialGraph):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request error", slog.String("path", r.URL.Path), slog.Any("error", err))
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", entities.ErrInvalidRequest, err)
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", entities.ErrInvalidRequest, key)
	}
	return n, nil
}
