package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/gem-engine/internal/services"
)

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// maxBodyBytes bounds request bodies; turn history is the largest payload.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response", "error", err, "status", status)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// requireMethod answers 405 and returns false unless r uses method.
func requireMethod(w http.ResponseWriter, r *http.Request, logger *slog.Logger, method string) bool {
	if r.Method == method {
		return true
	}
	logger.Warn("Method not allowed",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)
	w.Header().Set("Allow", method)
	writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed. Only "+method+" is supported.")
	return false
}

// decodeBody decodes a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Warn("Invalid request body", "error", err, "path", r.URL.Path)
		writeError(w, logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// mediaStatus maps an image or audio generation error onto an HTTP status.
func mediaStatus(err error) int {
	if status, ok := services.UpstreamStatus(err); ok {
		return status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
