// Package response provides the versioned JSON envelope shared by every API response,
// plus helpers for handlers that write outside huma (router fallbacks, middleware).
package response

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
)

// Version is the envelope format version clients check before parsing.
const Version = 1

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Ok wraps data in a success envelope.
func Ok(data any) Envelope {
	return Envelope{Version: Version, Success: true, Data: data}
}

// Fail builds an error envelope. error and message carry the same text so
// simple clients can read error while detailed ones use code and details.
func Fail(code, message string, details any) Envelope {
	return Envelope{
		Version: Version,
		Error:   message,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// JSON writes env with the given status code using json/v2.
func JSON(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.MarshalWrite(w, env); err != nil {
		if logger != nil {
			logger.Error("Failed to encode JSON response", "error", err)
		}
	}
}

// Error writes an error envelope with the given status and machine-readable code.
func Error(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	JSON(w, status, Fail(code, message, nil), logger)
}

// NotFound writes a 404 for unknown routes.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, "NOT_FOUND", message, logger)
}

// MethodNotAllowed writes a 405 for known routes hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusMethodNotAllowed, "VALIDATION", message, logger)
}

// TooManyRequests writes a 429 and tells the client when to retry.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	w.Header().Set("Retry-After", "1")
	Error(w, http.StatusTooManyRequests, "RATE_LIMITED", message, logger)
}
