package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"implicit ok", 0, "level=INFO"},
		{"created", http.StatusCreated, "level=INFO"},
		{"client error", http.StatusNotFound, "level=WARN"},
		{"server error", http.StatusBadGateway, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			handler := middleware.RequestID(requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte("ok"))
			})))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/syncs", nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, "method=POST")
			assert.Contains(t, out, "path=/api/v1/syncs")
			assert.Contains(t, out, "bytes=2")
			assert.Contains(t, out, "request_id=")
		})
	}
}
