package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health with component checks. Instances are not contacted; use the verify endpoint for that.",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Version    string                     `json:"version" doc:"API version"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"journal": s.checkJournal(ctx),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Version:    APIVersion,
			Components: components,
		},
	}, nil
}

// checkJournal verifies the run journal database is readable.
func (s *Server) checkJournal(ctx context.Context) ComponentHealth {
	// Handle nil store (journal disabled)
	if s.services == nil || s.services.Store == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "run journal not configured",
		}
	}

	start := time.Now()
	err := s.services.Store.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "journal read failed",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}
