package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faithconnect/bookstack-sync/internal/bookstack"
)

func (s *Server) registerInstanceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listInstances",
		Method:      http.MethodGet,
		Path:        "/api/v1/instances",
		Summary:     "List instances",
		Description: "Returns the configured source and destination instances. Token secrets are never returned.",
		Tags:        []string{"Instances"},
	}, s.handleListInstances)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyInstance",
		Method:      http.MethodPost,
		Path:        "/api/v1/instances/{side}/verify",
		Summary:     "Verify instance credentials",
		Description: "Performs an authenticated read against one instance. A rejected token fails with AUTH, an unreachable instance with TRANSPORT.",
		Tags:        []string{"Instances"},
	}, s.handleVerifyInstance)
}

// InstanceResponse describes one configured instance.
type InstanceResponse struct {
	Side    string `json:"side" doc:"source or destination"`
	BaseURL string `json:"base_url" doc:"Instance base URL"`
}

// ListInstancesOutput wraps the instance list for Huma.
type ListInstancesOutput struct {
	Body []InstanceResponse
}

// VerifyInstanceInput selects the instance to verify.
type VerifyInstanceInput struct {
	Side string `path:"side" enum:"source,destination" doc:"Which instance to verify"`
}

// VerifyInstanceResponse reports a successful credential check.
type VerifyInstanceResponse struct {
	Side      string    `json:"side" doc:"source or destination"`
	BaseURL   string    `json:"base_url" doc:"Instance base URL"`
	Verified  bool      `json:"verified" doc:"Always true; failures are returned as errors"`
	CheckedAt time.Time `json:"checked_at" doc:"When the check completed"`
}

// VerifyInstanceOutput wraps the verify response for Huma.
type VerifyInstanceOutput struct {
	Body VerifyInstanceResponse
}

func (s *Server) handleListInstances(_ context.Context, _ *struct{}) (*ListInstancesOutput, error) {
	out := make([]InstanceResponse, 0, 2)
	for _, side := range []bookstack.Side{bookstack.SideSource, bookstack.SideDestination} {
		if u, ok := s.services.Instances[side]; ok {
			out = append(out, InstanceResponse{Side: string(side), BaseURL: u})
		}
	}
	return &ListInstancesOutput{Body: out}, nil
}

func (s *Server) handleVerifyInstance(ctx context.Context, input *VerifyInstanceInput) (*VerifyInstanceOutput, error) {
	side, err := bookstack.ParseSide(input.Side)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	if err := s.services.Sync.VerifyCredentials(ctx, side); err != nil {
		s.logger.Warn("Instance verification failed", "side", side, "error", err)
		return nil, toAPIError(err)
	}

	return &VerifyInstanceOutput{
		Body: VerifyInstanceResponse{
			Side:      string(side),
			BaseURL:   s.services.Instances[side],
			Verified:  true,
			CheckedAt: time.Now().UTC(),
		},
	}, nil
}
