package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/faithconnect/bookstack-sync/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the versioned envelope.
// Errors become {"v":1,"success":false,"error":...,"code":...}; everything else
// is returned under "data".
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return response.Fail(apiErr.Code, apiErr.Message, apiErr.Details), nil
	}
	if env, ok := v.(response.Envelope); ok {
		return env, nil
	}
	return response.Ok(v), nil
}
