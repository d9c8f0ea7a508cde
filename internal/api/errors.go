package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
	"github.com/faithconnect/bookstack-sync/internal/service"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// SyncFailure describes where a failed sync stopped.
type SyncFailure struct {
	RunID         string `json:"run_id"`
	Step          string `json:"step"`
	LastCompleted string `json:"last_completed"`
	Entity        string `json:"entity,omitempty"`
	SourceID      int64  `json:"source_id,omitzero"`
	// DestBookID names the partial copy left on the destination.
	DestBookID    int64  `json:"destination_book_id,omitzero"`
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return toAPIError(err)
			}
		}

		// Request validation failures from huma itself.
		var details []string
		for _, err := range errs {
			if err != nil {
				details = append(details, err.Error())
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		if len(details) > 0 {
			apiErr.Details = details
		}
		return apiErr
	}
}

// toAPIError converts any error into an APIError carrying its domain code.
// Sync failures also report the step and entity they stopped at.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var syncErr *service.SyncError
	if errors.As(err, &syncErr) {
		code := syncErr.Kind()
		return &APIError{
			status:  code.HTTPStatus(),
			Code:    string(code),
			Message: syncErr.Error(),
			Details: SyncFailure{
				RunID:         syncErr.RunID,
				Step:          string(syncErr.Step),
				LastCompleted: string(syncErr.LastCompleted),
				Entity:        syncErr.Entity,
				SourceID:      syncErr.SourceID,
				DestBookID:    syncErr.DestBookID,
			},
		}
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: err.Error(),
			Details: domainErr.Details,
		}
	}

	return &APIError{
		status:  http.StatusInternalServerError,
		Code:    string(domainerrors.CodeInternal),
		Message: "internal server error",
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusMethodNotAllowed:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized, http.StatusForbidden:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusRequestTimeout:
		return string(domainerrors.CodeCanceled)
	case http.StatusBadGateway:
		return string(domainerrors.CodeServer)
	default:
		return string(domainerrors.CodeInternal)
	}
}
