package api

// API limits and constants.
const (
	// APIVersion is reported in the OpenAPI document.
	APIVersion = "1.0.0"

	// MaxRunListLimit caps how many journal entries one listing returns.
	MaxRunListLimit = 200

	// DefaultRunListLimit applies when the client does not pass a limit.
	DefaultRunListLimit = 50
)
