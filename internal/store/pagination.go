package store

import (
	"encoding/base64"
	"fmt"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // Items per page (defaults to 100 with a maximum of 1000)
	Cursor string // Opaque cursor for the next page (empty for the first page)
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // Empty if no more pages
	HasMore    bool   `json:"has_more"`
}

// DefaultPaginationParams returns the first page with the default size.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: defaultPageLimit}
}

// Validate clamps the limit into range.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
}

// EncodeCursor creates an opaque cursor from the last index key of a page.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor decodes a cursor back to an index key.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid cursor: %w", err)
	}
	return string(decoded), nil
}
