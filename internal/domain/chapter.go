package domain

import "time"

// Chapter groups pages inside a book.
type Chapter struct {
	ID              int64         `json:"id"`
	BookID          int64         `json:"book_id"`
	Name            string        `json:"name"`
	Slug            string        `json:"slug"`
	Description     string        `json:"description,omitempty"`
	DescriptionHTML string        `json:"description_html,omitempty"`
	Priority        int           `json:"priority"`
	CreatedAt       time.Time     `json:"created_at,omitzero"`
	UpdatedAt       time.Time     `json:"updated_at,omitzero"`
	CreatedBy       *UserRef      `json:"created_by,omitempty"`
	UpdatedBy       *UserRef      `json:"updated_by,omitempty"`
	OwnedBy         *UserRef      `json:"owned_by,omitempty"`
	Tags            []Tag         `json:"tags,omitempty"`
	Pages           []PageSummary `json:"pages,omitempty"`
}
