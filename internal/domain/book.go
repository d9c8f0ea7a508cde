// Package domain contains the BookStack content entities copied between instances
// and the records that describe a sync run.
package domain

import "time"

// Book is a top-level BookStack container holding chapters and standalone pages.
type Book struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Slug              string       `json:"slug"`
	Description       string       `json:"description,omitempty"`
	DescriptionHTML   string       `json:"description_html,omitempty"`
	CreatedAt         time.Time    `json:"created_at,omitzero"`
	UpdatedAt         time.Time    `json:"updated_at,omitzero"`
	CreatedBy         *UserRef     `json:"created_by,omitempty"`
	UpdatedBy         *UserRef     `json:"updated_by,omitempty"`
	OwnedBy           *UserRef     `json:"owned_by,omitempty"`
	DefaultTemplateID *int64       `json:"default_template_id,omitzero"`
	Contents          []ContentRef `json:"contents,omitempty"`
	Tags              []Tag        `json:"tags,omitempty"`
	Cover             *Cover       `json:"cover,omitempty"`
}

// HasCover reports whether the book carries a downloadable cover image.
func (b *Book) HasCover() bool {
	return b.Cover != nil && b.Cover.URL != ""
}

// Cover is the metadata BookStack reports for a book's cover image.
// The binary is fetched separately from URL.
type Cover struct {
	ID         int64     `json:"id,omitzero"`
	Name       string    `json:"name,omitempty"`
	URL        string    `json:"url,omitempty"`
	Path       string    `json:"path,omitempty"`
	Type       string    `json:"type,omitempty"`
	UploadedTo int64     `json:"uploaded_to,omitzero"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// Tag is a name/value pair attached to books, chapters and pages.
// Order is preserved verbatim across a copy.
type Tag struct {
	Name  string `json:"name" validate:"required,max=255"`
	Value string `json:"value" validate:"max=255"`
	Order int    `json:"order"`
}

// CloneTags returns an independent copy of tags, or nil for an empty list.
func CloneTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]Tag, len(tags))
	copy(out, tags)
	return out
}
