package domain

import (
	"bytes"
	"encoding/json/v2"
	"fmt"
	"time"
)

// ContentKind discriminates the items of a book's content list.
type ContentKind int

// Known content kinds. ContentUnknown is never skipped silently by the sync.
const (
	ContentUnknown ContentKind = iota
	ContentChapter
	ContentPage
)

// String returns the BookStack discriminator for the kind.
func (k ContentKind) String() string {
	switch k {
	case ContentChapter:
		return "chapter"
	case ContentPage:
		return "page"
	default:
		return "unknown"
	}
}

// ParseContentKind maps a BookStack "type" value to a ContentKind.
func ParseContentKind(s string) ContentKind {
	switch s {
	case "chapter":
		return ContentChapter
	case "page":
		return ContentPage
	default:
		return ContentUnknown
	}
}

// ContentRef is one entry of a book's ordered content list: a chapter or a
// standalone page. Type keeps the raw discriminator so unknown kinds can be reported.
type ContentRef struct {
	ID        int64         `json:"id"`
	Type      string        `json:"type"`
	Kind      ContentKind   `json:"-"`
	Name      string        `json:"name,omitempty"`
	Slug      string        `json:"slug,omitempty"`
	BookID    int64         `json:"book_id,omitzero"`
	ChapterID *int64        `json:"chapter_id,omitzero"`
	URL       string        `json:"url,omitempty"`
	Draft     bool          `json:"draft,omitzero"`
	Template  bool          `json:"template,omitzero"`
	CreatedAt time.Time     `json:"created_at,omitzero"`
	UpdatedAt time.Time     `json:"updated_at,omitzero"`
	Pages     []PageSummary `json:"pages,omitempty"`
}

// UnmarshalJSON decodes a content entry and resolves its Kind.
func (c *ContentRef) UnmarshalJSON(data []byte) error {
	type plain ContentRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ContentRef(p)
	c.Kind = ParseContentKind(c.Type)
	return nil
}

// PageSummary is the reduced page projection listed under a chapter.
// It is never created on its own.
type PageSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	BookID    int64     `json:"book_id"`
	ChapterID int64     `json:"chapter_id"`
	Draft     bool      `json:"draft"`
	Template  bool      `json:"template"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// UserRef identifies the creator, updater or owner of an entity.
// BookStack sends either a bare numeric id or an object.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// UnmarshalJSON accepts both `12` and `{"id":12,"name":"..."}`.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		type plain UserRef
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*u = UserRef(p)
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("user reference: %w", err)
	}
	*u = UserRef{ID: id}
	return nil
}
