package domain

import "time"

// Page is a content item placed either directly in a book or inside a chapter.
type Page struct {
	ID            int64     `json:"id"`
	BookID        int64     `json:"book_id"`
	ChapterID     *int64    `json:"chapter_id,omitzero"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	HTML          string    `json:"html,omitempty"`
	Markdown      string    `json:"markdown,omitempty"`
	Priority      int       `json:"priority"`
	Draft         bool      `json:"draft"`
	Template      bool      `json:"template"`
	RevisionCount int       `json:"revision_count,omitzero"`
	URL           string    `json:"url,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
	CreatedBy     *UserRef  `json:"created_by,omitempty"`
	UpdatedBy     *UserRef  `json:"updated_by,omitempty"`
	OwnedBy       *UserRef  `json:"owned_by,omitempty"`
	Tags          []Tag     `json:"tags,omitempty"`
}

// InChapter reports whether the page belongs to a chapter rather than the book directly.
func (p *Page) InChapter() bool {
	return p.ChapterID != nil && *p.ChapterID != 0
}
