package domain

import "encoding/json/v2"

// BookDraft is the creation payload for a book on the destination instance.
// It never carries ids, timestamps or identity references, and never lists contents.
type BookDraft struct {
	Name              string `json:"name" validate:"required,max=255"`
	Slug              string `json:"slug,omitempty"`
	Description       string `json:"description,omitempty" validate:"max=1900"`
	DescriptionHTML   string `json:"description_html,omitempty" validate:"max=2000"`
	DefaultTemplateID *int64 `json:"default_template_id,omitzero"`
	Tags              []Tag  `json:"tags,omitempty" validate:"dive"`

	// Cover metadata carried from the source; informational only.
	Cover *Cover `json:"-"`
	// Image is the raw cover binary. When set the book is created with a multipart request.
	Image []byte `json:"-"`
}

// HasImage reports whether the draft must be uploaded as multipart form data.
func (d *BookDraft) HasImage() bool {
	return len(d.Image) > 0
}

// ChapterDraft is the creation payload for a chapter bound to a destination book.
type ChapterDraft struct {
	BookID          int64  `json:"book_id" validate:"required,gt=0"`
	Name            string `json:"name" validate:"required,max=255"`
	Slug            string `json:"slug,omitempty"`
	Description     string `json:"description,omitempty" validate:"max=1900"`
	DescriptionHTML string `json:"description_html,omitempty" validate:"max=2000"`
	Priority        int    `json:"priority"`
	Tags            []Tag  `json:"tags,omitempty" validate:"dive"`
}

// Placement is where a page draft attaches on the destination: directly in a
// book, or inside a chapter of that book. The zero value is not a valid placement.
type Placement struct {
	bookID    int64
	chapterID int64
}

// InBook places a page directly in a book.
func InBook(bookID int64) Placement {
	return Placement{bookID: bookID}
}

// InChapter places a page inside a chapter of a book.
func InChapter(bookID, chapterID int64) Placement {
	return Placement{bookID: bookID, chapterID: chapterID}
}

// BookID returns the owning book id.
func (p Placement) BookID() int64 { return p.bookID }

// ChapterID returns the owning chapter id and whether one is set.
func (p Placement) ChapterID() (int64, bool) {
	return p.chapterID, p.chapterID != 0
}

// Valid reports whether the placement names a book.
func (p Placement) Valid() bool {
	return p.bookID > 0 && p.chapterID >= 0
}

// PageDraft is the creation payload for a page on the destination instance.
type PageDraft struct {
	Placement Placement `json:"-"`
	Name      string    `json:"name" validate:"required,max=255"`
	Slug      string    `json:"slug,omitempty"`
	HTML      string    `json:"html,omitempty" validate:"required_without=Markdown"`
	Markdown  string    `json:"markdown,omitempty" validate:"required_without=HTML"`
	Priority  int       `json:"priority"`
	Draft     bool      `json:"draft"`
	Template  bool      `json:"template"`
	Tags      []Tag     `json:"tags,omitempty" validate:"dive"`
}

// pageWire is the JSON shape of a page create request.
type pageWire struct {
	BookID    int64  `json:"book_id"`
	ChapterID *int64 `json:"chapter_id,omitzero"`
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	HTML      string `json:"html,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
	Priority  int    `json:"priority"`
	Draft     bool   `json:"draft"`
	Template  bool   `json:"template"`
	Tags      []Tag  `json:"tags,omitempty"`
}

// MarshalJSON writes the placement as book_id and, when inside a chapter, chapter_id.
func (d PageDraft) MarshalJSON() ([]byte, error) {
	w := pageWire{
		BookID:   d.Placement.BookID(),
		Name:     d.Name,
		Slug:     d.Slug,
		HTML:     d.HTML,
		Markdown: d.Markdown,
		Priority: d.Priority,
		Draft:    d.Draft,
		Template: d.Template,
		Tags:     d.Tags,
	}
	if chapterID, ok := d.Placement.ChapterID(); ok {
		w.ChapterID = &chapterID
	}
	return json.Marshal(w)
}
