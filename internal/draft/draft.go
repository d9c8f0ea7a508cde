// Package draft builds destination creation payloads from source entities.
//
// Every builder is pure: it copies the user-authored fields, binds the draft to
// destination parent ids and drops everything the destination assigns itself
// (ids, timestamps, identity references, revision counters, URLs, child lists).
package draft

import (
	"github.com/faithconnect/bookstack-sync/internal/domain"
)

// BookFrom builds the creation payload for src. image is the cover binary the
// caller downloaded, or nil when the book has no cover.
func BookFrom(src *domain.Book, image []byte) domain.BookDraft {
	d := domain.BookDraft{
		Name:            src.Name,
		Slug:            src.Slug,
		Description:     src.Description,
		DescriptionHTML: src.DescriptionHTML,
		Tags:            domain.CloneTags(src.Tags),
	}

	if d.Description == "" && d.DescriptionHTML != "" {
		d.Description = plainText(d.DescriptionHTML)
	}

	if src.DefaultTemplateID != nil {
		id := *src.DefaultTemplateID
		d.DefaultTemplateID = &id
	}

	if src.Cover != nil {
		d.Cover = &domain.Cover{
			Name: src.Cover.Name,
			URL:  src.Cover.URL,
			Path: src.Cover.Path,
			Type: src.Cover.Type,
		}
	}

	if len(image) > 0 {
		d.Image = image
	}

	return d
}

// ChapterFrom builds the creation payload for src bound to the destination book.
func ChapterFrom(src *domain.Chapter, destBookID int64) domain.ChapterDraft {
	d := domain.ChapterDraft{
		BookID:          destBookID,
		Name:            src.Name,
		Slug:            src.Slug,
		Description:     src.Description,
		DescriptionHTML: src.DescriptionHTML,
		Priority:        src.Priority,
		Tags:            domain.CloneTags(src.Tags),
	}

	if d.Description == "" && d.DescriptionHTML != "" {
		d.Description = plainText(d.DescriptionHTML)
	}

	return d
}

// PageFrom builds the creation payload for src at the given destination placement.
func PageFrom(src *domain.Page, placement domain.Placement) domain.PageDraft {
	return domain.PageDraft{
		Placement: placement,
		Name:      src.Name,
		Slug:      src.Slug,
		HTML:      src.HTML,
		Markdown:  src.Markdown,
		Priority:  src.Priority,
		Draft:     src.Draft,
		Template:  src.Template,
		Tags:      domain.CloneTags(src.Tags),
	}
}

// MarkdownBody rewrites an HTML-only page draft to carry a markdown body instead,
// so the destination opens it in the markdown editor. Drafts that already have
// markdown, or whose HTML cannot be converted, are returned unchanged.
func MarkdownBody(d domain.PageDraft) domain.PageDraft {
	if d.Markdown != "" || d.HTML == "" {
		return d
	}

	md, ok := htmlToMarkdown(d.HTML)
	if !ok {
		return d
	}

	d.Markdown = md
	d.HTML = ""
	return d
}
