package bookstack

import (
	"context"
	"net/url"
	"strconv"

	"github.com/faithconnect/bookstack-sync/internal/domain"
)

// GetChapter fetches a chapter with its ordered page summaries.
func (c *Client) GetChapter(ctx context.Context, id int64) (*domain.Chapter, error) {
	var chapter domain.Chapter
	if err := c.getJSON(ctx, "/api/chapters/"+strconv.FormatInt(id, 10), nil, &chapter); err != nil {
		return nil, c.wrapError("getChapter", id, err)
	}
	return &chapter, nil
}

// ListChapters returns the chapters of a book.
func (c *Client) ListChapters(ctx context.Context, bookID int64) ([]domain.Chapter, error) {
	filter := url.Values{"filter[book_id]": {strconv.FormatInt(bookID, 10)}}
	chapters, err := listAll[domain.Chapter](ctx, c, "/api/chapters", filter)
	if err != nil {
		return nil, c.wrapError("listChapters", bookID, err)
	}
	return chapters, nil
}

// CreateChapter creates a chapter in the book named by draft.BookID. Never retried.
func (c *Client) CreateChapter(ctx context.Context, draft domain.ChapterDraft) (*domain.Chapter, error) {
	var chapter domain.Chapter
	if err := c.postJSON(ctx, "/api/chapters", draft, &chapter); err != nil {
		return nil, c.wrapError("createChapter", 0, err)
	}
	return &chapter, nil
}
