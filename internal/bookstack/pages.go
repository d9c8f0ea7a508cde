package bookstack

import (
	"context"
	"net/url"
	"strconv"

	"github.com/faithconnect/bookstack-sync/internal/domain"
)

// GetPage fetches a page including its html and markdown bodies.
func (c *Client) GetPage(ctx context.Context, id int64) (*domain.Page, error) {
	var page domain.Page
	if err := c.getJSON(ctx, "/api/pages/"+strconv.FormatInt(id, 10), nil, &page); err != nil {
		return nil, c.wrapError("getPage", id, err)
	}
	return &page, nil
}

// ListPages returns the pages of a book, both standalone and inside chapters.
// List entries carry no body content.
func (c *Client) ListPages(ctx context.Context, bookID int64) ([]domain.Page, error) {
	filter := url.Values{"filter[book_id]": {strconv.FormatInt(bookID, 10)}}
	pages, err := listAll[domain.Page](ctx, c, "/api/pages", filter)
	if err != nil {
		return nil, c.wrapError("listPages", bookID, err)
	}
	return pages, nil
}

// CreatePage creates a page at the draft's placement. Never retried.
func (c *Client) CreatePage(ctx context.Context, draft domain.PageDraft) (*domain.Page, error) {
	var page domain.Page
	if err := c.postJSON(ctx, "/api/pages", draft, &page); err != nil {
		return nil, c.wrapError("createPage", 0, err)
	}
	return &page, nil
}
