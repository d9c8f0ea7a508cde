package bookstack

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

// ListBooks returns every book visible to the token, following pagination.
func (c *Client) ListBooks(ctx context.Context) ([]domain.Book, error) {
	books, err := listAll[domain.Book](ctx, c, "/api/books", nil)
	if err != nil {
		return nil, c.wrapError("listBooks", 0, err)
	}
	return books, nil
}

// GetBook fetches a book with its ordered contents, tags and cover metadata.
func (c *Client) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	var book domain.Book
	if err := c.getJSON(ctx, "/api/books/"+strconv.FormatInt(id, 10), nil, &book); err != nil {
		return nil, c.wrapError("getBook", id, err)
	}
	return &book, nil
}

// CreateBook creates a book from draft. Drafts carrying cover bytes are sent as
// multipart form data; all others as JSON. Never retried.
func (c *Client) CreateBook(ctx context.Context, draft domain.BookDraft) (*domain.Book, error) {
	var book domain.Book

	if !draft.HasImage() {
		if err := c.postJSON(ctx, "/api/books", draft, &book); err != nil {
			return nil, c.wrapError("createBook", 0, err)
		}
		return &book, nil
	}

	body, contentType, err := encodeBookForm(draft)
	if err != nil {
		return nil, c.wrapError("createBook", 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "encode multipart"))
	}

	data, err := c.doRequest(ctx, request{
		method:      http.MethodPost,
		path:        "/api/books",
		contentType: contentType,
		body:        body,
	})
	if err != nil {
		return nil, c.wrapError("createBook", 0, err)
	}
	if err := decode(data, &book); err != nil {
		return nil, c.wrapError("createBook", 0, err)
	}
	return &book, nil
}

// VerifyCredentials performs the lightest authenticated read the API offers.
// A rejected token yields an AUTH error, distinct from TRANSPORT failures.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	var page listResponse[domain.Book]
	query := url.Values{"count": {"1"}}
	if err := c.getJSON(ctx, "/api/books", query, &page); err != nil {
		return c.wrapError("verifyCredentials", 0, err)
	}
	return nil
}
