package bookstack_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/bookstack/bookstacktest"
	"github.com/faithconnect/bookstack-sync/internal/domain"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

func newInstance(t *testing.T) (*bookstacktest.Server, *bookstack.Client) {
	t.Helper()
	srv := bookstacktest.NewServer("id", "secret")
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := bookstack.New(bookstack.SideSource, srv.Credentials(), bookstack.Options{ReadRetries: -1}, logger)
	return srv, client
}

func TestClient_ReadsSampleBook(t *testing.T) {
	srv, client := newInstance(t)
	sample := srv.SeedSampleBook()
	ctx := context.Background()

	book, err := client.GetBook(ctx, sample.BookID)
	require.NoError(t, err)
	require.Len(t, book.Contents, 2)
	assert.Equal(t, domain.ContentChapter, book.Contents[0].Kind)
	assert.Equal(t, domain.ContentPage, book.Contents[1].Kind)

	chapter, err := client.GetChapter(ctx, sample.ChapterID)
	require.NoError(t, err)
	require.Len(t, chapter.Pages, 2)
	assert.Equal(t, sample.PageIDs[0], chapter.Pages[0].ID)

	page, err := client.GetPage(ctx, sample.PageIDs[1])
	require.NoError(t, err)
	assert.Equal(t, "# Install\n\nRun the installer.", page.Markdown)
	assert.True(t, page.InChapter())
}

func TestClient_ListPagesAcrossOffsets(t *testing.T) {
	srv, client := newInstance(t)
	bookID := srv.AddBook(domain.Book{Name: "Big"})
	for i := range 7 {
		srv.AddPage(domain.Page{BookID: bookID, Name: "p", Priority: i, HTML: "<p>x</p>"})
	}

	pages, err := client.ListPages(context.Background(), bookID)
	require.NoError(t, err)
	assert.Len(t, pages, 7)
}

func TestClient_CreateBookWithCover(t *testing.T) {
	srv, client := newInstance(t)
	image := []byte("\x89PNG\r\n\x1a\nrest")

	created, err := client.CreateBook(context.Background(), domain.BookDraft{
		Name:  "Covered",
		Tags:  []domain.Tag{{Name: "a", Value: "1"}, {Name: "b", Order: 1}},
		Cover: &domain.Cover{Name: "front.png"},
		Image: image,
	})
	require.NoError(t, err)

	assert.Equal(t, image, srv.Cover(created.ID))
	book, ok := srv.Book(created.ID)
	require.True(t, ok)
	assert.Equal(t, []domain.Tag{{Name: "a", Value: "1"}, {Name: "b", Order: 1}}, book.Tags)
	require.NotNil(t, book.Cover)

	data, err := bookstack.NewDownloader(srv.Credentials(), nil).Fetch(context.Background(), book.Cover.URL)
	require.NoError(t, err)
	assert.Equal(t, image, data)
}

func TestClient_CreatePageRejected(t *testing.T) {
	_, client := newInstance(t)

	_, err := client.CreatePage(context.Background(), domain.PageDraft{
		Placement: domain.InBook(999),
		Name:      "Orphan",
		HTML:      "<p>x</p>",
	})
	require.Error(t, err)

	code, _ := domainerrors.CodeOf(err)
	assert.Equal(t, domainerrors.CodeValidation, code)
	assert.Contains(t, err.Error(), "The given data was invalid")
}

func TestClient_WrongToken(t *testing.T) {
	srv, _ := newInstance(t)
	client := bookstack.New(bookstack.SideDestination,
		bookstack.NewCredentials(srv.URL, "id", "wrong"), bookstack.Options{}, nil)

	err := client.VerifyCredentials(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestClient_InjectedFailure(t *testing.T) {
	srv, client := newInstance(t)
	srv.FailWith(http.MethodGet, "/api/books", http.StatusBadGateway)

	_, err := client.ListBooks(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrServer)

	srv.FailWith(http.MethodGet, "/api/books", 0)
	_, err = client.ListBooks(context.Background())
	assert.NoError(t, err)
}
