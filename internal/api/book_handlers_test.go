package api

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faithconnect/bookstack-sync/internal/domain"
)

func TestListBooks(t *testing.T) {
	ts := setupTestServer(t)
	ts.source.AddBook(domain.Book{Name: "archive", Slug: "archive"})

	resp := ts.api.Get("/api/v1/books")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[ListBooksResponse](t, resp)
	assert.True(t, env.Success)
	require.Equal(t, 2, env.Data.Total)
	// Sorted by name, case-insensitive.
	assert.Equal(t, "archive", env.Data.Books[0].Name)
	assert.Equal(t, "Operations Guide", env.Data.Books[1].Name)
}

func TestGetBook(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/" + strconv.FormatInt(ts.sample.BookID, 10))
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[domain.Book](t, resp)
	assert.Equal(t, "Operations Guide", env.Data.Name)
	require.Len(t, env.Data.Contents, 2)
	assert.Equal(t, "chapter", env.Data.Contents[0].Type)
	assert.Len(t, env.Data.Contents[0].Pages, 2)
	assert.Equal(t, "page", env.Data.Contents[1].Type)
}

func TestGetBook_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/999")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decode[any](t, resp).Code)
}

func TestGetBook_InvalidID(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/0")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestListBookChaptersAndPages(t *testing.T) {
	ts := setupTestServer(t)
	id := strconv.FormatInt(ts.sample.BookID, 10)

	chapters := decode[[]domain.Chapter](t, ts.api.Get("/api/v1/books/"+id+"/chapters"))
	require.Len(t, chapters.Data, 1)
	assert.Equal(t, "Getting Started", chapters.Data[0].Name)

	pages := decode[[]domain.Page](t, ts.api.Get("/api/v1/books/"+id+"/pages"))
	require.Len(t, pages.Data, 3)
	for _, p := range pages.Data {
		assert.Empty(t, p.HTML, "listings carry no bodies")
	}
}

func TestListBookChapters_Empty(t *testing.T) {
	ts := setupTestServer(t)
	empty := ts.source.AddBook(domain.Book{Name: "Empty"})

	resp := ts.api.Get("/api/v1/books/" + strconv.FormatInt(empty, 10) + "/chapters")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"data":[]`)
}
