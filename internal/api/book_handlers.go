package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faithconnect/bookstack-sync/internal/domain"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSourceBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List source books",
		Description: "Lists every book on the source instance, sorted by name",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSourceBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get source book",
		Description: "Returns a source book with its ordered contents, tags and cover metadata",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSourceBookChapters",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/chapters",
		Summary:     "List chapters of a source book",
		Tags:        []string{"Books"},
	}, s.handleListBookChapters)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSourceBookPages",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/pages",
		Summary:     "List pages of a source book",
		Description: "Lists standalone and chapter pages without their bodies",
		Tags:        []string{"Books"},
	}, s.handleListBookPages)
}

// BookIDInput identifies a source book.
type BookIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Source book ID"`
}

// BookSummary is one entry of the source book list.
type BookSummary struct {
	ID          int64  `json:"id" doc:"Source book ID"`
	Name        string `json:"name" doc:"Book name"`
	Slug        string `json:"slug" doc:"URL slug"`
	Description string `json:"description,omitempty" doc:"Plain-text description"`
}

// ListBooksResponse contains the source book list.
type ListBooksResponse struct {
	Books []BookSummary `json:"books" doc:"Books sorted by name"`
	Total int           `json:"total" doc:"Number of books"`
}

// ListBooksOutput wraps the book list for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// ChaptersOutput wraps a chapter list for Huma.
type ChaptersOutput struct {
	Body []domain.Chapter
}

// PagesOutput wraps a page list for Huma.
type PagesOutput struct {
	Body []domain.Page
}

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	books, err := s.services.Catalog.ListBooks(ctx)
	if err != nil {
		s.logger.Error("Failed to list source books", "error", err)
		return nil, toAPIError(err)
	}

	summaries := make([]BookSummary, len(books))
	for i, b := range books {
		summaries[i] = BookSummary{ID: b.ID, Name: b.Name, Slug: b.Slug, Description: b.Description}
	}

	return &ListBooksOutput{
		Body: ListBooksResponse{Books: summaries, Total: len(summaries)},
	}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Catalog.GetBook(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleListBookChapters(ctx context.Context, input *BookIDInput) (*ChaptersOutput, error) {
	chapters, err := s.services.Catalog.ListChapters(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if chapters == nil {
		chapters = []domain.Chapter{}
	}
	return &ChaptersOutput{Body: chapters}, nil
}

func (s *Server) handleListBookPages(ctx context.Context, input *BookIDInput) (*PagesOutput, error) {
	pages, err := s.services.Catalog.ListPages(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if pages == nil {
		pages = []domain.Page{}
	}
	return &PagesOutput{Body: pages}, nil
}
