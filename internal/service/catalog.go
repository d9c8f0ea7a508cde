package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

// CatalogService browses the source instance so operators can pick books to sync.
type CatalogService struct {
	source SourceCatalog
	logger *slog.Logger
}

// NewCatalogService creates a catalog over the source instance.
func NewCatalogService(source SourceCatalog, logger *slog.Logger) *CatalogService {
	return &CatalogService{source: source, logger: logger}
}

// ListBooks returns the source books sorted by name.
func (s *CatalogService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	books, err := s.source.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(books, func(a, b domain.Book) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return books, nil
}

// GetBook returns a source book with its contents.
func (s *CatalogService) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	if id <= 0 {
		return nil, domainerrors.Validationf("book id must be positive, got %d", id)
	}
	return s.source.GetBook(ctx, id)
}

// ListChapters returns a source book's chapters in display order.
func (s *CatalogService) ListChapters(ctx context.Context, bookID int64) ([]domain.Chapter, error) {
	if bookID <= 0 {
		return nil, domainerrors.Validationf("book id must be positive, got %d", bookID)
	}
	chapters, err := s.source.ListChapters(ctx, bookID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(chapters, func(a, b domain.Chapter) int {
		return a.Priority - b.Priority
	})
	return chapters, nil
}

// ListPages returns a source book's pages in display order.
func (s *CatalogService) ListPages(ctx context.Context, bookID int64) ([]domain.Page, error) {
	if bookID <= 0 {
		return nil, domainerrors.Validationf("book id must be positive, got %d", bookID)
	}
	pages, err := s.source.ListPages(ctx, bookID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(pages, func(a, b domain.Page) int {
		return a.Priority - b.Priority
	})
	return pages, nil
}
