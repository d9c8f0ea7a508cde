package service

import (
	"context"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	"github.com/faithconnect/bookstack-sync/internal/store"
)

// SourceReader is the read side of the sync: the source instance client.
type SourceReader interface {
	BaseURL() string
	VerifyCredentials(ctx context.Context) error
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	GetChapter(ctx context.Context, id int64) (*domain.Chapter, error)
	GetPage(ctx context.Context, id int64) (*domain.Page, error)
}

// SourceCatalog lists source content for operators choosing what to sync.
type SourceCatalog interface {
	ListBooks(ctx context.Context) ([]domain.Book, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	ListChapters(ctx context.Context, bookID int64) ([]domain.Chapter, error)
	ListPages(ctx context.Context, bookID int64) ([]domain.Page, error)
}

// DestinationWriter is the write side of the sync: the destination instance client.
type DestinationWriter interface {
	BaseURL() string
	VerifyCredentials(ctx context.Context) error
	CreateBook(ctx context.Context, draft domain.BookDraft) (*domain.Book, error)
	CreateChapter(ctx context.Context, draft domain.ChapterDraft) (*domain.Chapter, error)
	CreatePage(ctx context.Context, draft domain.PageDraft) (*domain.Page, error)
}

// CoverFetcher downloads cover binaries.
type CoverFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RunJournal persists sync runs.
type RunJournal interface {
	Save(ctx context.Context, run *domain.SyncRun) error
	Get(ctx context.Context, id string) (*domain.SyncRun, error)
	List(ctx context.Context, filter store.RunFilter) (*store.PaginatedResult[domain.SyncRun], error)
}
