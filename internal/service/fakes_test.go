package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves a fixed content tree.
type fakeSource struct {
	verifyErr  error
	books      map[int64]*domain.Book
	chapters   map[int64]*domain.Chapter
	pages      map[int64]*domain.Page
	readErrs   map[string]error // keyed "page:101"
	readDelays map[string]time.Duration

	mu    sync.Mutex
	reads []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		books:      make(map[int64]*domain.Book),
		chapters:   make(map[int64]*domain.Chapter),
		pages:      make(map[int64]*domain.Page),
		readErrs:   make(map[string]error),
		readDelays: make(map[string]time.Duration),
	}
}

func (f *fakeSource) BaseURL() string { return "https://source.example.com" }

func (f *fakeSource) VerifyCredentials(context.Context) error { return f.verifyErr }

func (f *fakeSource) read(key string) error {
	f.mu.Lock()
	f.reads = append(f.reads, key)
	err, delay := f.readErrs[key], f.readDelays[key]
	f.mu.Unlock()

	time.Sleep(delay)
	return err
}

func (f *fakeSource) readLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.reads)
}

func (f *fakeSource) GetBook(_ context.Context, id int64) (*domain.Book, error) {
	if err := f.read(key("book", id)); err != nil {
		return nil, err
	}
	b, ok := f.books[id]
	if !ok {
		return nil, domainerrors.NotFoundf("book %d", id)
	}
	return b, nil
}

func (f *fakeSource) GetChapter(_ context.Context, id int64) (*domain.Chapter, error) {
	if err := f.read(key("chapter", id)); err != nil {
		return nil, err
	}
	c, ok := f.chapters[id]
	if !ok {
		return nil, domainerrors.NotFoundf("chapter %d", id)
	}
	return c, nil
}

func (f *fakeSource) GetPage(_ context.Context, id int64) (*domain.Page, error) {
	if err := f.read(key("page", id)); err != nil {
		return nil, err
	}
	p, ok := f.pages[id]
	if !ok {
		return nil, domainerrors.NotFoundf("page %d", id)
	}
	return p, nil
}

func (f *fakeSource) ListBooks(context.Context) ([]domain.Book, error) {
	var out []domain.Book
	for _, b := range f.books {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeSource) ListChapters(_ context.Context, bookID int64) ([]domain.Chapter, error) {
	var out []domain.Chapter
	for _, c := range f.chapters {
		if c.BookID == bookID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeSource) ListPages(_ context.Context, bookID int64) ([]domain.Page, error) {
	var out []domain.Page
	for _, p := range f.pages {
		if p.BookID == bookID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// addChapter registers a chapter and its pages, named "p<id>".
func (f *fakeSource) addChapter(bookID, chapterID int64, pageIDs ...int64) domain.ContentRef {
	ch := &domain.Chapter{ID: chapterID, BookID: bookID, Name: "chapter", Slug: "chapter"}
	for _, pid := range pageIDs {
		cid := chapterID
		f.pages[pid] = &domain.Page{ID: pid, BookID: bookID, ChapterID: &cid, Name: pageName(pid), HTML: "<p>body</p>"}
		ch.Pages = append(ch.Pages, domain.PageSummary{ID: pid, BookID: bookID, Name: pageName(pid)})
	}
	f.chapters[chapterID] = ch
	return domain.ContentRef{ID: chapterID, Type: "chapter", Kind: domain.ContentChapter}
}

// addPage registers a standalone page.
func (f *fakeSource) addPage(bookID, pageID int64) domain.ContentRef {
	f.pages[pageID] = &domain.Page{ID: pageID, BookID: bookID, Name: pageName(pageID), Markdown: "body"}
	return domain.ContentRef{ID: pageID, Type: "page", Kind: domain.ContentPage}
}

// createCall is one create request seen by the destination.
type createCall struct {
	kind    string
	id      int64 // destination id assigned
	book    domain.BookDraft
	chapter domain.ChapterDraft
	page    domain.PageDraft
}

// fakeDest assigns ids from 900 upwards and records every create.
type fakeDest struct {
	verifyErr  error
	failCreate func(createCall) error
	onCreate   func(createCall)

	mu     sync.Mutex
	nextID int64
	calls  []createCall
	issued map[int64]bool
}

func newFakeDest() *fakeDest {
	return &fakeDest{nextID: 900, issued: make(map[int64]bool)}
}

func (f *fakeDest) BaseURL() string { return "https://dest.example.com" }

func (f *fakeDest) VerifyCredentials(context.Context) error { return f.verifyErr }

func (f *fakeDest) record(call createCall) (int64, error) {
	if f.failCreate != nil {
		if err := f.failCreate(call); err != nil {
			return 0, err
		}
	}

	f.mu.Lock()
	f.nextID++
	call.id = f.nextID
	f.issued[call.id] = true
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.onCreate != nil {
		f.onCreate(call)
	}
	return call.id, nil
}

func (f *fakeDest) CreateBook(_ context.Context, d domain.BookDraft) (*domain.Book, error) {
	id, err := f.record(createCall{kind: "book", book: d})
	if err != nil {
		return nil, err
	}
	return &domain.Book{ID: id, Name: d.Name}, nil
}

func (f *fakeDest) CreateChapter(_ context.Context, d domain.ChapterDraft) (*domain.Chapter, error) {
	id, err := f.record(createCall{kind: "chapter", chapter: d})
	if err != nil {
		return nil, err
	}
	return &domain.Chapter{ID: id, BookID: d.BookID, Name: d.Name}, nil
}

func (f *fakeDest) CreatePage(_ context.Context, d domain.PageDraft) (*domain.Page, error) {
	id, err := f.record(createCall{kind: "page", page: d})
	if err != nil {
		return nil, err
	}
	return &domain.Page{ID: id, BookID: d.Placement.BookID(), Name: d.Name}, nil
}

func (f *fakeDest) snapshot() []createCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]createCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeDest) count(kind string) int {
	n := 0
	for _, c := range f.snapshot() {
		if c.kind == kind {
			n++
		}
	}
	return n
}

// fakeCovers serves cover bytes by URL.
type fakeCovers struct {
	images map[string][]byte
	err    error

	mu      sync.Mutex
	fetched []string
}

func (f *fakeCovers) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.images[url]
	if !ok {
		return nil, domainerrors.Download("no such cover", nil)
	}
	return data, nil
}

func key(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}

func pageName(id int64) string {
	return "p" + strconv.FormatInt(id, 10)
}
