package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/domain"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
	"github.com/faithconnect/bookstack-sync/internal/store"
)

// scenarioSource is the book "Guide" with chapter 10 (pages 101, 102)
// followed by standalone page 20.
func scenarioSource() *fakeSource {
	src := newFakeSource()
	src.books[1] = &domain.Book{
		ID:   1,
		Name: "Guide",
		Slug: "guide",
		Contents: []domain.ContentRef{
			src.addChapter(1, 10, 101, 102),
			src.addPage(1, 20),
		},
	}
	return src
}

func newTestSyncService(src *fakeSource, dest *fakeDest, covers *fakeCovers, journal RunJournal, opts SyncOptions) *SyncService {
	if covers == nil {
		covers = &fakeCovers{}
	}
	return NewSyncService(src, dest, covers, journal, nil, opts, testLogger())
}

func requireSyncError(t *testing.T, err error) *SyncError {
	t.Helper()
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	return syncErr
}

func TestSyncBook_CreatesInSourceOrder(t *testing.T) {
	src, dest := scenarioSource(), newFakeDest()
	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})

	run, err := svc.SyncBook(context.Background(), 1)
	require.NoError(t, err)

	calls := dest.snapshot()
	require.Len(t, calls, 5)

	// createBook("Guide")
	assert.Equal(t, "book", calls[0].kind)
	assert.Equal(t, "Guide", calls[0].book.Name)
	destBookID := calls[0].id

	// createChapter(bookId=destBookId)
	assert.Equal(t, "chapter", calls[1].kind)
	assert.Equal(t, destBookID, calls[1].chapter.BookID)
	destChapterID := calls[1].id

	// createPage(bookId, chapterId=destChapterId) for 101 then 102
	for i, name := range []string{"p101", "p102"} {
		c := calls[2+i]
		assert.Equal(t, "page", c.kind)
		assert.Equal(t, name, c.page.Name)
		assert.Equal(t, destBookID, c.page.Placement.BookID())
		chapterID, ok := c.page.Placement.ChapterID()
		assert.True(t, ok)
		assert.Equal(t, destChapterID, chapterID)
	}

	// createPage(bookId, chapterId=null) for 20
	assert.Equal(t, "page", calls[4].kind)
	assert.Equal(t, "p20", calls[4].page.Name)
	assert.Equal(t, destBookID, calls[4].page.Placement.BookID())
	_, inChapter := calls[4].page.Placement.ChapterID()
	assert.False(t, inChapter)

	assert.Equal(t, domain.StateDone, run.State)
	assert.Equal(t, domain.StateCopyingChildren, run.LastCompleted)
	assert.Equal(t, destBookID, run.DestBookID)
	assert.Equal(t, destChapterID, run.Remap.Chapters[10])
	assert.Equal(t, map[int64]int64{101: calls[2].id, 102: calls[3].id, 20: calls[4].id}, run.Remap.Pages)
	assert.Equal(t, 1, run.ChaptersCreated)
	assert.Equal(t, 3, run.PagesCreated)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestSyncBook_CountsAndParentIDs(t *testing.T) {
	tests := []struct {
		name            string
		chapters        int
		pagesPerChapter int
		loosePages      int
		workers         int
	}{
		{name: "empty book", workers: 1},
		{name: "loose pages only", loosePages: 4, workers: 1},
		{name: "chapters only", chapters: 3, pagesPerChapter: 2, workers: 1},
		{name: "empty chapters", chapters: 2, workers: 1},
		{name: "mixed sequential", chapters: 3, pagesPerChapter: 4, loosePages: 2, workers: 1},
		{name: "mixed with page workers", chapters: 3, pagesPerChapter: 7, loosePages: 2, workers: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dest := newFakeSource(), newFakeDest()
			book := &domain.Book{ID: 1, Name: "Generated"}

			nextPage := int64(1000)
			for c := range tt.chapters {
				var pageIDs []int64
				for range tt.pagesPerChapter {
					nextPage++
					pageIDs = append(pageIDs, nextPage)
				}
				book.Contents = append(book.Contents, src.addChapter(1, int64(100+c), pageIDs...))
				// Interleave loose pages between chapters.
				if c < tt.loosePages {
					nextPage++
					book.Contents = append(book.Contents, src.addPage(1, nextPage))
				}
			}
			for i := tt.chapters; i < tt.loosePages; i++ {
				nextPage++
				book.Contents = append(book.Contents, src.addPage(1, nextPage))
			}
			src.books[1] = book

			svc := newTestSyncService(src, dest, nil, nil, SyncOptions{PageWorkers: tt.workers})
			run, err := svc.SyncBook(context.Background(), 1)
			require.NoError(t, err)

			wantPages := tt.chapters*tt.pagesPerChapter + tt.loosePages
			assert.Equal(t, 1, dest.count("book"))
			assert.Equal(t, tt.chapters, dest.count("chapter"))
			assert.Equal(t, wantPages, dest.count("page"))
			assert.Equal(t, tt.chapters, run.ChaptersCreated)
			assert.Equal(t, wantPages, run.PagesCreated)

			// Every parent id was returned by an earlier create of this run,
			// and a chapter's pages all land before the next content item.
			calls := dest.snapshot()
			seen := map[int64]bool{}
			var bookID, currentChapter int64
			for _, c := range calls {
				switch c.kind {
				case "book":
					bookID = c.id
				case "chapter":
					assert.Equal(t, bookID, c.chapter.BookID)
					assert.NotEqual(t, int64(1), c.chapter.BookID, "source ids never leak")
					currentChapter = c.id
				case "page":
					assert.Equal(t, bookID, c.page.Placement.BookID())
					if chapterID, ok := c.page.Placement.ChapterID(); ok {
						assert.True(t, seen[chapterID], "chapter %d created before its pages", chapterID)
						assert.Equal(t, currentChapter, chapterID, "pages stay grouped under their chapter")
					} else {
						currentChapter = 0
					}
				}
				seen[c.id] = true
			}
		})
	}
}

func TestSyncBook_TwiceCreatesTwoBooks(t *testing.T) {
	src, dest := scenarioSource(), newFakeDest()
	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})

	first, err := svc.SyncBook(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.SyncBook(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, dest.count("book"), "syncing twice duplicates the book")
	assert.Equal(t, 2, dest.count("chapter"))
	assert.Equal(t, 6, dest.count("page"))
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.DestBookID, second.DestBookID)
}

func TestSyncBook_Cover(t *testing.T) {
	const coverURL = "https://source.example.com/uploads/images/cover_book/guide.png"

	t.Run("cover bytes are uploaded with the book", func(t *testing.T) {
		src, dest := scenarioSource(), newFakeDest()
		src.books[1].Cover = &domain.Cover{Name: "guide.png", URL: coverURL}
		covers := &fakeCovers{images: map[string][]byte{coverURL: []byte("png")}}

		svc := newTestSyncService(src, dest, covers, nil, SyncOptions{})
		_, err := svc.SyncBook(context.Background(), 1)
		require.NoError(t, err)

		calls := dest.snapshot()
		require.NotEmpty(t, calls)
		assert.Equal(t, []byte("png"), calls[0].book.Image)
		assert.True(t, calls[0].book.HasImage())
	})

	t.Run("download failure prevents createBook", func(t *testing.T) {
		src, dest := scenarioSource(), newFakeDest()
		src.books[1].Cover = &domain.Cover{Name: "guide.png", URL: coverURL}
		covers := &fakeCovers{err: domainerrors.Download("download failed: status 404", nil)}

		svc := newTestSyncService(src, dest, covers, nil, SyncOptions{})
		run, err := svc.SyncBook(context.Background(), 1)

		syncErr := requireSyncError(t, err)
		assert.Equal(t, domainerrors.CodeDownload, syncErr.Kind())
		assert.Equal(t, domain.StateCopyingBook, syncErr.Step)
		assert.Equal(t, domain.StateVerifyingDestination, syncErr.LastCompleted)
		assert.Equal(t, "cover", syncErr.Entity)
		assert.Empty(t, dest.snapshot(), "no createBook call is issued")
		assert.Equal(t, domain.StateFailed, run.State)
		assert.Equal(t, "DOWNLOAD", run.ErrorKind)
	})
}

func TestSyncBook_UnsupportedContentAfterBookCreated(t *testing.T) {
	src, dest := newFakeSource(), newFakeDest()
	src.books[1] = &domain.Book{
		ID:   1,
		Name: "Guide",
		Contents: []domain.ContentRef{
			src.addPage(1, 20),
			{ID: 30, Type: "survey", Kind: domain.ContentUnknown},
			src.addPage(1, 40),
		},
	}

	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})
	run, err := svc.SyncBook(context.Background(), 1)

	syncErr := requireSyncError(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedContent)
	assert.Equal(t, domainerrors.CodeUnsupportedContent, syncErr.Kind())
	assert.Equal(t, domain.StateCopyingChildren, syncErr.Step)
	assert.Equal(t, domain.StateCopyingBook, syncErr.LastCompleted)
	assert.Equal(t, "survey", syncErr.Entity)
	assert.Equal(t, int64(30), syncErr.SourceID)

	// The book and the preceding page stay on the destination.
	calls := dest.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "book", calls[0].kind)
	assert.Equal(t, "p20", calls[1].page.Name)
	assert.Equal(t, calls[0].id, run.DestBookID)
	assert.Equal(t, run.DestBookID, syncErr.DestBookID, "the failure names the partial copy")
	assert.Equal(t, domain.StateFailed, run.State)
	assert.Equal(t, domain.StateCopyingChildren, run.FailedStep)
}

func TestSyncBook_VerificationFailures(t *testing.T) {
	tests := []struct {
		name      string
		sourceErr error
		destErr   error
		wantKind  domainerrors.Code
		wantStep  domain.SyncState
	}{
		{
			name:      "source rejects token",
			sourceErr: domainerrors.Unauthorized("status 401: Unauthenticated"),
			wantKind:  domainerrors.CodeUnauthorized,
			wantStep:  domain.StateVerifyingSource,
		},
		{
			name:     "destination rejects token",
			destErr:  domainerrors.Unauthorized("status 401: Unauthenticated"),
			wantKind: domainerrors.CodeUnauthorized,
			wantStep: domain.StateVerifyingDestination,
		},
		{
			name:      "source unreachable",
			sourceErr: domainerrors.Transport("execute request", errors.New("connection refused")),
			wantKind:  domainerrors.CodeTransport,
			wantStep:  domain.StateVerifyingSource,
		},
		{
			name:     "destination server error reported as transport",
			destErr:  domainerrors.Server("status 502: Bad Gateway"),
			wantKind: domainerrors.CodeTransport,
			wantStep: domain.StateVerifyingDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dest := scenarioSource(), newFakeDest()
			src.verifyErr = tt.sourceErr
			dest.verifyErr = tt.destErr

			svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})
			run, err := svc.SyncBook(context.Background(), 1)

			syncErr := requireSyncError(t, err)
			assert.Equal(t, tt.wantKind, syncErr.Kind())
			assert.Equal(t, tt.wantStep, syncErr.Step)
			assert.Empty(t, src.reads, "no content is read before both instances verify")
			assert.Empty(t, dest.snapshot())
			assert.Zero(t, syncErr.DestBookID)
			assert.Equal(t, string(tt.wantKind), run.ErrorKind)
		})
	}
}

func TestSyncBook_ReadFailureNamesEntity(t *testing.T) {
	src, dest := scenarioSource(), newFakeDest()
	src.readErrs["page:102"] = domainerrors.NotFound("status 404: Page not found")

	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})
	run, err := svc.SyncBook(context.Background(), 1)

	syncErr := requireSyncError(t, err)
	assert.Equal(t, domainerrors.CodeNotFound, syncErr.Kind())
	assert.Equal(t, "page", syncErr.Entity)
	assert.Equal(t, int64(102), syncErr.SourceID)
	assert.Contains(t, syncErr.Error(), "page 102")

	assert.Equal(t, "page", run.FailedEntity)
	assert.Equal(t, int64(102), run.FailedEntityID)
	assert.Equal(t, 1, run.PagesCreated, "page 101 was created before the failure")
	assert.Equal(t, 1, dest.count("page"))
}

func TestSyncBook_CreateFailureStopsRun(t *testing.T) {
	src, dest := scenarioSource(), newFakeDest()
	dest.failCreate = func(c createCall) error {
		if c.kind == "chapter" {
			return domainerrors.ValidationWithDetails("status 422: The given data was invalid.", map[string][]string{"name": {"required"}})
		}
		return nil
	}

	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})
	_, err := svc.SyncBook(context.Background(), 1)

	syncErr := requireSyncError(t, err)
	assert.Equal(t, domainerrors.CodeValidation, syncErr.Kind())
	assert.Equal(t, "chapter", syncErr.Entity)
	assert.Equal(t, int64(10), syncErr.SourceID)
	assert.Equal(t, 1, dest.count("book"))
	assert.Equal(t, 0, dest.count("page"), "nothing after the failed chapter is attempted")
}

func TestSyncBook_LocalValidationBeforeCreate(t *testing.T) {
	src, dest := scenarioSource(), newFakeDest()
	src.pages[20].Markdown = ""
	src.pages[20].HTML = ""

	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})
	_, err := svc.SyncBook(context.Background(), 1)

	syncErr := requireSyncError(t, err)
	assert.Equal(t, domainerrors.CodeValidation, syncErr.Kind())
	assert.Equal(t, int64(20), syncErr.SourceID)
	for _, c := range dest.snapshot() {
		assert.NotEqual(t, "p20", c.page.Name, "invalid draft never reaches the destination")
	}
}

func TestSyncBook_PageWorkerFailureDrains(t *testing.T) {
	src, dest := newFakeSource(), newFakeDest()
	src.books[1] = &domain.Book{
		ID:   1,
		Name: "Guide",
		Contents: []domain.ContentRef{
			src.addChapter(1, 10, 101, 102, 103, 104),
			src.addChapter(1, 11, 111),
		},
	}
	// Page 101 fails at once while 102 is still in flight, so 103 is waiting
	// for a worker slot when the failure lands.
	src.readErrs["page:101"] = domainerrors.Server("status 500: Server Error")
	src.readDelays["page:102"] = 100 * time.Millisecond

	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{PageWorkers: 2})
	run, err := svc.SyncBook(context.Background(), 1)

	syncErr := requireSyncError(t, err)
	assert.Equal(t, domainerrors.CodeServer, syncErr.Kind())
	assert.Equal(t, int64(101), syncErr.SourceID)

	reads := src.readLog()
	assert.NotContains(t, reads, "page:103", "no page is started after the failure")
	assert.NotContains(t, reads, "page:104")
	assert.NotContains(t, reads, "chapter:11", "the next chapter is never started")

	assert.Equal(t, 1, dest.count("chapter"))
	require.Equal(t, 1, dest.count("page"), "only the in-flight page is created")
	assert.Equal(t, "p102", dest.snapshot()[2].page.Name)
	assert.Equal(t, 1, run.PagesCreated, "in-flight pages are still recorded")
	assert.Contains(t, run.Remap.Pages, int64(102))
}

func TestSyncBook_Cancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		src, dest := scenarioSource(), newFakeDest()
		svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		run, err := svc.SyncBook(ctx, 1)
		syncErr := requireSyncError(t, err)
		assert.Equal(t, domainerrors.CodeCanceled, syncErr.Kind())
		assert.Equal(t, domain.StateVerifyingSource, syncErr.Step)
		assert.Equal(t, domain.StateFailed, run.State)
	})

	t.Run("between steps", func(t *testing.T) {
		src, dest := scenarioSource(), newFakeDest()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		dest.onCreate = func(c createCall) {
			if c.kind == "book" {
				cancel()
			}
		}

		svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})
		run, err := svc.SyncBook(ctx, 1)

		syncErr := requireSyncError(t, err)
		assert.Equal(t, domainerrors.CodeCanceled, syncErr.Kind())
		assert.Equal(t, domain.StateCopyingChildren, syncErr.Step)
		assert.Equal(t, domain.StateCopyingBook, syncErr.LastCompleted)
		assert.NotZero(t, run.DestBookID)
		assert.Equal(t, 1, len(dest.snapshot()))
	})
}

func TestSyncBook_MarkdownBodies(t *testing.T) {
	src, dest := scenarioSource(), newFakeDest()
	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{MarkdownBodies: true})

	_, err := svc.SyncBook(context.Background(), 1)
	require.NoError(t, err)

	for _, c := range dest.snapshot() {
		if c.kind != "page" {
			continue
		}
		assert.Empty(t, c.page.HTML)
		assert.Equal(t, "body", c.page.Markdown)
	}
}

func TestSyncBook_InvalidSourceID(t *testing.T) {
	svc := newTestSyncService(scenarioSource(), newFakeDest(), nil, nil, SyncOptions{})

	run, err := svc.SyncBook(context.Background(), 0)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Nil(t, run)
}

// recordingJournal keeps every saved state.
type recordingJournal struct {
	mu      sync.Mutex
	states  []domain.SyncState
	saveErr error
}

func (j *recordingJournal) Save(_ context.Context, run *domain.SyncRun) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.states = append(j.states, run.State)
	return j.saveErr
}

func (j *recordingJournal) Get(context.Context, string) (*domain.SyncRun, error) {
	return nil, store.ErrNotFound
}

func (j *recordingJournal) List(context.Context, store.RunFilter) (*store.PaginatedResult[domain.SyncRun], error) {
	return &store.PaginatedResult[domain.SyncRun]{}, nil
}

func TestSyncBook_JournalsTransitions(t *testing.T) {
	journal := &recordingJournal{}
	svc := newTestSyncService(scenarioSource(), newFakeDest(), nil, journal, SyncOptions{})

	_, err := svc.SyncBook(context.Background(), 1)
	require.NoError(t, err)

	states := slices.Compact(slices.Clone(journal.states))
	assert.Equal(t, []domain.SyncState{
		domain.StateVerifyingSource,
		domain.StateVerifyingDestination,
		domain.StateCopyingBook,
		domain.StateCopyingChildren,
		domain.StateDone,
	}, states)
}

func TestSyncBook_JournalFailureDoesNotFailSync(t *testing.T) {
	journal := &recordingJournal{saveErr: errors.New("disk full")}
	svc := newTestSyncService(scenarioSource(), newFakeDest(), nil, journal, SyncOptions{})

	run, err := svc.SyncBook(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, run.Succeeded())
}

func TestStartSync_RunsInBackground(t *testing.T) {
	s, err := store.New("", nil)
	require.NoError(t, err)
	defer s.Close()

	dest := newFakeDest()
	svc := newTestSyncService(scenarioSource(), dest, nil, s.Runs, SyncOptions{})

	started, err := svc.StartSync(context.Background(), 1)
	require.NoError(t, err)
	assert.NotEmpty(t, started.ID)

	require.Eventually(t, func() bool {
		run, err := svc.GetRun(context.Background(), started.ID)
		return err == nil && run.State.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	svc.Shutdown()

	run, err := svc.GetRun(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, run.State)
	assert.Equal(t, 3, run.PagesCreated)

	runs, err := svc.ListRuns(context.Background(), store.RunFilter{SourceBookID: 1})
	require.NoError(t, err)
	require.Len(t, runs.Items, 1)

	_, err = svc.GetRun(context.Background(), "run-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = svc.StartSync(context.Background(), 1)
	assert.ErrorIs(t, err, domainerrors.ErrCanceled, "no new runs after shutdown")
}

func TestStartSync_ConcurrentWithShutdown(t *testing.T) {
	s, err := store.New("", nil)
	require.NoError(t, err)
	defer s.Close()

	svc := newTestSyncService(scenarioSource(), newFakeDest(), nil, s.Runs, SyncOptions{})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []string
	)
	for range 8 {
		wg.Go(func() {
			run, err := svc.StartSync(context.Background(), 1)
			if err != nil {
				assert.ErrorIs(t, err, domainerrors.ErrCanceled)
				return
			}
			mu.Lock()
			accepted = append(accepted, run.ID)
			mu.Unlock()
		})
	}
	svc.Shutdown()
	wg.Wait()
	svc.Shutdown()

	// Every run accepted before shutdown was waited for.
	for _, runID := range accepted {
		run, err := svc.GetRun(context.Background(), runID)
		require.NoError(t, err)
		assert.True(t, run.State.Terminal(), "run %s left in %s", runID, run.State)
	}
}

func TestSyncService_VerifyCredentials(t *testing.T) {
	src, dest := scenarioSource(), newFakeDest()
	svc := newTestSyncService(src, dest, nil, nil, SyncOptions{})
	ctx := context.Background()

	assert.NoError(t, svc.VerifyCredentials(ctx, bookstack.SideSource))

	src.verifyErr = domainerrors.Unauthorized("status 401")
	err := svc.VerifyCredentials(ctx, bookstack.SideSource)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	assert.NotErrorIs(t, err, domainerrors.ErrTransport)

	dest.verifyErr = domainerrors.Server("status 503")
	err = svc.VerifyCredentials(ctx, bookstack.SideDestination)
	code, _ := domainerrors.CodeOf(err)
	assert.Equal(t, domainerrors.CodeTransport, code)

	err = svc.VerifyCredentials(ctx, bookstack.Side("mirror"))
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
