package service

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/domain"
	"github.com/faithconnect/bookstack-sync/internal/draft"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
	"github.com/faithconnect/bookstack-sync/internal/id"
	"github.com/faithconnect/bookstack-sync/internal/store"
	"github.com/faithconnect/bookstack-sync/internal/validation"
)

// SyncOptions tunes how a book is copied.
type SyncOptions struct {
	// PageWorkers bounds concurrent page copies within one chapter.
	// 1 (or less) copies pages strictly in source order.
	PageWorkers int
	// MarkdownBodies converts HTML-only pages to markdown on the destination.
	MarkdownBodies bool
}

// SyncService copies one book at a time from the source instance to the
// destination instance. Runs never share state; each owns its id remap.
type SyncService struct {
	source    SourceReader
	dest      DestinationWriter
	covers    CoverFetcher
	journal   RunJournal
	validator *validation.Validator
	opts      SyncOptions
	logger    *slog.Logger
	now       func() time.Time

	// Background runs started with StartSync. bgMu orders bgRuns.Go against
	// the Wait in Shutdown; no run is added once bgClosed is set.
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgMu     sync.Mutex
	bgClosed bool
	bgRuns   sync.WaitGroup
}

// NewSyncService creates a sync service. journal may be nil, in which case runs
// are not recorded and StartSync is unavailable.
func NewSyncService(
	source SourceReader,
	dest DestinationWriter,
	covers CoverFetcher,
	journal RunJournal,
	validator *validation.Validator,
	opts SyncOptions,
	logger *slog.Logger,
) *SyncService {
	if opts.PageWorkers < 1 {
		opts.PageWorkers = 1
	}
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())

	return &SyncService{
		source:    source,
		dest:      dest,
		covers:    covers,
		journal:   journal,
		validator: validator,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
	}
}

// VerifyCredentials checks one instance's token pair. A rejected token is an
// AUTH error; anything else that prevents the check is a TRANSPORT error.
func (s *SyncService) VerifyCredentials(ctx context.Context, side bookstack.Side) error {
	switch side {
	case bookstack.SideSource:
		return classifyVerify(side, s.source.VerifyCredentials(ctx))
	case bookstack.SideDestination:
		return classifyVerify(side, s.dest.VerifyCredentials(ctx))
	default:
		return domainerrors.Validationf("unknown instance side %q", side)
	}
}

func classifyVerify(side bookstack.Side, err error) error {
	if err == nil {
		return nil
	}
	code, _ := domainerrors.CodeOf(err)
	switch code {
	case domainerrors.CodeUnauthorized, domainerrors.CodeCanceled, domainerrors.CodeTransport:
		return err
	default:
		return domainerrors.Wrapf(err, domainerrors.CodeTransport, "%s instance unavailable", side)
	}
}

// SyncBook copies the source book and everything in it to the destination.
// The returned run is always non-nil; on failure the error is a *SyncError.
// A failed run is not rolled back: whatever was created on the destination stays.
func (s *SyncService) SyncBook(ctx context.Context, sourceBookID int64) (*domain.SyncRun, error) {
	run, err := s.newRun(sourceBookID)
	if err != nil {
		return nil, err
	}
	err = s.execute(ctx, run)
	return run, err
}

// StartSync records a new run and executes it in the background. The returned
// snapshot carries the run id to poll with GetRun.
func (s *SyncService) StartSync(ctx context.Context, sourceBookID int64) (*domain.SyncRun, error) {
	if s.journal == nil {
		return nil, domainerrors.Internal("background syncs need a run journal")
	}

	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.bgClosed {
		return nil, domainerrors.Wrap(context.Canceled, domainerrors.CodeCanceled, "sync service is shutting down")
	}

	run, err := s.newRun(sourceBookID)
	if err != nil {
		return nil, err
	}
	if err := s.journal.Save(ctx, run); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "record sync run")
	}

	snapshot := cloneRun(run)
	s.bgRuns.Go(func() {
		// Failures are recorded in the journal and logged by execute.
		_ = s.execute(s.bgCtx, run)
	})
	return snapshot, nil
}

// GetRun returns a recorded run.
func (s *SyncService) GetRun(ctx context.Context, runID string) (*domain.SyncRun, error) {
	if s.journal == nil {
		return nil, domainerrors.NotFoundf("sync run %s not found", runID)
	}
	run, err := s.journal.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("sync run %s not found", runID)
		}
		return nil, err
	}
	return run, nil
}

// ListRuns returns one page of recorded runs, newest first.
func (s *SyncService) ListRuns(ctx context.Context, filter store.RunFilter) (*store.PaginatedResult[domain.SyncRun], error) {
	if s.journal == nil {
		return &store.PaginatedResult[domain.SyncRun]{Items: []domain.SyncRun{}}, nil
	}
	return s.journal.List(ctx, filter)
}

// Shutdown cancels background runs and waits for them to record their outcome.
// Calling it more than once is safe.
func (s *SyncService) Shutdown() {
	s.bgMu.Lock()
	s.bgClosed = true
	s.bgMu.Unlock()

	s.bgCancel()
	s.bgRuns.Wait()
}

func (s *SyncService) newRun(sourceBookID int64) (*domain.SyncRun, error) {
	if sourceBookID <= 0 {
		return nil, domainerrors.Validationf("source book id must be positive, got %d", sourceBookID)
	}
	runID, err := id.NewRunID()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate run id")
	}
	return &domain.SyncRun{
		ID:            runID,
		SourceBookID:  sourceBookID,
		SourceURL:     s.source.BaseURL(),
		DestURL:       s.dest.BaseURL(),
		State:         domain.StateIdle,
		LastCompleted: domain.StateIdle,
		Remap:         domain.NewIDRemap(),
		StartedAt:     s.now().UTC(),
	}, nil
}

// execution is the mutable state of one run.
type execution struct {
	svc    *SyncService
	logger *slog.Logger

	mu  sync.Mutex // guards run while pages copy concurrently
	run *domain.SyncRun

	book *domain.Book // source book, fetched in StateCopyingBook
}

func (s *SyncService) execute(ctx context.Context, run *domain.SyncRun) error {
	x := &execution{
		svc:    s,
		run:    run,
		logger: s.logger.With("run_id", run.ID, "source_book_id", run.SourceBookID),
	}

	steps := []struct {
		state domain.SyncState
		fn    func(context.Context) error
	}{
		{domain.StateVerifyingSource, x.verifySource},
		{domain.StateVerifyingDestination, x.verifyDestination},
		{domain.StateCopyingBook, x.copyBook},
		{domain.StateCopyingChildren, x.copyChildren},
	}

	x.logger.Info("sync started",
		"source", run.SourceURL,
		"destination", run.DestURL,
	)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return x.fail(ctx, step.state, domainerrors.Wrap(err, domainerrors.CodeCanceled, "sync canceled"))
		}

		x.transition(ctx, step.state)
		if err := step.fn(ctx); err != nil {
			return x.fail(ctx, step.state, err)
		}

		x.mu.Lock()
		x.run.LastCompleted = step.state
		x.mu.Unlock()
	}

	x.mu.Lock()
	x.run.State = domain.StateDone
	x.run.FinishedAt = s.now().UTC()
	chapters, pages, destBookID := x.run.ChaptersCreated, x.run.PagesCreated, x.run.DestBookID
	x.mu.Unlock()
	x.persist(ctx)

	x.logger.Info("sync completed",
		"dest_book_id", destBookID,
		"chapters", chapters,
		"pages", pages,
	)
	return nil
}

func (x *execution) transition(ctx context.Context, state domain.SyncState) {
	x.mu.Lock()
	x.run.State = state
	x.mu.Unlock()

	x.logger.Debug("sync step", "step", state)
	x.persist(ctx)
}

// fail moves the run to StateFailed and returns the structured error.
func (x *execution) fail(ctx context.Context, step domain.SyncState, err error) error {
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		syncErr = &SyncError{Err: err}
	}

	x.mu.Lock()
	syncErr.RunID = x.run.ID
	syncErr.Step = step
	syncErr.LastCompleted = x.run.LastCompleted
	syncErr.DestBookID = x.run.DestBookID

	x.run.State = domain.StateFailed
	x.run.FailedStep = step
	x.run.FailedEntity = syncErr.Entity
	x.run.FailedEntityID = syncErr.SourceID
	x.run.ErrorKind = string(syncErr.Kind())
	x.run.ErrorMessage = syncErr.Err.Error()
	x.run.FinishedAt = x.svc.now().UTC()
	destBookID := x.run.DestBookID
	x.mu.Unlock()

	x.persist(ctx)

	x.logger.Error("sync failed",
		"step", step,
		"last_completed", syncErr.LastCompleted,
		"kind", syncErr.Kind(),
		"entity", syncErr.Entity,
		"source_id", syncErr.SourceID,
		"dest_book_id", destBookID,
		"error", syncErr.Err,
	)
	return syncErr
}

// persist snapshots the run into the journal. Journal trouble never fails a sync.
func (x *execution) persist(ctx context.Context) {
	if x.svc.journal == nil {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.svc.journal.Save(context.WithoutCancel(ctx), x.run); err != nil {
		x.logger.Warn("failed to record sync run", "state", x.run.State, "error", err)
	}
}

func (x *execution) verifySource(ctx context.Context) error {
	return classifyVerify(bookstack.SideSource, x.svc.source.VerifyCredentials(ctx))
}

func (x *execution) verifyDestination(ctx context.Context) error {
	return classifyVerify(bookstack.SideDestination, x.svc.dest.VerifyCredentials(ctx))
}

// copyBook fetches the source book, downloads its cover and creates the
// destination book. The destination id becomes the remap root.
func (x *execution) copyBook(ctx context.Context) error {
	srcID := x.run.SourceBookID

	book, err := x.svc.source.GetBook(ctx, srcID)
	if err != nil {
		return entityFailure("book", srcID, err)
	}
	x.book = book

	// A cover that cannot be downloaded aborts the copy before anything is created.
	var image []byte
	if book.HasCover() {
		image, err = x.svc.covers.Fetch(ctx, book.Cover.URL)
		if err != nil {
			return entityFailure("cover", srcID, err)
		}
	}

	d := draft.BookFrom(book, image)
	if err := x.svc.validator.Validate(d); err != nil {
		return entityFailure("book", srcID, err)
	}

	created, err := x.svc.dest.CreateBook(ctx, d)
	if err != nil {
		return entityFailure("book", srcID, err)
	}

	x.mu.Lock()
	x.run.DestBookID = created.ID
	x.mu.Unlock()

	x.logger.Info("book created",
		"dest_book_id", created.ID,
		"with_cover", d.HasImage(),
		"content_items", len(book.Contents),
	)
	x.persist(ctx)
	return nil
}

// copyChildren walks the book's contents in source order. Unknown content
// kinds abort the run; the already created book is left in place.
func (x *execution) copyChildren(ctx context.Context) error {
	destBookID := x.run.DestBookID

	for _, ref := range x.book.Contents {
		if err := ctx.Err(); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeCanceled, "sync canceled")
		}

		switch ref.Kind {
		case domain.ContentChapter:
			if err := x.copyChapter(ctx, ref.ID, destBookID); err != nil {
				return err
			}
		case domain.ContentPage:
			if err := x.copyPage(ctx, ref.ID, domain.InBook(destBookID)); err != nil {
				return err
			}
		default:
			return entityFailure(ref.Type, ref.ID,
				domainerrors.UnsupportedContentf("content item %d has unsupported type %q", ref.ID, ref.Type))
		}
	}
	return nil
}

// copyChapter creates the chapter and then all of its pages. Every page of the
// chapter completes or fails before this returns.
func (x *execution) copyChapter(ctx context.Context, srcID, destBookID int64) error {
	chapter, err := x.svc.source.GetChapter(ctx, srcID)
	if err != nil {
		return entityFailure("chapter", srcID, err)
	}

	d := draft.ChapterFrom(chapter, destBookID)
	if err := x.svc.validator.Validate(d); err != nil {
		return entityFailure("chapter", srcID, err)
	}

	created, err := x.svc.dest.CreateChapter(ctx, d)
	if err != nil {
		return entityFailure("chapter", srcID, err)
	}

	x.mu.Lock()
	x.run.Remap.Chapters[srcID] = created.ID
	x.run.ChaptersCreated++
	x.mu.Unlock()

	x.logger.Debug("chapter created",
		"source_id", srcID,
		"dest_id", created.ID,
		"pages", len(chapter.Pages),
	)

	placement := domain.InChapter(destBookID, created.ID)
	if x.svc.opts.PageWorkers <= 1 || len(chapter.Pages) <= 1 {
		for _, p := range chapter.Pages {
			if err := ctx.Err(); err != nil {
				return domainerrors.Wrap(err, domainerrors.CodeCanceled, "sync canceled")
			}
			if err := x.copyPage(ctx, p.ID, placement); err != nil {
				return err
			}
		}
	} else if err := x.copyPagesConcurrently(ctx, chapter.Pages, placement); err != nil {
		return err
	}

	x.persist(ctx)
	return nil
}

// copyPagesConcurrently copies a chapter's pages with a bounded worker pool.
// After the first failure no further pages are started, while copies already
// in flight are allowed to finish so their results are recorded. A failing
// worker closes stop before its slot frees, so a page waiting on g.Go for that
// slot sees stop closed and never reaches the source or the destination.
func (x *execution) copyPagesConcurrently(ctx context.Context, pages []domain.PageSummary, placement domain.Placement) error {
	var (
		g      errgroup.Group
		failed sync.Once
		stop   = make(chan struct{})
	)
	g.SetLimit(x.svc.opts.PageWorkers)

schedule:
	for _, p := range pages {
		select {
		case <-stop:
			break schedule
		default:
		}
		if ctx.Err() != nil {
			break schedule
		}

		g.Go(func() error {
			select {
			case <-stop:
				return nil
			default:
			}
			if err := x.copyPage(ctx, p.ID, placement); err != nil {
				failed.Do(func() { close(stop) })
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeCanceled, "sync canceled")
	}
	return nil
}

// copyPage fetches the full page and creates it at placement.
func (x *execution) copyPage(ctx context.Context, srcID int64, placement domain.Placement) error {
	page, err := x.svc.source.GetPage(ctx, srcID)
	if err != nil {
		return entityFailure("page", srcID, err)
	}

	d := draft.PageFrom(page, placement)
	if x.svc.opts.MarkdownBodies {
		d = draft.MarkdownBody(d)
	}
	if err := x.svc.validator.Validate(d); err != nil {
		return entityFailure("page", srcID, err)
	}

	created, err := x.svc.dest.CreatePage(ctx, d)
	if err != nil {
		return entityFailure("page", srcID, err)
	}

	x.mu.Lock()
	x.run.Remap.Pages[srcID] = created.ID
	x.run.PagesCreated++
	x.mu.Unlock()

	x.logger.Debug("page created", "source_id", srcID, "dest_id", created.ID)
	return nil
}

// cloneRun returns a copy that shares no maps with run.
func cloneRun(run *domain.SyncRun) *domain.SyncRun {
	c := *run
	c.Remap = domain.IDRemap{
		Chapters: maps.Clone(run.Remap.Chapters),
		Pages:    maps.Clone(run.Remap.Pages),
	}
	return &c
}
