package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	"github.com/faithconnect/bookstack-sync/internal/store"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "startSync",
		Method:      http.MethodPost,
		Path:        "/api/v1/syncs",
		Summary:     "Sync a book",
		Description: "Copies a source book with its chapters, pages, tags and cover to the destination. " +
			"Inline syncs answer 201 with the finished run; async syncs answer 202 with a run to poll. " +
			"A failed inline sync answers with the error kind and the step it stopped at. " +
			"Nothing is rolled back: re-running creates a second copy.",
		Tags: []string{"Syncs"},
	}, s.handleStartSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSyncs",
		Method:      http.MethodGet,
		Path:        "/api/v1/syncs",
		Summary:     "List sync runs",
		Description: "Lists recorded runs newest first",
		Tags:        []string{"Syncs"},
	}, s.handleListSyncs)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSync",
		Method:      http.MethodGet,
		Path:        "/api/v1/syncs/{id}",
		Summary:     "Get sync run",
		Description: "Returns a recorded run, including its id remap and failure details",
		Tags:        []string{"Syncs"},
	}, s.handleGetSync)
}

// StartSyncRequest selects the book to copy.
type StartSyncRequest struct {
	SourceBookID int64 `json:"source_book_id" minimum:"1" doc:"ID of the book on the source instance"`
	Async        bool  `json:"async,omitempty" doc:"Run in the background and return immediately"`
}

// StartSyncInput wraps the request body for Huma.
type StartSyncInput struct {
	Body StartSyncRequest
}

// SyncRunOutput returns one run.
type SyncRunOutput struct {
	Status int
	Body   *domain.SyncRun
}

// ListSyncsInput filters the run listing.
type ListSyncsInput struct {
	SourceBookID int64  `query:"source_book_id" minimum:"0" doc:"Only runs for this source book"`
	Limit        int    `query:"limit" minimum:"0" maximum:"200" doc:"Maximum runs to return (default 50)"`
	Cursor       string `query:"cursor" doc:"Cursor from a previous page's next_cursor"`
}

// ListSyncsResponse contains journal entries.
type ListSyncsResponse struct {
	Runs       []domain.SyncRun `json:"runs" doc:"Runs newest first"`
	NextCursor string           `json:"next_cursor,omitempty" doc:"Pass as cursor to fetch the next page"`
	HasMore    bool             `json:"has_more" doc:"Whether more runs follow"`
}

// ListSyncsOutput wraps the run listing for Huma.
type ListSyncsOutput struct {
	Body ListSyncsResponse
}

// SyncIDInput identifies a run.
type SyncIDInput struct {
	ID string `path:"id" doc:"Run ID"`
}

func (s *Server) handleStartSync(ctx context.Context, input *StartSyncInput) (*SyncRunOutput, error) {
	if input.Body.Async {
		run, err := s.services.Sync.StartSync(ctx, input.Body.SourceBookID)
		if err != nil {
			return nil, toAPIError(err)
		}
		return &SyncRunOutput{Status: http.StatusAccepted, Body: run}, nil
	}

	run, err := s.services.Sync.SyncBook(ctx, input.Body.SourceBookID)
	if err != nil {
		s.logger.Warn("Sync failed", "source_book_id", input.Body.SourceBookID, "error", err)
		return nil, toAPIError(err)
	}
	return &SyncRunOutput{Status: http.StatusCreated, Body: run}, nil
}

func (s *Server) handleListSyncs(ctx context.Context, input *ListSyncsInput) (*ListSyncsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = DefaultRunListLimit
	}
	limit = min(limit, MaxRunListLimit)

	page, err := s.services.Sync.ListRuns(ctx, store.RunFilter{
		SourceBookID: input.SourceBookID,
		Limit:        limit,
		Cursor:       input.Cursor,
	})
	if err != nil {
		s.logger.Warn("Failed to list sync runs", "error", err)
		return nil, toAPIError(err)
	}
	runs := page.Items
	if runs == nil {
		runs = []domain.SyncRun{}
	}
	return &ListSyncsOutput{Body: ListSyncsResponse{
		Runs:       runs,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (s *Server) handleGetSync(ctx context.Context, input *SyncIDInput) (*SyncRunOutput, error) {
	run, err := s.services.Sync.GetRun(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SyncRunOutput{Status: http.StatusOK, Body: run}, nil
}
