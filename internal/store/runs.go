package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

const (
	runPrefix = "run:"

	// Both indexes end in {timestamp}:{id}, so a reverse walk is newest first.
	runIndexStarted = "started"
	runIndexSource  = "source"
)

// Runs is the sync run journal.
type Runs struct {
	entity *Entity[domain.SyncRun]
}

func newRuns(s *Store) *Runs {
	return &Runs{
		entity: NewEntity[domain.SyncRun](s, runPrefix).
			WithIndex(runIndexStarted, func(r *domain.SyncRun) []string {
				return []string{sortableTimestamp(r.StartedAt)}
			}).
			WithIndex(runIndexSource, func(r *domain.SyncRun) []string {
				return []string{sourceScope(r.SourceBookID) + sortableTimestamp(r.StartedAt)}
			}),
	}
}

func sourceScope(bookID int64) string {
	return strconv.FormatInt(bookID, 10) + ":"
}

// RunFilter narrows a journal listing. Zero values select everything.
type RunFilter struct {
	SourceBookID int64
	// Limit is the page size; see PaginationParams for defaults.
	Limit int
	// Cursor resumes after the last run of a previous page.
	Cursor string
}

// Save records the current state of run, replacing any earlier snapshot.
func (r *Runs) Save(ctx context.Context, run *domain.SyncRun) error {
	return r.entity.Put(ctx, run.ID, run)
}

// Get returns the run with the given id.
func (r *Runs) Get(ctx context.Context, id string) (*domain.SyncRun, error) {
	return r.entity.Get(ctx, id)
}

// Delete removes a run from the journal.
func (r *Runs) Delete(ctx context.Context, id string) error {
	return r.entity.Delete(ctx, id)
}

// List returns one page of runs, newest first.
func (r *Runs) List(ctx context.Context, filter RunFilter) (*PaginatedResult[domain.SyncRun], error) {
	params := PaginationParams{Limit: filter.Limit, Cursor: filter.Cursor}
	params.Validate()

	after, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid cursor")
	}

	index, scope := runIndexStarted, ""
	if filter.SourceBookID != 0 {
		index, scope = runIndexSource, sourceScope(filter.SourceBookID)
	}
	prefix := runPrefix + "idx:" + index + ":" + scope
	if after != "" && !strings.HasPrefix(after, prefix) {
		return nil, domainerrors.Validation("cursor does not belong to this listing")
	}

	idOf := func(key []byte) (string, error) { return timestampIndexID(key, prefix) }
	opts := ScanOptions{Scope: scope, Reverse: true, After: after}

	result := &PaginatedResult[domain.SyncRun]{Items: []domain.SyncRun{}}
	var lastKey string
	for item, err := range r.entity.ScanIndex(ctx, index, opts, idOf) {
		if err != nil {
			return nil, err
		}
		if len(result.Items) == params.Limit {
			result.HasMore = true
			result.NextCursor = EncodeCursor(lastKey)
			break
		}
		result.Items = append(result.Items, *item.Value)
		lastKey = item.Key
	}
	return result, nil
}
