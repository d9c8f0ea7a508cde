package service

import (
	"fmt"
	"strings"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

// SyncError is the structured failure of a sync run. It names the step that
// failed, the last step that completed and, when known, the source entity
// being copied, so an operator can decide between re-running and cleaning up.
type SyncError struct {
	RunID         string
	Step          domain.SyncState
	LastCompleted domain.SyncState
	Entity        string // "book", "chapter", "page", "cover" or the unrecognized content type
	SourceID      int64
	// DestBookID is the partially populated destination book, 0 if none was created.
	DestBookID    int64
	Err           error
}

func (e *SyncError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sync %s failed during %s", e.RunID, e.Step)
	if e.LastCompleted != "" && e.LastCompleted != domain.StateIdle {
		fmt.Fprintf(&b, " (last completed: %s)", e.LastCompleted)
	}
	if e.Entity != "" {
		fmt.Fprintf(&b, " on %s", e.Entity)
		if e.SourceID != 0 {
			fmt.Fprintf(&b, " %d", e.SourceID)
		}
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Kind reports the taxonomy code of the failure.
func (e *SyncError) Kind() domainerrors.Code {
	if code, ok := domainerrors.CodeOf(e.Err); ok {
		return code
	}
	return domainerrors.CodeInternal
}

// entityFailure attributes err to a source entity. The running step fills in the rest.
func entityFailure(entity string, sourceID int64, err error) *SyncError {
	return &SyncError{Entity: entity, SourceID: sourceID, Err: err}
}
