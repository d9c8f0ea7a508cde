package domain

import "time"

// SyncState is a step of the sync state machine.
type SyncState string

// Sync states in the order a successful run visits them. Failed is reachable from any step.
const (
	StateIdle                 SyncState = "idle"
	StateVerifyingSource      SyncState = "verifying_source"
	StateVerifyingDestination SyncState = "verifying_destination"
	StateCopyingBook          SyncState = "copying_book"
	StateCopyingChildren      SyncState = "copying_children"
	StateDone                 SyncState = "done"
	StateFailed               SyncState = "failed"
)

// Terminal reports whether no further transitions follow the state.
func (s SyncState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// IDRemap records the destination id assigned to each copied source entity.
type IDRemap struct {
	Chapters map[int64]int64 `json:"chapters"`
	Pages    map[int64]int64 `json:"pages"`
}

// NewIDRemap returns an empty remap table.
func NewIDRemap() IDRemap {
	return IDRemap{
		Chapters: make(map[int64]int64),
		Pages:    make(map[int64]int64),
	}
}

// SyncRun is the journal record of one SyncBook invocation.
type SyncRun struct {
	ID            string    `json:"id"`
	SourceBookID  int64     `json:"source_book_id"`
	SourceURL     string    `json:"source_url"`
	DestURL       string    `json:"destination_url"`
	State         SyncState `json:"state"`
	LastCompleted SyncState `json:"last_completed"`
	DestBookID    int64     `json:"destination_book_id,omitzero"`
	Remap         IDRemap   `json:"remap"`

	ChaptersCreated int `json:"chapters_created"`
	PagesCreated    int `json:"pages_created"`

	// Failure details, set only when State is StateFailed.
	ErrorKind      string    `json:"error_kind,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	FailedStep     SyncState `json:"failed_step,omitempty"`
	FailedEntity   string    `json:"failed_entity,omitempty"`
	FailedEntityID int64     `json:"failed_entity_id,omitzero"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Succeeded reports whether the run reached StateDone.
func (r *SyncRun) Succeeded() bool {
	return r.State == StateDone
}
