package store

import (
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

// Sentinel errors. Both carry domain codes so API handlers map them without
// knowing about the store.
var (
	ErrNotFound = domainerrors.NotFound("record not found")

	ErrAlreadyExists = domainerrors.Validation("record already exists")
)
