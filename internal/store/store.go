// Package store persists the sync run journal in an embedded Badger database.
// The journal is local bookkeeping only; BookStack instances stay the source of
// truth for content.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Runs is the sync run journal.
	Runs *Runs
}

// New opens (or creates) the database at path. An empty path keeps the journal
// in memory, which is what one-shot CLI invocations and tests use.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
		opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	}
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}
	s.Runs = newRuns(s)

	if logger != nil {
		logger.Info("run journal opened", "path", path, "in_memory", path == "")
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing run journal")
	}
	return s.db.Close()
}

// Ping verifies the database accepts reads.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(_ *badger.Txn) error { return nil })
}
