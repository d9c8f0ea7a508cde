package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic persistence for any JSON-serializable type.
//
// Keys are laid out as:
//
//	<prefix><id>                          -> JSON record
//	<prefix>idx:<index>:<value>:<id>      -> empty (non-unique secondary index)
//
// Index values may themselves contain colons; ScanIndex relies on that to walk
// every value sharing a leading scope, such as all timestamps of one book.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a non-unique secondary index on an entity.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:  s,
		prefix: prefix,
	}
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:   name,
		keyGen: keyGen,
	})
	return e
}

func (e *Entity[T]) indexPrefix(name, value string) string {
	return e.prefix + "idx:" + name + ":" + value + ":"
}

// Create stores a new entity under id.
// Returns ErrAlreadyExists if an entity with this ID already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	return e.write(ctx, id, entity, true)
}

// Put stores entity under id, replacing any previous version and its index entries.
func (e *Entity[T]) Put(ctx context.Context, id string, entity *T) error {
	return e.write(ctx, id, entity, false)
}

func (e *Entity[T]) write(ctx context.Context, id string, entity *T, mustCreate bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(e.prefix + id)

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		old, err := e.load(txn, key)
		switch {
		case err == nil && mustCreate:
			return ErrAlreadyExists
		case err == nil:
			if err := e.deleteIndexes(txn, id, old); err != nil {
				return err
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}

		for _, idx := range e.indexes {
			for _, value := range idx.keyGen(entity) {
				if err := txn.Set([]byte(e.indexPrefix(idx.name, value)+id), nil); err != nil {
					return fmt.Errorf("failed to set index key: %w", err)
				}
			}
		}
		return nil
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := recordKey(e.prefix, id)
	defer releaseKey(key)

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.load(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(e.prefix + id)

	return e.store.db.Update(func(txn *badger.Txn) error {
		old, err := e.load(txn, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := e.deleteIndexes(txn, id, old); err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		return nil
	})
}

// List returns an iterator over all entities in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				// Skip index keys
				if strings.HasPrefix(string(it.Item().Key()[len(e.prefix):]), "idx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, fmt.Errorf("failed to unmarshal entity: %w", err))
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}
			return nil
		})
	}
}

// ListByIndex returns an iterator over the entities whose index values include value.
func (e *Entity[T]) ListByIndex(ctx context.Context, indexName, value string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			prefix := indexValuePrefix(e.prefix, indexName, value)
			defer releaseKey(prefix)

			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				id := string(it.Item().Key()[len(prefix):])
				entity, err := e.loadID(txn, id)
				if errors.Is(err, ErrNotFound) {
					continue // Dangling index entry
				}
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(entity, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// Indexed is an entity together with the index key it was reached through.
// The key is what ScanIndex resumes after.
type Indexed[T any] struct {
	Key   string
	Value *T
}

// ScanOptions controls an index walk.
type ScanOptions struct {
	// Scope narrows the walk to index values starting with it.
	Scope string
	// Reverse walks from the highest key down.
	Reverse bool
	// After resumes strictly past this index key.
	After string
}

// ScanIndex walks an index in key order. idOf recovers the entity id from an
// index key, since the value length is not known to the entity.
func (e *Entity[T]) ScanIndex(ctx context.Context, indexName string, opts ScanOptions, idOf func(key []byte) (string, error)) iter.Seq2[Indexed[T], error] {
	return func(yield func(Indexed[T], error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			prefix := []byte(e.prefix + "idx:" + indexName + ":" + opts.Scope)

			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			iterOpts.PrefetchValues = false
			iterOpts.Reverse = opts.Reverse

			it := txn.NewIterator(iterOpts)
			defer it.Close()

			start := prefix
			switch {
			case opts.After != "":
				start = []byte(opts.After)
			case opts.Reverse:
				start = append(append([]byte{}, prefix...), 0xFF)
			}

			for it.Seek(start); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(Indexed[T]{}, err)
					return err
				}

				key := it.Item().KeyCopy(nil)
				if opts.After != "" && string(key) == opts.After {
					continue
				}

				id, err := idOf(key)
				if err != nil {
					yield(Indexed[T]{}, err)
					return err
				}
				entity, err := e.loadID(txn, id)
				if errors.Is(err, ErrNotFound) {
					continue // Dangling index entry
				}
				if err != nil {
					yield(Indexed[T]{}, err)
					return err
				}

				if !yield(Indexed[T]{Key: string(key), Value: entity}, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// loadID reads the record id inside txn.
func (e *Entity[T]) loadID(txn *badger.Txn, id string) (*T, error) {
	key := recordKey(e.prefix, id)
	defer releaseKey(key)
	return e.load(txn, key)
}

func (e *Entity[T]) load(txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	err = item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, &entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (e *Entity[T]) deleteIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if err := txn.Delete([]byte(e.indexPrefix(idx.name, value) + id)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}
