package store

import (
	"context"
	"errors"
)

// Collection names understood by the repositories.
const (
	CollectionChats    = "chats"
	CollectionMessages = "messages"
)

// ErrNotFound is returned by Get when no record exists under the given id.
var ErrNotFound = errors.New("record not found")

// ErrCorruptRecord marks a stored record that can no longer be decoded.
// Callers must treat it as non-retryable and abort the surrounding operation.
var ErrCorruptRecord = errors.New("corrupt record")

// Record is a single stored entry: an opaque id and its serialized form.
type Record struct {
	ID   string
	Data []byte
}

// Ref names one record for cross-collection batch operations.
type Ref struct {
	Collection string
	ID         string
}

// RecordStore persists named collections of records. Operations on a single
// collection are atomic; nothing is transactional across separate calls, so
// read-modify-write sequences by concurrent callers can lose updates
// (last write wins).
type RecordStore interface {
	// ReadAll returns every record in the collection, ordered by id. A
	// collection that has never been written yields an empty sequence,
	// not an error.
	ReadAll(ctx context.Context, collection string) ([]Record, error)

	// WriteAll atomically replaces the whole collection.
	WriteAll(ctx context.Context, collection string, records []Record) error

	// Get returns the record data for id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) ([]byte, error)

	// Put upserts a single record.
	Put(ctx context.Context, collection, id string, data []byte) error

	// Delete removes a single record. Deleting an absent id is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// DeleteRefs removes all referenced records in one transaction,
	// possibly spanning collections.
	DeleteRefs(ctx context.Context, refs []Ref) error

	// Close releases the underlying database.
	Close() error
}
