package store

import (
	"context"
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	s, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestReadAllEmptyCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records, err := s.ReadAll(ctx, CollectionChats)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty collection, got %d records", len(records))
	}
}

func TestPutAndReadAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, CollectionChats, "a", []byte(`{"id":"a"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, CollectionChats, "b", []byte(`{"id":"b"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// A record in another collection must not leak into the read
	if err := s.Put(ctx, CollectionMessages, "m", []byte(`{"id":"m"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	records, err := s.ReadAll(ctx, CollectionChats)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	ids := make(map[string]string)
	for _, rec := range records {
		ids[rec.ID] = string(rec.Data)
	}
	if ids["a"] != `{"id":"a"}` {
		t.Errorf("Expected record a to round-trip, got %q", ids["a"])
	}
	if ids["b"] != `{"id":"b"}` {
		t.Errorf("Expected record b to round-trip, got %q", ids["b"])
	}
}

func TestPutOverwritesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, CollectionChats, "a", []byte(`v1`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, CollectionChats, "a", []byte(`v2`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := s.Get(ctx, CollectionChats, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("Expected last write to win, got %q", string(data))
	}
}

func TestWriteAllReplacesCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, CollectionChats, "stale", []byte(`old`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	err := s.WriteAll(ctx, CollectionChats, []Record{
		{ID: "x", Data: []byte(`1`)},
		{ID: "y", Data: []byte(`2`)},
	})
	if err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	records, err := s.ReadAll(ctx, CollectionChats)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records after replace, got %d", len(records))
	}
	for _, rec := range records {
		if rec.ID == "stale" {
			t.Errorf("Expected stale record to be cleared by WriteAll")
		}
	}
}

func TestGetMissingRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, CollectionChats, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, CollectionChats, "a", []byte(`1`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.Delete(ctx, CollectionChats, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, CollectionChats, "a"); err != nil {
		t.Errorf("Expected deleting an absent record to succeed, got %v", err)
	}

	_, err := s.Get(ctx, CollectionChats, "a")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteRefsAcrossCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, CollectionChats, "c1", []byte(`chat`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, CollectionMessages, "m1", []byte(`msg`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, CollectionMessages, "m2", []byte(`msg`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	refs := []Ref{
		{Collection: CollectionChats, ID: "c1"},
		{Collection: CollectionMessages, ID: "m1"},
		{Collection: CollectionMessages, ID: "absent"},
	}
	if err := s.DeleteRefs(ctx, refs); err != nil {
		t.Fatalf("DeleteRefs failed: %v", err)
	}

	if _, err := s.Get(ctx, CollectionChats, "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected chat c1 to be deleted, got %v", err)
	}
	if _, err := s.Get(ctx, CollectionMessages, "m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected message m1 to be deleted, got %v", err)
	}
	if _, err := s.Get(ctx, CollectionMessages, "m2"); err != nil {
		t.Errorf("Expected message m2 to survive, got %v", err)
	}
}
