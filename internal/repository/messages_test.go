package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"kb-chat/internal/models"
	"kb-chat/internal/store"
)

// putMessage writes a message record directly so tests control timestamps
// and insertion order independently.
func putMessage(t *testing.T, s store.RecordStore, msg models.Message) {
	t.Helper()

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}
	if err := s.Put(context.Background(), store.CollectionMessages, msg.ID, data); err != nil {
		t.Fatalf("Failed to put message: %v", err)
	}
}

func TestMessageListOrderedByTimestamp(t *testing.T) {
	s := newTestStore(t)
	repo := NewMessageRepository(s)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of chronological order on purpose
	putMessage(t, s, models.Message{ID: "m3", ChatID: "c1", Role: models.RoleUser, Content: "third", Timestamp: base.Add(2 * time.Minute)})
	putMessage(t, s, models.Message{ID: "m1", ChatID: "c1", Role: models.RoleUser, Content: "first", Timestamp: base})
	putMessage(t, s, models.Message{ID: "m2", ChatID: "c1", Role: models.RoleAssistant, Content: "second", Timestamp: base.Add(time.Minute)})
	putMessage(t, s, models.Message{ID: "x1", ChatID: "c2", Role: models.RoleUser, Content: "elsewhere", Timestamp: base})

	messages, err := repo.List(ctx, "c1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}

	expected := []string{"m1", "m2", "m3"}
	for i, id := range expected {
		if messages[i].ID != id {
			t.Errorf("Expected message %s at position %d, got %s", id, i, messages[i].ID)
		}
	}
}

func TestMessageListAllChats(t *testing.T) {
	s := newTestStore(t)
	repo := NewMessageRepository(s)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	putMessage(t, s, models.Message{ID: "m1", ChatID: "c1", Role: models.RoleUser, Content: "a", Timestamp: base})
	putMessage(t, s, models.Message{ID: "m2", ChatID: "c2", Role: models.RoleUser, Content: "b", Timestamp: base.Add(time.Minute)})

	messages, err := repo.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("Expected 2 messages across all chats, got %d", len(messages))
	}
}

func TestMessageFilter(t *testing.T) {
	s := newTestStore(t)
	repo := NewMessageRepository(s)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	putMessage(t, s, models.Message{ID: "m1", ChatID: "c1", Role: models.RoleUser, Content: "hello", Timestamp: base})
	putMessage(t, s, models.Message{ID: "m2", ChatID: "c1", Role: models.RoleAssistant, Content: "hi", Timestamp: base.Add(time.Minute)})
	putMessage(t, s, models.Message{ID: "m3", ChatID: "c2", Role: models.RoleUser, Content: "hello", Timestamp: base.Add(2 * time.Minute)})

	tests := []struct {
		name        string
		criteria    MessageCriteria
		expectedIDs []string
	}{
		{
			name:        "By chat",
			criteria:    MessageCriteria{ChatID: "c1"},
			expectedIDs: []string{"m1", "m2"},
		},
		{
			name:        "By role",
			criteria:    MessageCriteria{Role: models.RoleUser},
			expectedIDs: []string{"m1", "m3"},
		},
		{
			name:        "By chat and content",
			criteria:    MessageCriteria{ChatID: "c2", Content: "hello"},
			expectedIDs: []string{"m3"},
		},
		{
			name:        "Empty criteria matches everything",
			criteria:    MessageCriteria{},
			expectedIDs: []string{"m1", "m2", "m3"},
		},
		{
			name:        "No match",
			criteria:    MessageCriteria{ChatID: "c1", Content: "absent"},
			expectedIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, err := repo.Filter(ctx, tt.criteria)
			if err != nil {
				t.Fatalf("Filter failed: %v", err)
			}
			if len(matched) != len(tt.expectedIDs) {
				t.Fatalf("Expected %d messages, got %d", len(tt.expectedIDs), len(matched))
			}
			for i, id := range tt.expectedIDs {
				if matched[i].ID != id {
					t.Errorf("Expected message %s at position %d, got %s", id, i, matched[i].ID)
				}
			}
		})
	}
}

func TestMessageCreateDefaultsRole(t *testing.T) {
	repo := NewMessageRepository(newTestStore(t))
	ctx := context.Background()

	msg, err := repo.Create(ctx, "c1", "", "hello")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if msg.Role != models.RoleUser {
		t.Errorf("Expected default role %q, got %q", models.RoleUser, msg.Role)
	}
	if msg.Timestamp.IsZero() {
		t.Errorf("Expected a timestamp to be set")
	}

	got, err := repo.Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != "hello" {
		t.Errorf("Expected persisted content %q, got %q", "hello", got.Content)
	}
}

func TestMessageUpdatePatchesFields(t *testing.T) {
	repo := NewMessageRepository(newTestStore(t))
	ctx := context.Background()

	msg, err := repo.Create(ctx, "c1", models.RoleUser, "before")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	content := "after"
	updated, err := repo.Update(ctx, msg.ID, MessagePatch{Content: &content})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Content != "after" {
		t.Errorf("Expected content %q, got %q", "after", updated.Content)
	}
	if updated.Role != models.RoleUser {
		t.Errorf("Expected role untouched, got %q", updated.Role)
	}
}

func TestMessageGetMissing(t *testing.T) {
	repo := NewMessageRepository(newTestStore(t))

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound, got %v", err)
	}
}

func TestMessageDeleteIsIdempotent(t *testing.T) {
	repo := NewMessageRepository(newTestStore(t))
	ctx := context.Background()

	msg, err := repo.Create(ctx, "c1", models.RoleUser, "hello")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Delete(ctx, msg.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, msg.ID); err != nil {
		t.Errorf("Expected deleting an absent message to succeed, got %v", err)
	}
}

func TestMessageCount(t *testing.T) {
	repo := NewMessageRepository(newTestStore(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, "c1", models.RoleUser, "hello"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := repo.Create(ctx, "c2", models.RoleUser, "other"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	count, err := repo.Count(ctx, "c1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 messages, got %d", count)
	}
}
