package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"kb-chat/internal/models"
	"kb-chat/internal/store"
)

var ErrMessageNotFound = errors.New("message not found")

// MessagePatch carries the fields of a partial message update. Nil fields
// are left untouched.
type MessagePatch struct {
	Content *string
	Role    *string
}

// MessageCriteria matches messages by exact field equality. Empty fields are
// unconstrained. Only equality is supported, no ranges or partial matches.
type MessageCriteria struct {
	ChatID  string
	Role    string
	Content string
}

// MessageRepository is a stateless facade over the record store's messages
// collection.
type MessageRepository struct {
	store store.RecordStore
}

func NewMessageRepository(s store.RecordStore) *MessageRepository {
	return &MessageRepository{store: s}
}

// List returns messages for the chat ordered by timestamp ascending. An
// empty chatID returns every message across all chats; the UI always passes
// a chat id, the catch-all form exists for internal maintenance.
func (r *MessageRepository) List(ctx context.Context, chatID string) ([]models.Message, error) {
	messages, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	if chatID != "" {
		filtered := messages[:0]
		for _, msg := range messages {
			if msg.ChatID == chatID {
				filtered = append(filtered, msg)
			}
		}
		messages = filtered
	}

	sortByTimestamp(messages)
	return messages, nil
}

// Filter returns messages whose fields equal every set criteria field,
// ordered by timestamp ascending.
func (r *MessageRepository) Filter(ctx context.Context, criteria MessageCriteria) ([]models.Message, error) {
	messages, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := messages[:0]
	for _, msg := range messages {
		if criteria.ChatID != "" && msg.ChatID != criteria.ChatID {
			continue
		}
		if criteria.Role != "" && msg.Role != criteria.Role {
			continue
		}
		if criteria.Content != "" && msg.Content != criteria.Content {
			continue
		}
		matched = append(matched, msg)
	}

	sortByTimestamp(matched)
	return matched, nil
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	data, err := r.store.Get(ctx, store.CollectionMessages, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return decodeMessage(store.Record{ID: id, Data: data})
}

func (r *MessageRepository) Create(ctx context.Context, chatID, role, content string) (*models.Message, error) {
	msg := models.NewMessage(chatID, role, content)
	if err := r.put(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *MessageRepository) Update(ctx context.Context, id string, patch MessagePatch) (*models.Message, error) {
	msg, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Content != nil {
		msg.Content = *patch.Content
	}
	if patch.Role != nil {
		msg.Role = *patch.Role
	}

	if err := r.put(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Delete removes a single message. Deleting an absent id succeeds.
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, store.CollectionMessages, id)
}

// Count returns the true number of messages in the chat, independent of the
// denormalized counter kept on the chat record.
func (r *MessageRepository) Count(ctx context.Context, chatID string) (int, error) {
	messages, err := r.List(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return len(messages), nil
}

func (r *MessageRepository) readAll(ctx context.Context) ([]models.Message, error) {
	records, err := r.store.ReadAll(ctx, store.CollectionMessages)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(records))
	for _, rec := range records {
		msg, err := decodeMessage(rec)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

func (r *MessageRepository) put(ctx context.Context, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return r.store.Put(ctx, store.CollectionMessages, msg.ID, data)
}

func sortByTimestamp(messages []models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

func decodeMessage(rec store.Record) (*models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal(rec.Data, &msg); err != nil {
		return nil, fmt.Errorf("message %s: %w: %v", rec.ID, store.ErrCorruptRecord, err)
	}
	return &msg, nil
}
