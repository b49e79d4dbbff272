package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"kb-chat/internal/models"
	"kb-chat/internal/store"
)

var ErrChatNotFound = errors.New("chat not found")

// OrderUpdatedDesc is the default listing order: most recently touched
// chat first.
const OrderUpdatedDesc = "-updated_date"

// ChatPatch carries the fields of a partial update. Nil fields are left
// untouched; UpdatedAt is always refreshed.
type ChatPatch struct {
	Title        *string
	LastMessage  *string
	MessageCount *int
}

// ChatRepository is a stateless facade over the record store's chats
// collection. Every mutation is read-modify-write without concurrency
// tokens; concurrent writers to the same chat follow last-write-wins.
type ChatRepository struct {
	store store.RecordStore
}

func NewChatRepository(s store.RecordStore) *ChatRepository {
	return &ChatRepository{store: s}
}

func (r *ChatRepository) List(ctx context.Context, orderBy string) ([]models.Chat, error) {
	records, err := r.store.ReadAll(ctx, store.CollectionChats)
	if err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0, len(records))
	for _, rec := range records {
		chat, err := decodeChat(rec)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}

	switch orderBy {
	case "", OrderUpdatedDesc:
		// Stable so chats touched at the same instant keep store order.
		sort.SliceStable(chats, func(i, j int) bool {
			return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
		})
	default:
		return nil, fmt.Errorf("unsupported chat order %q", orderBy)
	}

	return chats, nil
}

func (r *ChatRepository) Get(ctx context.Context, id string) (*models.Chat, error) {
	data, err := r.store.Get(ctx, store.CollectionChats, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return decodeChat(store.Record{ID: id, Data: data})
}

func (r *ChatRepository) Create(ctx context.Context, title string) (*models.Chat, error) {
	chat := models.NewChat(title)
	if err := r.put(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *ChatRepository) Update(ctx context.Context, id string, patch ChatPatch) (*models.Chat, error) {
	chat, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		chat.Title = *patch.Title
	}
	if patch.LastMessage != nil {
		chat.LastMessage = *patch.LastMessage
	}
	if patch.MessageCount != nil {
		chat.MessageCount = *patch.MessageCount
	}
	chat.UpdatedAt = time.Now()

	if err := r.put(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// Delete removes the chat together with every message that references it, in
// a single store transaction. Deleting an absent chat succeeds.
func (r *ChatRepository) Delete(ctx context.Context, id string) error {
	records, err := r.store.ReadAll(ctx, store.CollectionMessages)
	if err != nil {
		return err
	}

	refs := []store.Ref{{Collection: store.CollectionChats, ID: id}}
	for _, rec := range records {
		msg, err := decodeMessage(rec)
		if err != nil {
			return err
		}
		if msg.ChatID == id {
			refs = append(refs, store.Ref{Collection: store.CollectionMessages, ID: msg.ID})
		}
	}

	return r.store.DeleteRefs(ctx, refs)
}

func (r *ChatRepository) put(ctx context.Context, chat *models.Chat) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	return r.store.Put(ctx, store.CollectionChats, chat.ID, data)
}

func decodeChat(rec store.Record) (*models.Chat, error) {
	var chat models.Chat
	if err := json.Unmarshal(rec.Data, &chat); err != nil {
		return nil, fmt.Errorf("chat %s: %w: %v", rec.ID, store.ErrCorruptRecord, err)
	}
	return &chat, nil
}
