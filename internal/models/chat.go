package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the placeholder every chat starts with until the first
// turn derives a real one.
const DefaultTitle = "New Chat"

// LastMessageLimit caps the length of the LastMessage preview, in runes.
const LastMessageLimit = 100

type Chat struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"last_message,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_date"`
	UpdatedAt    time.Time `json:"updated_date"`
}

func NewChat(title string) *Chat {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now()
	return &Chat{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TruncateLastMessage shortens content to the preview limit. Truncation is
// rune-based so multi-byte text is never cut mid-character.
func TruncateLastMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= LastMessageLimit {
		return content
	}
	return string(runes[:LastMessageLimit])
}
