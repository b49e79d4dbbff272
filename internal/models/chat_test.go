package models

import (
	"strings"
	"testing"
)

func TestTruncateLastMessage(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "Short content untouched",
			content:  "hello",
			expected: "hello",
		},
		{
			name:     "Exactly at the limit",
			content:  strings.Repeat("x", LastMessageLimit),
			expected: strings.Repeat("x", LastMessageLimit),
		},
		{
			name:     "Over the limit",
			content:  strings.Repeat("x", LastMessageLimit+20),
			expected: strings.Repeat("x", LastMessageLimit),
		},
		{
			name:     "Multi-byte runes counted as one",
			content:  strings.Repeat("é", LastMessageLimit+1),
			expected: strings.Repeat("é", LastMessageLimit),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateLastMessage(tt.content)
			if got != tt.expected {
				t.Errorf("Expected %d runes, got %d", len([]rune(tt.expected)), len([]rune(got)))
			}
		})
	}
}

func TestNewChatDefaults(t *testing.T) {
	chat := NewChat("")
	if chat.Title != DefaultTitle {
		t.Errorf("Expected placeholder title, got %q", chat.Title)
	}
	if chat.ID == "" {
		t.Errorf("Expected a generated id")
	}
	if !chat.CreatedAt.Equal(chat.UpdatedAt) {
		t.Errorf("Expected created and updated timestamps to match at creation")
	}

	named := NewChat("Groceries")
	if named.Title != "Groceries" {
		t.Errorf("Expected explicit title, got %q", named.Title)
	}
}

func TestNewMessageDefaultsRole(t *testing.T) {
	msg := NewMessage("c1", "", "hi")
	if msg.Role != RoleUser {
		t.Errorf("Expected default role %q, got %q", RoleUser, msg.Role)
	}
	if msg.ChatID != "c1" {
		t.Errorf("Expected chat id c1, got %q", msg.ChatID)
	}
}
