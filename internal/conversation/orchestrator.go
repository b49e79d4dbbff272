// Package conversation coordinates a send turn: persist the user message,
// call the answering service, persist the reply (or a fallback), and keep
// the chat's summary metadata in step with the outcome.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"kb-chat/internal/answer"
	"kb-chat/internal/logging"
	"kb-chat/internal/models"
	"kb-chat/internal/repository"
)

// FallbackAnswer is shown in-band when the answering service cannot be
// reached. Remote failures never surface as hard errors to the user.
const FallbackAnswer = "Sorry, I couldn't connect to the knowledge base. Please try again later."

const titlePromptFormat = `Generate a concise, descriptive title (max 6 words) for a chat that starts with this message: "%s". Return only the title, nothing else.`

var (
	// ErrEmptyMessage rejects a send whose trimmed text is empty.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTurnInFlight rejects a send while the chat already has one
	// outstanding. Callers treat it as a no-op, not a failure.
	ErrTurnInFlight = errors.New("a turn is already in flight for this chat")
)

// Turn is the outcome of one send: the persisted user message and the
// assistant (or fallback) message that followed it.
type Turn struct {
	User      *models.Message
	Assistant *models.Message
	Failed    bool
}

type Orchestrator struct {
	chats        *repository.ChatRepository
	messages     *repository.MessageRepository
	service      answer.Service
	historyLimit int

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewOrchestrator wires the repositories to the answering service.
// historyLimit caps how many prior messages travel as context; zero means
// the whole transcript.
func NewOrchestrator(chats *repository.ChatRepository, messages *repository.MessageRepository, service answer.Service, historyLimit int) *Orchestrator {
	return &Orchestrator{
		chats:        chats,
		messages:     messages,
		service:      service,
		historyLimit: historyLimit,
		inflight:     make(map[string]struct{}),
	}
}

// NewChat creates an empty chat with the placeholder title.
func (o *Orchestrator) NewChat(ctx context.Context) (*models.Chat, error) {
	return o.chats.Create(ctx, "")
}

// Chat returns the current chat record.
func (o *Orchestrator) Chat(ctx context.Context, chatID string) (*models.Chat, error) {
	return o.chats.Get(ctx, chatID)
}

// ListChats returns all chats, most recently updated first.
func (o *Orchestrator) ListChats(ctx context.Context) ([]models.Chat, error) {
	return o.chats.List(ctx, repository.OrderUpdatedDesc)
}

// DeleteChat removes the chat and all of its messages.
func (o *Orchestrator) DeleteChat(ctx context.Context, chatID string) error {
	return o.chats.Delete(ctx, chatID)
}

// Transcript returns the chat's messages in timestamp order.
func (o *Orchestrator) Transcript(ctx context.Context, chatID string) ([]models.Message, error) {
	return o.messages.List(ctx, chatID)
}

// Send executes one turn. The user message is persisted before the remote
// call so it is durable and ordered ahead of the reply regardless of the
// outcome. A remote failure is downgraded to a fallback assistant message
// and reported via Turn.Failed; only storage errors are returned as errors.
func (o *Orchestrator) Send(ctx context.Context, chatID, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	if !o.begin(chatID) {
		return nil, ErrTurnInFlight
	}
	defer o.finish(chatID)

	prior, err := o.messages.List(ctx, chatID)
	if err != nil {
		return nil, err
	}

	userMsg, err := o.messages.Create(ctx, chatID, models.RoleUser, text)
	if err != nil {
		return nil, err
	}

	answerText, askErr := o.service.Ask(ctx, text, historyTurns(prior, o.historyLimit))
	if askErr != nil {
		logging.Error("Answer request failed for chat %s: %v", chatID, askErr)

		fallback, err := o.messages.Create(ctx, chatID, models.RoleAssistant, FallbackAnswer)
		if err != nil {
			return nil, err
		}
		// Chat summary metadata stays untouched on a failed turn.
		return &Turn{User: userMsg, Assistant: fallback, Failed: true}, nil
	}

	assistantMsg, err := o.messages.Create(ctx, chatID, models.RoleAssistant, answerText)
	if err != nil {
		return nil, err
	}

	preview := models.TruncateLastMessage(text)
	count := len(prior) + 2
	if _, err := o.chats.Update(ctx, chatID, repository.ChatPatch{
		LastMessage:  &preview,
		MessageCount: &count,
	}); err != nil {
		return nil, err
	}

	if len(prior) == 0 {
		o.deriveTitle(ctx, chatID, text)
	}

	return &Turn{User: userMsg, Assistant: assistantMsg}, nil
}

// deriveTitle asks the service for a short title summarizing the opening
// message. Failure keeps the placeholder; it never fails the turn.
func (o *Orchestrator) deriveTitle(ctx context.Context, chatID, firstMessage string) {
	raw, err := o.service.Invoke(ctx, fmt.Sprintf(titlePromptFormat, firstMessage))
	if err != nil {
		logging.Error("Title derivation failed for chat %s: %v", chatID, err)
		return
	}

	title := strings.ReplaceAll(strings.TrimSpace(raw), `"`, "")
	if title == "" {
		return
	}

	if _, err := o.chats.Update(ctx, chatID, repository.ChatPatch{Title: &title}); err != nil {
		logging.Error("Failed to store derived title for chat %s: %v", chatID, err)
	}
}

func (o *Orchestrator) begin(chatID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[chatID]; busy {
		return false
	}
	o.inflight[chatID] = struct{}{}
	return true
}

func (o *Orchestrator) finish(chatID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, chatID)
}

func historyTurns(prior []models.Message, limit int) []answer.Turn {
	if limit > 0 && len(prior) > limit {
		prior = prior[len(prior)-limit:]
	}
	turns := make([]answer.Turn, 0, len(prior))
	for _, msg := range prior {
		turns = append(turns, answer.Turn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}
