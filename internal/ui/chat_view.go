package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"kb-chat/internal/conversation"
	"kb-chat/internal/logging"
	"kb-chat/internal/models"
)

const (
	titleHeight    = 5
	textareaHeight = 5
	helpHeight     = 2
	padding        = 2
)

type ChatViewModel struct {
	chat         models.Chat
	orchestrator *conversation.Orchestrator
	messages     []models.Message
	pending      string // user text shown optimistically while a turn runs
	viewport     viewport.Model
	textarea     textarea.Model
	spinner      spinner.Model
	width        int
	height       int
	sending      bool
	err          error
	mdRenderer   *glamour.TermRenderer
}

type MessagesLoaded struct {
	Messages []models.Message
}

type ChatRefreshed struct {
	Chat models.Chat
}

type TurnCompleted struct {
	Turn *conversation.Turn
}

type TurnIgnored struct{}

type TurnError struct {
	Err error
}

type BackToChatList struct{}

// createMarkdownRenderer creates a markdown renderer with fallback handling
func createMarkdownRenderer(width int) *glamour.TermRenderer {
	// Try auto style first
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-10),
	)
	if err == nil {
		return renderer
	}

	logging.Error("Failed to create markdown renderer with auto style: %v, trying fallback", err)

	renderer, err = glamour.NewTermRenderer(
		glamour.WithWordWrap(width - 10),
	)
	if err == nil {
		return renderer
	}

	logging.Error("Failed to create markdown renderer with basic style: %v, using no style", err)

	renderer, err = glamour.NewTermRenderer()
	if err != nil {
		logging.Error("Critical: Failed to create basic markdown renderer: %v", err)
		return nil
	}

	return renderer
}

// safeRenderMarkdown safely renders markdown with panic recovery and fallback
func (m *ChatViewModel) safeRenderMarkdown(content string) string {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Panic in markdown rendering: %v", r)
		}
	}()

	if m.mdRenderer == nil {
		return content
	}

	if content == "" {
		return content
	}

	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		logging.Error("Markdown rendering error: %v, falling back to plain text", err)
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

func NewChatViewModel(chat models.Chat, orchestrator *conversation.Orchestrator, width, height int) ChatViewModel {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Focus()
	ta.CharLimit = 2000
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// Keep only essential editing keys
	ta.KeyMap.CharacterForward = key.NewBinding(key.WithKeys("right"))
	ta.KeyMap.CharacterBackward = key.NewBinding(key.WithKeys("left"))
	ta.KeyMap.LineStart = key.NewBinding(key.WithKeys("home"))
	ta.KeyMap.LineEnd = key.NewBinding(key.WithKeys("end"))
	ta.KeyMap.DeleteCharacterBackward = key.NewBinding(key.WithKeys("backspace"))
	ta.KeyMap.DeleteCharacterForward = key.NewBinding(key.WithKeys("delete"))
	ta.KeyMap.LineNext = key.NewBinding()
	ta.KeyMap.LinePrevious = key.NewBinding()
	ta.KeyMap.WordForward = key.NewBinding()
	ta.KeyMap.WordBackward = key.NewBinding()
	ta.KeyMap.DeleteWordBackward = key.NewBinding()
	ta.KeyMap.DeleteWordForward = key.NewBinding()
	ta.KeyMap.DeleteAfterCursor = key.NewBinding()
	ta.KeyMap.DeleteBeforeCursor = key.NewBinding()
	ta.KeyMap.InsertNewline = key.NewBinding()
	ta.KeyMap.Paste = key.NewBinding()

	viewportHeight := height - titleHeight - textareaHeight - helpHeight - padding
	vp := viewport.New(width-6, viewportHeight)
	vp.SetContent("")
	vp.MouseWheelDelta = 2

	vp.KeyMap.Down = key.NewBinding(key.WithKeys("down"))
	vp.KeyMap.Up = key.NewBinding(key.WithKeys("up"))
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	vp.KeyMap.PageUp = key.NewBinding(key.WithKeys("pgup"))
	vp.KeyMap.HalfPageDown = key.NewBinding()
	vp.KeyMap.HalfPageUp = key.NewBinding()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	mdRenderer := createMarkdownRenderer(width)

	return ChatViewModel{
		chat:         chat,
		orchestrator: orchestrator,
		viewport:     vp,
		textarea:     ta,
		spinner:      sp,
		width:        width,
		height:       height,
		mdRenderer:   mdRenderer,
	}
}

func (m ChatViewModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.loadMessages(),
	)
}

func (m ChatViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := msg.Height - titleHeight - textareaHeight - helpHeight - padding
		m.viewport.Width = msg.Width - 6
		m.viewport.Height = viewportHeight
		m.textarea.SetWidth(msg.Width - 4)
		m.mdRenderer = createMarkdownRenderer(msg.Width)
		m.renderMessages()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+x":
			return m, tea.Quit

		case "esc":
			return m, func() tea.Msg {
				return BackToChatList{}
			}

		case "enter":
			// Input is disabled while a turn is in flight; the
			// orchestrator enforces the same guard on its side.
			text := strings.TrimSpace(m.textarea.Value())
			if !m.sending && text != "" {
				m.textarea.Reset()
				m.sending = true
				m.pending = text
				m.renderMessages()
				m.viewport.GotoBottom()
				return m, m.sendMessage(text)
			}
		}

	case MessagesLoaded:
		m.messages = msg.Messages
		m.renderMessages()
		m.viewport.GotoBottom()
		return m, nil

	case ChatRefreshed:
		m.chat = msg.Chat
		return m, nil

	case TurnCompleted:
		m.sending = false
		m.pending = ""
		if msg.Turn != nil && msg.Turn.Failed {
			logging.Info("Turn for chat %s ended with the fallback answer", m.chat.ID)
		}
		// Reload from the store: the persisted transcript, and the chat
		// record whose title may have just been derived.
		return m, tea.Batch(m.loadMessages(), m.refreshChat())

	case TurnIgnored:
		m.sending = false
		m.pending = ""
		m.renderMessages()
		return m, nil

	case TurnError:
		m.err = msg.Err
		m.sending = false
		m.pending = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if !m.sending {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m ChatViewModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Esc to go back", m.err))
	}

	var b strings.Builder

	title := TitleWithPaddingStyle.Render(m.chat.Title)
	b.WriteString(title + "\n")

	statusLine := fmt.Sprintf("%d messages | Updated: %s",
		m.chat.MessageCount,
		m.chat.UpdatedAt.Format("2006-01-02 15:04"),
	)
	if m.sending {
		statusLine += " | " + m.spinner.View() + " Thinking..."
	}
	b.WriteString(statusBarStyle.Render(statusLine) + "\n\n")

	viewportWithBorder := RenderViewportWithBorder(m.viewport.View())
	b.WriteString(viewportWithBorder)
	b.WriteString("\n")

	scrollInfo := m.renderScrollIndicator()
	if scrollInfo != "" {
		b.WriteString(scrollInfo)
	}
	b.WriteString("\n\n")

	b.WriteString(m.textarea.View() + "\n")

	helpText := "Enter: Send • ↑/↓: Scroll • PgUp/PgDn: Page Scroll • Esc: Back • Ctrl+X: Exit"
	b.WriteString(helpStyle.Render(helpText))

	return b.String()
}

func (m ChatViewModel) sendMessage(text string) tea.Cmd {
	return func() tea.Msg {
		turn, err := m.orchestrator.Send(context.Background(), m.chat.ID, text)
		if err != nil {
			if errors.Is(err, conversation.ErrTurnInFlight) || errors.Is(err, conversation.ErrEmptyMessage) {
				return TurnIgnored{}
			}
			return TurnError{Err: err}
		}
		return TurnCompleted{Turn: turn}
	}
}

func (m ChatViewModel) loadMessages() tea.Cmd {
	return func() tea.Msg {
		messages, err := m.orchestrator.Transcript(context.Background(), m.chat.ID)
		if err != nil {
			return TurnError{Err: err}
		}
		return MessagesLoaded{Messages: messages}
	}
}

func (m ChatViewModel) refreshChat() tea.Cmd {
	return func() tea.Msg {
		chat, err := m.orchestrator.Chat(context.Background(), m.chat.ID)
		if err != nil {
			// The chat may have been deleted while the turn was running.
			return BackToChatList{}
		}
		return ChatRefreshed{Chat: *chat}
	}
}

func (m *ChatViewModel) renderMessages() {
	var b strings.Builder

	for _, msg := range m.messages {
		if msg.Role == models.RoleUser {
			label := UserMessageLabelStyle.Render("You:")
			renderedContent := m.safeRenderMarkdown(msg.Content)
			b.WriteString(GetUserMessageContentStyle(m.width).Render(label + "\n" + renderedContent))
			b.WriteString("\n\n")
		} else {
			label := AssistantMessageLabelStyle.Render("Assistant:")
			renderedContent := m.safeRenderMarkdown(msg.Content)
			b.WriteString(GetAssistantMessageContentStyle(m.width).Render(label + "\n" + renderedContent))
			b.WriteString("\n\n")
		}
	}

	// Optimistic user line: visible before the turn's messages are
	// persisted and reloaded.
	if m.pending != "" {
		label := UserMessageLabelStyle.Render("You:")
		renderedContent := m.safeRenderMarkdown(m.pending)
		b.WriteString(GetUserMessageContentStyle(m.width).Render(label + "\n" + renderedContent))
		b.WriteString("\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m ChatViewModel) renderScrollIndicator() string {
	if m.viewport.TotalLineCount() <= m.viewport.Height {
		return ""
	}

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	indicator := fmt.Sprintf("Scroll: %d%% ↕", scrollPercent)

	return ScrollIndicatorStyle.Render(indicator)
}
