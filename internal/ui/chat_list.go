package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kb-chat/internal/models"
)

type ChatListModel struct {
	list    list.Model
	chats   []models.Chat
	confirm ConfirmOverlayModel
	width   int
	height  int
	err     error
}

type chatItem struct {
	chat models.Chat
}

func (i chatItem) Title() string { return i.chat.Title }
func (i chatItem) Description() string {
	preview := i.chat.LastMessage
	if preview == "" {
		preview = "No messages yet"
	}
	return fmt.Sprintf("%s | %d messages | %s", preview, i.chat.MessageCount, i.chat.UpdatedAt.Format("2006-01-02 15:04"))
}
func (i chatItem) FilterValue() string { return i.chat.Title }

type ChatSelected struct {
	Chat models.Chat
}

type CreateNewChat struct{}

type DeleteChat struct {
	ChatID string
}

func NewChatListModel(chats []models.Chat, width, height int) ChatListModel {
	items := make([]list.Item, len(chats))
	for i, c := range chats {
		items[i] = chatItem{chat: c}
	}

	l := list.New(items, CreateThemedDelegate(), width, height-4)
	l.Title = "Conversations"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	ConfigureListStyles(&l)

	// Disable all built-in key bindings except arrows and filter
	l.KeyMap.CursorUp = key.NewBinding(key.WithKeys("up"))
	l.KeyMap.CursorDown = key.NewBinding(key.WithKeys("down"))
	l.KeyMap.NextPage = key.NewBinding()
	l.KeyMap.PrevPage = key.NewBinding()
	l.KeyMap.GoToStart = key.NewBinding()
	l.KeyMap.GoToEnd = key.NewBinding()
	l.KeyMap.Filter = key.NewBinding(key.WithKeys("/"))
	l.KeyMap.ClearFilter = key.NewBinding(key.WithKeys("esc"))
	l.KeyMap.CancelWhileFiltering = key.NewBinding(key.WithKeys("esc"))
	l.KeyMap.AcceptWhileFiltering = key.NewBinding(key.WithKeys("enter"))
	l.KeyMap.ShowFullHelp = key.NewBinding()
	l.KeyMap.CloseFullHelp = key.NewBinding()
	l.KeyMap.Quit = key.NewBinding()
	l.KeyMap.ForceQuit = key.NewBinding()

	confirm := NewConfirmOverlayModel()
	confirm.UpdateSize(width, height)

	return ChatListModel{
		list:    l,
		chats:   chats,
		confirm: confirm,
		width:   width,
		height:  height,
	}
}

func (m ChatListModel) Init() tea.Cmd {
	return nil
}

func (m ChatListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DeleteConfirmed:
		m.confirm.Hide()
		chatID := msg.ChatID
		return m, func() tea.Msg {
			return DeleteChat{ChatID: chatID}
		}

	case DeleteCancelled:
		m.confirm.Hide()
		return m, nil
	}

	// The dialog swallows all input while visible.
	if m.confirm.IsVisible() {
		return m, m.confirm.UpdateDialog(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		m.confirm.UpdateSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+x":
			return m, tea.Quit

		case "enter":
			selectedItem := m.list.SelectedItem()
			if selectedItem == nil {
				return m, nil
			}
			chat := selectedItem.(chatItem).chat
			return m, func() tea.Msg {
				return ChatSelected{Chat: chat}
			}

		case "ctrl+n":
			return m, func() tea.Msg {
				return CreateNewChat{}
			}

		case "ctrl+d":
			selectedItem := m.list.SelectedItem()
			if selectedItem == nil {
				return m, nil
			}
			chat := selectedItem.(chatItem).chat
			m.confirm.Show(chat.ID, chat.Title)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m ChatListModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Ctrl+X to exit", m.err))
	}

	helpText := "↑/↓: Navigate • Enter: Open • /: Filter • Ctrl+N: New Chat • Ctrl+D: Delete • Ctrl+X: Exit"

	baseView := lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		helpStyle.Render(helpText),
	)

	return m.confirm.RenderOverlay(baseView)
}

func (m *ChatListModel) RefreshChats(chats []models.Chat) {
	m.chats = chats
	items := make([]list.Item, len(chats))
	for i, c := range chats {
		items[i] = chatItem{chat: c}
	}
	m.list.SetItems(items)
}
