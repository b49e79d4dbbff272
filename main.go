package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"kb-chat/internal/answer"
	"kb-chat/internal/config"
	"kb-chat/internal/conversation"
	"kb-chat/internal/logging"
	"kb-chat/internal/models"
	"kb-chat/internal/repository"
	"kb-chat/internal/store"
	"kb-chat/internal/ui"
)

type appState int

const (
	stateChatList appState = iota
	stateChatView
)

type model struct {
	state        appState
	orchestrator *conversation.Orchestrator

	// UI models
	chatListModel ui.ChatListModel
	chatViewModel ui.ChatViewModel

	// Current chat
	currentChat *models.Chat

	// Screen size
	width  int
	height int

	// Error state
	err error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ui.ApplyTheme(cfg.Theme)

	dataDir, err := config.GetDataDir()
	if err != nil {
		log.Fatalf("Failed to prepare data directory: %v", err)
	}

	if err := logging.InitLogger(filepath.Dir(dataDir)); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	recordStore, err := store.NewBadgerStore(dataDir)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer recordStore.Close()

	chats := repository.NewChatRepository(recordStore)
	messages := repository.NewMessageRepository(recordStore)
	client := answer.NewClient(cfg.ServerURL, cfg.RequestTimeout())
	orchestrator := conversation.NewOrchestrator(chats, messages, client, cfg.HistoryLimit)

	existing, err := orchestrator.ListChats(context.Background())
	if err != nil {
		log.Fatalf("Failed to list chats: %v", err)
	}

	initialModel := model{
		state:        stateChatList,
		orchestrator: orchestrator,
		width:        80,
		height:       24,
	}
	initialModel.chatListModel = ui.NewChatListModel(existing, 80, 24)

	p := tea.NewProgram(initialModel, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

func (m model) Init() tea.Cmd {
	switch m.state {
	case stateChatList:
		return m.chatListModel.Init()
	case stateChatView:
		return m.chatViewModel.Init()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Update current screen
		switch m.state {
		case stateChatList:
			newModel, cmd := m.chatListModel.Update(msg)
			m.chatListModel = newModel.(ui.ChatListModel)
			return m, cmd
		case stateChatView:
			newModel, cmd := m.chatViewModel.Update(msg)
			m.chatViewModel = newModel.(ui.ChatViewModel)
			return m, cmd
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case ui.CreateNewChat:
		// Create an empty chat and open it
		chat, err := m.orchestrator.NewChat(context.Background())
		if err != nil {
			m.err = err
			return m, tea.Quit
		}

		m.currentChat = chat
		m.state = stateChatView
		m.chatViewModel = ui.NewChatViewModel(*chat, m.orchestrator, m.width, m.height)
		return m, m.chatViewModel.Init()

	case ui.ChatSelected:
		// Transition to chat view
		m.currentChat = &msg.Chat
		m.state = stateChatView
		m.chatViewModel = ui.NewChatViewModel(msg.Chat, m.orchestrator, m.width, m.height)
		return m, m.chatViewModel.Init()

	case ui.DeleteChat:
		// Delete chat and refresh list
		if err := m.orchestrator.DeleteChat(context.Background(), msg.ChatID); err != nil {
			m.err = err
			return m, nil
		}

		chats, err := m.orchestrator.ListChats(context.Background())
		if err != nil {
			m.err = err
			return m, nil
		}

		m.chatListModel.RefreshChats(chats)
		return m, nil

	case ui.BackToChatList:
		// Transition back to chat list
		chats, err := m.orchestrator.ListChats(context.Background())
		if err != nil {
			m.err = err
			return m, tea.Quit
		}

		m.state = stateChatList
		m.chatListModel = ui.NewChatListModel(chats, m.width, m.height)
		return m, m.chatListModel.Init()
	}

	// Delegate to current screen
	switch m.state {
	case stateChatList:
		newModel, cmd := m.chatListModel.Update(msg)
		m.chatListModel = newModel.(ui.ChatListModel)
		return m, cmd

	case stateChatView:
		newModel, cmd := m.chatViewModel.Update(msg)
		m.chatViewModel = newModel.(ui.ChatViewModel)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress Ctrl+C to quit", m.err)
	}

	switch m.state {
	case stateChatList:
		return m.chatListModel.View()
	case stateChatView:
		return m.chatViewModel.View()
	}

	return "Loading..."
}
