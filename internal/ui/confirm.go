package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

// ConfirmDeleteModel is the overlay foreground asking the user to confirm a
// chat deletion. Deleting a chat also deletes its whole transcript, so it is
// never done on a single keypress.
type ConfirmDeleteModel struct {
	chatID    string
	chatTitle string
	confirm   bool // true when the Delete button is highlighted
	width     int
	height    int
}

// DeleteConfirmed is sent when the user confirms the deletion.
type DeleteConfirmed struct {
	ChatID string
}

// DeleteCancelled is sent when the dialog is dismissed without deleting.
type DeleteCancelled struct{}

func NewConfirmDeleteModel() ConfirmDeleteModel {
	return ConfirmDeleteModel{}
}

func (m ConfirmDeleteModel) Init() tea.Cmd {
	return nil
}

func (m *ConfirmDeleteModel) SetChat(chatID, chatTitle string) {
	m.chatID = chatID
	m.chatTitle = chatTitle
	m.confirm = false
}

func (m ConfirmDeleteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "left", "right", "tab":
			m.confirm = !m.confirm
			return m, nil

		case "y":
			return m, m.confirmed()

		case "n", "esc":
			return m, cancelled()

		case "enter":
			if m.confirm {
				return m, m.confirmed()
			}
			return m, cancelled()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m ConfirmDeleteModel) confirmed() tea.Cmd {
	chatID := m.chatID
	return func() tea.Msg {
		return DeleteConfirmed{ChatID: chatID}
	}
}

func cancelled() tea.Cmd {
	return func() tea.Msg {
		return DeleteCancelled{}
	}
}

func (m ConfirmDeleteModel) View() string {
	overlayWidth := m.width / 2
	if overlayWidth < 40 {
		overlayWidth = 40
	}

	title := m.chatTitle
	maxTitle := overlayWidth - 20
	if len(title) > maxTitle && maxTitle > 3 {
		title = title[:maxTitle-3] + "..."
	}

	var content strings.Builder
	content.WriteString(ConfirmTitleStyle.Render("Delete Chat"))
	content.WriteString("\n\n")
	content.WriteString(ConfirmMessageStyle.Render(fmt.Sprintf("Delete %q and all of its messages?", title)))
	content.WriteString("\n\n")
	content.WriteString(RenderButton("Cancel", !m.confirm))
	content.WriteString("  ")
	content.WriteString(RenderButton("Delete", m.confirm))
	content.WriteString("\n\n")
	content.WriteString(helpStyle.Render("←/→: Switch • Enter: Choose • Esc: Cancel"))

	return GetConfirmBorderStyle(overlayWidth).Render(content.String())
}

// ConfirmOverlayModel wraps the confirmation dialog with the overlay library
type ConfirmOverlayModel struct {
	dialog  ConfirmDeleteModel
	visible bool
}

func NewConfirmOverlayModel() ConfirmOverlayModel {
	return ConfirmOverlayModel{
		dialog: NewConfirmDeleteModel(),
	}
}

func (m *ConfirmOverlayModel) Show(chatID, chatTitle string) {
	m.dialog.SetChat(chatID, chatTitle)
	m.visible = true
}

func (m *ConfirmOverlayModel) Hide() {
	m.visible = false
}

func (m *ConfirmOverlayModel) IsVisible() bool {
	return m.visible
}

func (m *ConfirmOverlayModel) UpdateSize(width, height int) {
	m.dialog.width = width
	m.dialog.height = height
}

func (m *ConfirmOverlayModel) UpdateDialog(msg tea.Msg) tea.Cmd {
	if !m.visible {
		return nil
	}

	var cmd tea.Cmd
	var mdl tea.Model
	mdl, cmd = m.dialog.Update(msg)
	m.dialog = mdl.(ConfirmDeleteModel)
	return cmd
}

func (m ConfirmOverlayModel) RenderOverlay(backgroundView string) string {
	if !m.visible {
		return backgroundView
	}

	overlayModel := overlay.New(
		m.dialog,
		&staticViewModel{content: backgroundView},
		overlay.Center, // horizontal position
		overlay.Center, // vertical position
		0,              // x offset
		0,              // y offset
	)

	return overlayModel.View()
}

// staticViewModel is a simple model that renders static content (background)
type staticViewModel struct {
	content string
}

func (m staticViewModel) Init() tea.Cmd {
	return nil
}

func (m staticViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m staticViewModel) View() string {
	return m.content
}
