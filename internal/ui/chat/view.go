// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/util"
)

const (
	sidebarMin    = 20
	sidebarMax    = 32
	narrowWidth   = 60
	inputLines    = 3
	chromeHeight  = 2 // header and status bar
	inputBoxExtra = 2 // input border

	cursorGlyph  = "▍"
	projectGlyph = "▸ "
	backGlyph    = "← "
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) sidebarWidth() int {
	if m.width < narrowWidth {
		return 0
	}
	w := m.width / 4
	if w < sidebarMin {
		w = sidebarMin
	}
	if w > sidebarMax {
		w = sidebarMax
	}
	return w
}

// paneWidth is the usable width right of the sidebar.
func (m Model) paneWidth() int {
	w := m.width - 1
	if sw := m.sidebarWidth(); sw > 0 {
		w -= sw + 2
	}
	if w < 10 {
		w = 10
	}
	return w
}

func (m *Model) layout() {
	pw := m.paneWidth()
	m.input.SetWidth(pw - inputBoxExtra)
	m.prompt.Width = pw - 6

	h := m.height - chromeHeight - inputLines - inputBoxExtra
	if h < 3 {
		h = 3
	}
	m.viewport.Width = pw
	m.viewport.Height = h
	m.md.setWidth(pw - 2)
	m.refreshViewport()
}

// refreshViewport re-renders the main pane, keeping the bottom pinned when
// it was already there.
func (m *Model) refreshViewport() {
	if m.viewport.Width == 0 {
		return
	}
	atBottom := m.viewport.AtBottom() || m.view.Loading
	m.viewport.SetContent(m.renderPane())
	switch {
	case m.mode != modeChat:
		m.viewport.GotoTop()
	case atBottom:
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the interface.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Pane.Render(m.viewport.View()),
		m.renderInput(),
	)
	body := main
	if sw := m.sidebarWidth(); sw > 0 {
		side := m.theme.Sidebar.
			Width(sw).
			Height(m.height - chromeHeight).
			Render(m.renderSidebar(sw))
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, main)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := m.view.ChatTitle
	if p, ok := m.currentProject(); ok {
		if title == "" {
			title = p.Title
		} else {
			title = p.Title + " / " + title
		}
	}
	if title == "" {
		title = "No chat selected"
	}
	line := m.theme.HeaderBrand.Render("rigchat") + "  " +
		m.theme.HeaderTitle.Render(util.TruncateWidth(title, m.width-12))
	return m.theme.Header.Width(m.width).Render(line)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar(width int) string {
	var b strings.Builder
	scope := m.sessions.Scope()
	heading := "Chats"
	if p, ok := m.currentProject(); ok {
		heading = p.Title
	}
	b.WriteString(m.theme.SectionTitle.Render(util.TruncateWidth(heading, width)))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(m.theme.Empty.Render("No chats yet"))
		return b.String()
	}

	for i, it := range m.items {
		prefix := ""
		switch it.kind {
		case itemBack:
			prefix = backGlyph
		case itemProject:
			prefix = projectGlyph
		}
		label := util.PadWidth(util.TruncateWidth(prefix+it.title, width), width)

		style := m.theme.Item
		if it.kind == itemProject {
			style = m.theme.ProjectMarker
		}
		if it.kind == itemChat && it.id == m.view.ChatID {
			style = m.theme.ItemCurrent
		}
		if m.focus == focusSidebar && i == m.cursor {
			style = m.theme.ItemSelected
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n")
	}
	if scope == "" && len(m.index.Projects()) > 0 && len(m.index.VisibleIn("")) == 0 {
		b.WriteString(m.theme.Empty.Render("No loose chats"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// MAIN PANE
// =============================================================================

func (m Model) renderPane() string {
	switch m.mode {
	case modeHelp:
		return m.renderHelp()
	case modeModels:
		return m.renderModels()
	}
	if m.view.ChatID == "" {
		if p, ok := m.currentProject(); ok {
			return m.renderDashboard(p)
		}
		return m.renderWelcome()
	}
	return m.renderMessages()
}

func (m Model) renderWelcome() string {
	return m.theme.Empty.Render(
		"Type a message to start a new chat.\n" +
			"Tab switches to the sidebar, F1 lists all keys.")
}

// renderDashboard lists the conversations of a project.
func (m Model) renderDashboard(p model.Project) string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render(p.Title))
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render("Created " + p.Created().Format("Jan 2, 2006")))
	b.WriteString("\n\n")

	chats := m.index.VisibleIn(p.ID)
	if len(chats) == 0 {
		b.WriteString(m.theme.Empty.Render("No chats in this project. Type a message to start one."))
		return b.String()
	}
	w := m.paneWidth() - 4
	for _, c := range chats {
		b.WriteString(m.theme.Item.Render(util.TruncateWidth(c.Title, w)))
		b.WriteString("\n")
		if preview := c.Preview(); preview != "" {
			b.WriteString(m.theme.Muted.Render("  " + util.TruncateWidth(util.FirstLine(preview), w-2)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderMessages() string {
	if len(m.view.Messages) == 0 {
		return m.theme.Empty.Render("Empty chat. Say something.")
	}
	parts := make([]string, 0, len(m.view.Messages))
	last := len(m.view.Messages) - 1
	for i, msg := range m.view.Messages {
		parts = append(parts, m.renderMessage(msg, i == last && m.view.Loading))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message, streaming bool) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
	case model.RoleAssistant:
		label = m.theme.AssistantLabel.Render(m.assistantName())
	default:
		label = m.theme.SystemLabel.Render(msg.Role.DisplayName())
	}
	if t := msg.Time(); !t.IsZero() {
		label += " " + m.theme.Timestamp.Render(t.Local().Format("15:04"))
	}

	body := msg.Content
	marker := ""
	if msg.Role == model.RoleAssistant && strings.HasSuffix(body, session.ErrorMarker) {
		body = strings.TrimSuffix(body, session.ErrorMarker)
		marker = m.theme.ErrorMarker.Render(strings.TrimPrefix(session.ErrorMarker, "\n"))
	}

	width := m.paneWidth() - 2
	switch {
	case streaming && body == "":
		body = m.spinner.View() + " " + m.theme.Muted.Render("thinking")
	case streaming:
		body = m.theme.MessageBody.Width(width).Render(body + cursorGlyph)
	case msg.Role == model.RoleAssistant && m.ui.Markdown && body != "":
		body = m.md.render(body)
	default:
		body = m.theme.MessageBody.Width(width).Render(body)
	}

	out := label + "\n" + body
	if marker != "" {
		out += "\n" + marker
	}
	return out
}

func (m Model) assistantName() string {
	if m.view.Model != "" {
		return m.view.Model
	}
	return model.RoleAssistant.DisplayName()
}

func (m Model) renderModels() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Choose a model"))
	b.WriteString("\n\n")
	switch {
	case m.modelsLoading:
		b.WriteString(m.spinner.View() + " Listing models...")
	case len(m.models) == 0:
		b.WriteString(m.theme.Empty.Render("No models available. Run `ollama pull <model>`."))
	default:
		current := m.sessions.Model()
		for i, name := range m.models {
			line := "  " + name
			if name == current {
				line = "* " + name
			}
			if i == m.modelCursor {
				line = m.theme.ItemSelected.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render("Enter select, Esc close"))
	return b.String()
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Keys"))
	b.WriteString("\n")
	for _, group := range m.keys.FullHelp() {
		b.WriteString("\n")
		for _, k := range group {
			h := k.Help()
			b.WriteString(fmt.Sprintf("  %s  %s\n",
				m.theme.ShortcutKey.Render(util.PadWidth(h.Key, 10)),
				m.theme.ShortcutDesc.Render(h.Desc)))
		}
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render("In the sidebar: r renames, d deletes. Press any key to close."))
	return b.String()
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	switch m.mode {
	case modeRename, modeNewProject:
		title := "Rename chat"
		if m.mode == modeNewProject {
			title = "New project"
		}
		return m.theme.PromptBox.Width(m.paneWidth() - 2).Render(
			m.theme.PromptTitle.Render(title) + "\n" + m.prompt.View())
	case modeConfirmDelete:
		what := "chat"
		if m.deleteTarget.kind == itemProject {
			what = "project and its chats"
		}
		return m.theme.PromptBox.Width(m.paneWidth() - 2).Render(
			m.theme.PromptTitle.Render(fmt.Sprintf("Delete %s %q?", what, m.deleteTarget.title)) +
				"\n" + m.theme.Muted.Render("y confirm, n cancel"))
	}

	box := m.theme.InputBox
	if m.focus == focusInput {
		box = m.theme.InputBoxFocus
	}
	return box.Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case !m.checked:
		left = m.theme.Muted.Render("ollama ...")
	case m.online:
		left = m.theme.StatusOK.Render("ollama online")
	default:
		left = m.theme.StatusError.Render("ollama offline")
	}
	left += "  " + orDash(m.sessions.Model())
	if m.view.Loading {
		left += "  " + m.spinner.View() + m.view.State.String()
	}

	room := m.width - 4 - lipgloss.Width(left)
	var right string
	switch {
	case m.err != nil:
		right = m.theme.StatusError.Render(util.TruncateWidth(m.err.Error(), max(room, 0)))
	case m.notice != "":
		right = util.TruncateWidth(m.notice, max(room, 0))
	default:
		for _, k := range m.keys.ShortHelp() {
			h := k.Help()
			hint := m.theme.Shortcut(h.Key, h.Desc)
			if right != "" {
				hint = "  " + hint
			}
			if lipgloss.Width(right)+lipgloss.Width(hint) > room {
				break
			}
			right += hint
		}
	}

	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func orDash(s string) string {
	if s == "" {
		return "no model"
	}
	return s
}
