// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/index"
	"github.com/jeranaias/rigchat/internal/session"
)

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case viewMsg:
		m.setView(msg.view)
		return m, nil

	case sendDoneMsg:
		m.err = nil
		if msg.err != nil {
			m.err = describeSendError(msg.err)
		}
		m.sync()
		return m, nil

	case modelsMsg:
		return m.handleModels(msg), nil

	case storeChangedMsg:
		m.sync()
		m.notice = "Reloaded chats changed outside rigchat"
		return m, nil

	case spinner.TickMsg:
		if !m.view.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == modeChat && m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// describeSendError turns Send's precondition errors into hints.
func describeSendError(err error) error {
	switch {
	case errors.Is(err, session.ErrNoModel):
		return fmt.Errorf("no model selected, press C-o to choose one")
	case errors.Is(err, session.ErrNoHost):
		return fmt.Errorf("no Ollama host configured, run `rigchat config set-host <url>`")
	case errors.Is(err, session.ErrBusy):
		return fmt.Errorf("a reply is still streaming")
	}
	return err
}

func (m Model) handleModels(msg modelsMsg) Model {
	m.modelsLoading = false
	m.checked = true
	m.online = msg.result.OK()
	if !m.online {
		m.log.Debug("model listing failed", zap.String("error", msg.result.Error))
		if !msg.startup {
			m.err = fmt.Errorf("ollama unreachable at %s", m.catalog.Host())
		}
		return m
	}

	if msg.startup {
		if m.sessions.Model() == "" {
			if name := m.catalog.SelectModel(msg.result.Models); name != "" {
				m.sessions.UseModel(name)
			}
		}
		m.sync()
		return m
	}

	m.models = msg.result.Names()
	m.modelCursor = 0
	for i, name := range m.models {
		if name == m.sessions.Model() {
			m.modelCursor = i
		}
	}
	m.refreshViewport()
	return m
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeRename, modeNewProject:
		return m.handlePromptKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	case modeModels:
		return m.handleModelsKey(msg)
	case modeHelp:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.mode = modeChat
		m.refreshViewport()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.sessions.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.view.Loading {
			m.sessions.Stop()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.view.Loading {
			m.sessions.Stop()
		}
		m.err, m.notice = nil, ""
		return m, nil

	case key.Matches(msg, m.keys.SwitchFocus):
		m.toggleFocus()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m.newChat(), nil

	case key.Matches(msg, m.keys.NewProject):
		return m.openPrompt(modeNewProject, ""), nil

	case key.Matches(msg, m.keys.Rename):
		return m.beginRename(m.view.ChatID), nil

	case key.Matches(msg, m.keys.Models):
		m.mode = modeModels
		m.models = nil
		m.modelsLoading = true
		m.catalog.Invalidate()
		m.refreshViewport()
		return m, m.fetchModels(false)

	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusSidebar
		m.input.Blur()
		return
	}
	m.focus = focusInput
	m.input.Focus()
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.view.Loading {
		m.err = describeSendError(session.ErrBusy)
		return m, nil
	}
	// The draft stays in the input until the backend answers again.
	if m.checked && !m.online {
		m.err = fmt.Errorf("ollama is offline at %s, press C-o to retry", m.catalog.Host())
		return m, nil
	}
	m.input.Reset()
	m.err, m.notice = nil, ""
	return m, tea.Batch(m.send(text), m.spinner.Tick)
}

func (m Model) newChat() Model {
	if _, err := m.index.CreateConversation(); err != nil {
		m.err = err
	}
	m.focus = focusInput
	m.input.Focus()
	m.cursor = m.indexOf(itemChat, m.sessions.CurrentID())
	m.sync()
	return m
}

// indexOf finds an item in a freshly built sidebar.
func (m *Model) indexOf(kind itemKind, id string) int {
	m.rebuildSidebar()
	for i, it := range m.items {
		if it.kind == kind && it.id == id {
			return i
		}
	}
	return 0
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		return m.openItem(), nil
	case key.Matches(msg, m.keys.Delete):
		it, ok := m.selectedItem()
		if ok && it.kind != itemBack {
			m.deleteTarget = it
			m.mode = modeConfirmDelete
		}
	case msg.String() == "r":
		if it, ok := m.selectedItem(); ok && it.kind == itemChat {
			return m.beginRename(it.id), nil
		}
	}
	return m, nil
}

func (m Model) openItem() Model {
	it, ok := m.selectedItem()
	if !ok {
		return m
	}
	m.err = nil
	switch it.kind {
	case itemBack:
		if err := m.index.SelectProject(""); err != nil {
			m.err = err
		}
		m.cursor = 0
	case itemProject:
		if err := m.index.SelectProject(it.id); err != nil {
			m.err = err
		}
		m.cursor = 0
	case itemChat:
		if err := m.index.SelectConversation(it.id); err != nil {
			m.err = err
			break
		}
		m.focus = focusInput
		m.input.Focus()
	}
	m.sync()
	return m
}

// =============================================================================
// PROMPTS
// =============================================================================

func (m Model) openPrompt(next mode, value string) Model {
	m.mode = next
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	m.prompt.Focus()
	m.input.Blur()
	return m
}

func (m Model) closePrompt() Model {
	m.mode = modeChat
	m.prompt.Blur()
	m.prompt.Reset()
	if m.focus == focusInput {
		m.input.Focus()
	}
	return m
}

func (m Model) beginRename(chatID string) Model {
	if chatID == "" {
		m.notice = "Open a chat to rename it"
		return m
	}
	draft, err := m.index.BeginRename(chatID)
	if err != nil {
		m.err = err
		return m
	}
	return m.openPrompt(modeRename, draft.Value)
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == modeRename {
			m.index.CancelRename()
		}
		return m.closePrompt(), nil

	case tea.KeyEnter:
		value := m.prompt.Value()
		var err error
		if m.mode == modeRename {
			err = m.index.CommitRename()
		} else {
			_, err = m.index.CreateProject(value)
			if errors.Is(err, index.ErrEmptyTitle) {
				m.notice = "Project title cannot be empty"
				return m, nil
			}
		}
		if err != nil {
			m.err = err
		}
		m = m.closePrompt()
		m.sync()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	if m.mode == modeRename {
		if err := m.index.SetDraft(m.prompt.Value()); err != nil {
			m.log.Debug("draft update dropped", zap.Error(err))
		}
	}
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Yes):
		t := m.deleteTarget
		var err error
		if t.kind == itemProject {
			err = m.index.DeleteProject(t.id)
		} else {
			err = m.index.DeleteConversation(t.id)
		}
		if err != nil {
			m.err = err
		} else {
			m.notice = fmt.Sprintf("Deleted %q", t.title)
		}
		m.mode = modeChat
		m.deleteTarget = sidebarItem{}
		m.sync()
	case key.Matches(msg, m.keys.No):
		m.mode = modeChat
		m.deleteTarget = sidebarItem{}
	}
	return m, nil
}

// =============================================================================
// MODEL PICKER
// =============================================================================

func (m Model) handleModelsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Models):
		m.mode = modeChat
	case key.Matches(msg, m.keys.Up):
		if m.modelCursor > 0 {
			m.modelCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.modelCursor < len(m.models)-1 {
			m.modelCursor++
		}
	case key.Matches(msg, m.keys.Open):
		if m.modelCursor < len(m.models) {
			name := m.models[m.modelCursor]
			if err := m.sessions.SetModel(name); err != nil {
				m.err = err
			} else {
				m.notice = "Model set to " + name
			}
			m.mode = modeChat
			m.sync()
			return m, nil
		}
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	m.refreshViewport()
	return m, nil
}
