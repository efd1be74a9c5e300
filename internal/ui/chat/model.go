// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/catalog"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/index"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps are the services the interface drives.
type Deps struct {
	Sessions *session.Manager
	Index    *index.Index
	Catalog  *catalog.Client
	UI       config.UIConfig
	Log      *zap.Logger

	// Watch, when set, is started by Run and calls onChange whenever the
	// backing store is modified by another process.
	Watch func(ctx context.Context, onChange func()) error
}

// =============================================================================
// MODES
// =============================================================================

type mode int

const (
	modeChat mode = iota
	modeRename
	modeNewProject
	modeConfirmDelete
	modeModels
	modeHelp
)

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

// =============================================================================
// SIDEBAR ITEMS
// =============================================================================

type itemKind int

const (
	itemBack itemKind = iota
	itemProject
	itemChat
)

type sidebarItem struct {
	kind  itemKind
	id    string
	title string
}

// =============================================================================
// MESSAGES
// =============================================================================

// viewMsg carries a session snapshot.
type viewMsg struct{ view session.View }

// sendDoneMsg ends a Send.
type sendDoneMsg struct{ err error }

// modelsMsg carries a catalog listing. startup marks the listing made by
// Init, which may pick a model.
type modelsMsg struct {
	result  catalog.Result
	startup bool
}

// storeChangedMsg reports that another process rewrote the store.
type storeChangedMsg struct{}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat interface.
type Model struct {
	ctx      context.Context
	sessions *session.Manager
	index    *index.Index
	catalog  *catalog.Client
	ui       config.UIConfig
	log      *zap.Logger

	theme  *styles.Theme
	keys   KeyMap
	md     *markdown
	width  int
	height int

	mode  mode
	focus focus

	// Session snapshot last rendered.
	view session.View

	// Sidebar
	items  []sidebarItem
	cursor int

	// Components
	viewport viewport.Model
	input    textarea.Model
	prompt   textinput.Model
	spinner  spinner.Model

	// Model picker
	models        []string
	modelCursor   int
	modelsLoading bool
	online        bool
	checked       bool

	// Pending deletion
	deleteTarget sidebarItem

	notice string
	err    error
}

// New creates the interface model.
func New(ctx context.Context, deps Deps) Model {
	log := logging.OrNop(deps.Log).Named("tui")
	theme := styles.NewTheme(deps.UI.Theme)

	in := textarea.New()
	in.Placeholder = "Send a message..."
	in.ShowLineNumbers = false
	in.Prompt = ""
	in.CharLimit = 0
	in.SetHeight(3)
	in.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	in.Focus()

	pr := textinput.New()
	pr.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		ctx:      ctx,
		sessions: deps.Sessions,
		index:    deps.Index,
		catalog:  deps.Catalog,
		ui:       deps.UI,
		log:      log,
		theme:    theme,
		keys:     DefaultKeyMap(),
		md:       newMarkdown(theme.Name, log),
		viewport: viewport.New(0, 0),
		input:    in,
		prompt:   pr,
		spinner:  sp,
	}
	m.sync()
	return m
}

// Init fetches the model list, which also tells whether Ollama is up.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.fetchModels(true))
}

func (m Model) fetchModels(startup bool) tea.Cmd {
	ctx, c := m.ctx, m.catalog
	return func() tea.Msg {
		return modelsMsg{result: c.Models(ctx), startup: startup}
	}
}

func (m Model) send(text string) tea.Cmd {
	ctx, s := m.ctx, m.sessions
	return func() tea.Msg {
		return sendDoneMsg{err: s.Send(ctx, text)}
	}
}

// sync pulls the current session snapshot and sidebar contents.
func (m *Model) sync() {
	m.setView(m.sessions.View())
}

func (m *Model) setView(v session.View) {
	m.view = v
	m.rebuildSidebar()
	m.refreshViewport()
}

func (m *Model) rebuildSidebar() {
	var items []sidebarItem
	scope := m.sessions.Scope()
	if scope == "" {
		for _, p := range m.index.Projects() {
			items = append(items, sidebarItem{kind: itemProject, id: p.ID, title: p.Title})
		}
	} else {
		items = append(items, sidebarItem{kind: itemBack, title: "All chats"})
	}
	for _, c := range m.index.VisibleIn(scope) {
		items = append(items, sidebarItem{kind: itemChat, id: c.ID, title: c.Title})
	}
	m.items = items
	if m.cursor >= len(items) {
		m.cursor = len(items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selectedItem() (sidebarItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return sidebarItem{}, false
	}
	return m.items[m.cursor], true
}

// currentProject returns the selected project scope, if any.
func (m Model) currentProject() (model.Project, bool) {
	scope := m.sessions.Scope()
	if scope == "" {
		return model.Project{}, false
	}
	return m.index.Project(scope)
}

// =============================================================================
// RENDER RELAY
// =============================================================================

// relay forwards session snapshots to the program without blocking the
// caller. Snapshots are complete, so only the latest pending one is kept.
type relay struct {
	notify  chan struct{}
	pending chan session.View
}

func newRelay() *relay {
	return &relay{
		notify:  make(chan struct{}, 1),
		pending: make(chan session.View, 1),
	}
}

// push replaces any undelivered snapshot with v.
func (r *relay) push(v session.View) {
	for {
		select {
		case r.pending <- v:
			select {
			case r.notify <- struct{}{}:
			default:
			}
			return
		default:
			select {
			case <-r.pending:
			default:
			}
		}
	}
}

// run delivers snapshots until ctx is done.
func (r *relay) run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.notify:
		}
		select {
		case v := <-r.pending:
			send(viewMsg{view: v})
		default:
		}
	}
}
