// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/transport"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config holds configuration for the session manager.
type Config struct {
	// DefaultHost is used when the store has no saved host. Empty means
	// Send fails with ErrNoHost until one is saved.
	DefaultHost string

	// RenderInterval is the minimum gap between streaming renders
	// (default: 32ms).
	RenderInterval time.Duration

	// TitleTimeout bounds the background title request (default: 60s).
	TitleTimeout time.Duration

	// AutoTitle enables title generation (default: true).
	AutoTitle bool

	// Ollama configures the client used for title requests. Nil uses
	// ollama.DefaultConfig.
	Ollama *ollama.ClientConfig
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		DefaultHost:    storage.DefaultHost,
		RenderInterval: 32 * time.Millisecond,
		TitleTimeout:   60 * time.Second,
		AutoTitle:      true,
	}
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager is the chat session manager. All methods are safe for concurrent
// use; at most one Send runs at a time.
type Manager struct {
	mu sync.Mutex

	cfg       Config
	store     storage.Store
	transport transport.Transport
	ollama    *ollama.Client
	log       *zap.Logger

	// Persisted state, rehydrated by Load.
	chats        []model.Chat
	model        string
	systemPrompt string

	// Selection and view.
	currentID string
	scope     string
	messages  []model.Message

	loading bool
	state   State

	cancelMgr *cancelManager
	titles    sync.WaitGroup

	onRender func(View)
}

// NewManager creates a session manager. Call Load before use.
func NewManager(cfg Config, store storage.Store, tr transport.Transport, log *zap.Logger) *Manager {
	def := DefaultConfig()
	if cfg.RenderInterval <= 0 {
		cfg.RenderInterval = def.RenderInterval
	}
	if cfg.TitleTimeout <= 0 {
		cfg.TitleTimeout = def.TitleTimeout
	}

	ollamaCfg := cfg.Ollama
	if ollamaCfg == nil {
		ollamaCfg = ollama.DefaultConfig()
	}

	return &Manager{
		cfg:          cfg,
		store:        store,
		transport:    tr,
		ollama:       ollama.NewClientWithConfig(ollamaCfg),
		log:          logging.OrNop(log).Named("session"),
		systemPrompt: storage.DefaultSystemPrompt,
		cancelMgr:    newCancelManager(),
	}
}

// Load rehydrates conversations and preferences from the store.
func (m *Manager) Load() error {
	chats, err := storage.LoadChats(m.store)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = chats
	m.systemPrompt = storage.SystemPrompt(m.store)
	if m.model == "" {
		m.model = storage.SelectedModel(m.store)
	}
	if m.currentID != "" {
		if i := model.FindChat(m.chats, m.currentID); i >= 0 {
			m.messages = model.CloneMessages(m.chats[i].Messages)
		} else {
			m.currentID = ""
			m.messages = nil
		}
	}
	return nil
}

// SetRenderCallback sets the function that receives view snapshots. It is
// called without the manager's lock held.
func (m *Manager) SetRenderCallback(fn func(View)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRender = fn
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// View returns a snapshot of the current state.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Manager) viewLocked() View {
	v := View{
		ChatID:    m.currentID,
		ProjectID: m.scope,
		Messages:  model.CloneMessages(m.messages),
		Loading:   m.loading,
		State:     m.state,
		Model:     m.model,
	}
	if i := model.FindChat(m.chats, m.currentID); i >= 0 {
		v.ChatTitle = m.chats[i].Title
	}
	return v
}

func (m *Manager) render(v View) {
	m.mu.Lock()
	fn := m.onRender
	m.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

// Chats returns a copy of every conversation, newest first.
func (m *Manager) Chats() []model.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Chat, len(m.chats))
	for i, c := range m.chats {
		out[i] = c.Clone()
	}
	return out
}

// Chat returns one conversation by id.
func (m *Manager) Chat(id string) (model.Chat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := model.FindChat(m.chats, id); i >= 0 {
		return m.chats[i].Clone(), true
	}
	return model.Chat{}, false
}

// CurrentID returns the selected conversation id or "".
func (m *Manager) CurrentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// Scope returns the selected project id or "".
func (m *Manager) Scope() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scope
}

// Loading reports whether a send is in progress.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// =============================================================================
// PREFERENCES
// =============================================================================

// Model returns the model used for the next send.
func (m *Manager) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// UseModel sets the model for this session without saving it.
func (m *Manager) UseModel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = name
}

// SetModel sets and saves the model preference.
func (m *Manager) SetModel(name string) error {
	if err := storage.SetSelectedModel(m.store, name); err != nil {
		return err
	}
	m.UseModel(name)
	return nil
}

// SystemPrompt returns the prompt sent ahead of every conversation.
func (m *Manager) SystemPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.systemPrompt
}

// SetSystemPrompt saves the system prompt override.
func (m *Manager) SetSystemPrompt(prompt string) error {
	if err := storage.SetSystemPrompt(m.store, prompt); err != nil {
		return err
	}
	m.mu.Lock()
	m.systemPrompt = prompt
	m.mu.Unlock()
	return nil
}

// Host resolves the backend host: saved host, then the configured default.
func (m *Manager) Host() string {
	if h := storage.Host(m.store); h != "" {
		return h
	}
	return m.cfg.DefaultHost
}

// =============================================================================
// SELECTION
// =============================================================================

// NewChat creates an empty conversation in the current scope, puts it first
// and selects it.
func (m *Manager) NewChat() (model.Chat, error) {
	m.mu.Lock()
	chat := m.newChatLocked()
	err := m.saveLocked()
	v := m.viewLocked()
	m.mu.Unlock()

	m.render(v)
	return chat.Clone(), err
}

func (m *Manager) newChatLocked() model.Chat {
	chat := model.NewChat(m.scope)
	m.chats = append([]model.Chat{chat}, m.chats...)
	m.currentID = chat.ID
	m.messages = nil
	return chat
}

// SelectChat makes id the current conversation and loads its messages.
func (m *Manager) SelectChat(id string) error {
	m.mu.Lock()
	i := model.FindChat(m.chats, id)
	if i < 0 {
		m.mu.Unlock()
		return ErrChatNotFound
	}
	m.currentID = id
	m.messages = model.CloneMessages(m.chats[i].Messages)
	v := m.viewLocked()
	m.mu.Unlock()

	m.render(v)
	return nil
}

// ClearSelection deselects the current conversation and empties the view.
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	m.currentID = ""
	m.messages = nil
	v := m.viewLocked()
	m.mu.Unlock()

	m.render(v)
}

// SelectProject sets the scope ("" for none). The current conversation and
// the message view are cleared.
func (m *Manager) SelectProject(projectID string) {
	m.mu.Lock()
	m.scope = projectID
	m.currentID = ""
	m.messages = nil
	v := m.viewLocked()
	m.mu.Unlock()

	m.render(v)
}

// UpdateChats applies fn to the current list and writes the result through
// to the store. fn receives the manager's own slice and must return the new
// list; it runs under the manager's lock. If the selected conversation no
// longer exists afterwards the selection is cleared.
func (m *Manager) UpdateChats(fn func([]model.Chat) []model.Chat) error {
	m.mu.Lock()
	m.chats = fn(m.chats)
	if m.currentID != "" && model.FindChat(m.chats, m.currentID) < 0 {
		m.currentID = ""
		m.messages = nil
	}
	err := m.saveLocked()
	v := m.viewLocked()
	m.mu.Unlock()

	m.render(v)
	return err
}

// saveLocked writes the conversation list. Last writer wins.
func (m *Manager) saveLocked() error {
	if err := storage.SaveChats(m.store, m.chats); err != nil {
		m.log.Error("save conversations", zap.Error(err))
		return err
	}
	return nil
}

// setMessagesLocked replaces the messages of conversation id in the list.
// It reports false when the conversation is gone.
func (m *Manager) setMessagesLocked(id string, msgs []model.Message) bool {
	i := model.FindChat(m.chats, id)
	if i < 0 {
		return false
	}
	m.chats[i].Messages = model.CloneMessages(msgs)
	return true
}

// Wait blocks until background title requests have finished.
func (m *Manager) Wait() {
	m.titles.Wait()
}
