// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrEmptyTitle      = errors.New("title is empty")
	ErrNoDraft         = errors.New("no title edit in progress")
)

// Index is the conversation index. It is safe for concurrent use.
type Index struct {
	mu sync.Mutex

	sessions *session.Manager
	store    storage.Store
	log      *zap.Logger

	projects []model.Project
	draft    *TitleDraft
}

// New creates an index over the manager's conversations. Call Load before
// use.
func New(sessions *session.Manager, store storage.Store, log *zap.Logger) *Index {
	return &Index{
		sessions: sessions,
		store:    store,
		log:      logging.OrNop(log).Named("index"),
	}
}

// Load reads the project list from the store.
func (ix *Index) Load() error {
	projects, err := storage.LoadProjects(ix.store)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	ix.projects = projects
	ix.mu.Unlock()
	return nil
}

// Reload rehydrates projects and conversations after the store changed
// underneath the process. A selected scope that no longer exists is reset.
func (ix *Index) Reload() error {
	if err := ix.sessions.Load(); err != nil {
		return err
	}
	if err := ix.Load(); err != nil {
		return err
	}
	if scope := ix.sessions.Scope(); scope != "" {
		if _, ok := ix.Project(scope); !ok {
			ix.sessions.SelectProject("")
		}
	}
	return nil
}

// =============================================================================
// LISTING
// =============================================================================

// Visible returns the conversations shown under the current scope.
func (ix *Index) Visible() []model.Chat {
	return ix.VisibleIn(ix.sessions.Scope())
}

// VisibleIn returns the conversations shown under scope ("" for none).
func (ix *Index) VisibleIn(scope string) []model.Chat {
	return model.FilterScope(ix.sessions.Chats(), scope)
}

// Projects returns the projects, newest first.
func (ix *Index) Projects() []model.Project {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]model.Project(nil), ix.projects...)
}

// Project looks a project up by id.
func (ix *Index) Project(id string) (model.Project, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if i := model.FindProject(ix.projects, id); i >= 0 {
		return ix.projects[i], true
	}
	return model.Project{}, false
}

// ResolveProject finds a project by id, exact title or unique id prefix,
// in that order.
func (ix *Index) ResolveProject(ref string) (model.Project, bool) {
	if ref == "" {
		return model.Project{}, false
	}
	if p, ok := ix.Project(ref); ok {
		return p, true
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, p := range ix.projects {
		if p.Title == ref {
			return p, true
		}
	}
	var match *model.Project
	for i := range ix.projects {
		if strings.HasPrefix(ix.projects[i].ID, ref) {
			if match != nil {
				return model.Project{}, false
			}
			match = &ix.projects[i]
		}
	}
	if match == nil {
		return model.Project{}, false
	}
	return *match, true
}

// =============================================================================
// SELECTION
// =============================================================================

// SelectConversation makes id the current conversation.
func (ix *Index) SelectConversation(id string) error {
	return ix.sessions.SelectChat(id)
}

// SelectProject sets the scope ("" for none) and clears the current
// conversation.
func (ix *Index) SelectProject(id string) error {
	if id != "" {
		if _, ok := ix.Project(id); !ok {
			return ErrProjectNotFound
		}
	}
	ix.sessions.SelectProject(id)
	return nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateConversation adds an empty conversation in the current scope at the
// front of the list and selects it.
func (ix *Index) CreateConversation() (model.Chat, error) {
	return ix.sessions.NewChat()
}

// CreateProject adds a project at the front of the list. It is not selected.
func (ix *Index) CreateProject(title string) (model.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Project{}, ErrEmptyTitle
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	p := model.NewProject(title)
	next := append([]model.Project{p}, ix.projects...)
	if err := storage.SaveProjects(ix.store, next); err != nil {
		return model.Project{}, err
	}
	ix.projects = next
	return p, nil
}

// DeleteConversation removes a conversation. If it was selected, the first
// remaining conversation in the same scope is selected, or the selection is
// cleared when there is none.
func (ix *Index) DeleteConversation(id string) error {
	if _, ok := ix.sessions.Chat(id); !ok {
		return session.ErrChatNotFound
	}
	wasSelected := ix.sessions.CurrentID() == id

	err := ix.sessions.UpdateChats(func(chats []model.Chat) []model.Chat {
		out := chats[:0:0]
		for _, c := range chats {
			if c.ID != id {
				out = append(out, c)
			}
		}
		return out
	})
	if err != nil {
		return err
	}

	ix.clearDraftFor(id)

	if wasSelected {
		if remaining := ix.Visible(); len(remaining) > 0 {
			return ix.sessions.SelectChat(remaining[0].ID)
		}
		ix.sessions.ClearSelection()
	}
	return nil
}

// DeleteProject removes a project and every conversation in it. If it was
// the selected scope, the scope resets to none.
func (ix *Index) DeleteProject(id string) error {
	ix.mu.Lock()
	i := model.FindProject(ix.projects, id)
	if i < 0 {
		ix.mu.Unlock()
		return ErrProjectNotFound
	}
	next := make([]model.Project, 0, len(ix.projects)-1)
	next = append(next, ix.projects[:i]...)
	next = append(next, ix.projects[i+1:]...)
	if err := storage.SaveProjects(ix.store, next); err != nil {
		ix.mu.Unlock()
		return err
	}
	ix.projects = next
	ix.mu.Unlock()

	removed := 0
	err := ix.sessions.UpdateChats(func(chats []model.Chat) []model.Chat {
		out := chats[:0:0]
		for _, c := range chats {
			if c.ProjectID == id {
				removed++
				continue
			}
			out = append(out, c)
		}
		return out
	})
	if err != nil {
		return err
	}
	ix.log.Debug("project deleted", zap.String("project", id), zap.Int("conversations", removed))

	if ix.sessions.Scope() == id {
		ix.sessions.SelectProject("")
	}
	return nil
}

// RenameConversation sets a conversation's title. Blank titles become
// "Untitled".
func (ix *Index) RenameConversation(id, title string) error {
	if _, ok := ix.sessions.Chat(id); !ok {
		return session.ErrChatNotFound
	}
	title = model.NormalizeTitle(title)
	return ix.sessions.UpdateChats(func(chats []model.Chat) []model.Chat {
		if i := model.FindChat(chats, id); i >= 0 {
			chats[i].Title = title
		}
		return chats
	})
}
