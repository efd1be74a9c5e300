// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/transport"
)

func newIndex(t *testing.T) (*Index, *session.Manager, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	mgr := session.NewManager(session.DefaultConfig(), store, transport.NewDirect(nil), nil)
	require.NoError(t, mgr.Load())
	ix := New(mgr, store, nil)
	require.NoError(t, ix.Load())
	return ix, mgr, store
}

func createIn(t *testing.T, ix *Index, scope string) model.Chat {
	t.Helper()
	require.NoError(t, ix.SelectProject(scope))
	c, err := ix.CreateConversation()
	require.NoError(t, err)
	return c
}

func ids(chats []model.Chat) []string {
	out := make([]string, len(chats))
	for i, c := range chats {
		out[i] = c.ID
	}
	return out
}

func TestCreateConversation_FrontAndSelected(t *testing.T) {
	ix, mgr, store := newIndex(t)

	a, err := ix.CreateConversation()
	require.NoError(t, err)
	b, err := ix.CreateConversation()
	require.NoError(t, err)

	assert.Equal(t, []string{b.ID, a.ID}, ids(ix.Visible()))
	assert.Equal(t, b.ID, mgr.CurrentID())
	assert.Equal(t, model.DefaultChatTitle, b.Title)

	saved, err := storage.LoadChats(store)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, ids(saved))
}

func TestCreateProject_FrontNotSelected(t *testing.T) {
	ix, mgr, store := newIndex(t)

	p1, err := ix.CreateProject("Work")
	require.NoError(t, err)
	p2, err := ix.CreateProject("  Home ")
	require.NoError(t, err)

	assert.Equal(t, "Home", p2.Title)
	assert.NotZero(t, p1.CreatedAt)
	assert.Equal(t, "", mgr.Scope())

	projects := ix.Projects()
	require.Len(t, projects, 2)
	assert.Equal(t, p2.ID, projects[0].ID)

	saved, err := storage.LoadProjects(store)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	_, err = ix.CreateProject("   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestScopeFilter(t *testing.T) {
	ix, _, _ := newIndex(t)
	p, err := ix.CreateProject("P")
	require.NoError(t, err)

	a := createIn(t, ix, p.ID)
	b := createIn(t, ix, "")

	assert.Equal(t, []string{a.ID}, ids(ix.VisibleIn(p.ID)))
	assert.Equal(t, []string{b.ID}, ids(ix.VisibleIn("")))

	require.NoError(t, ix.SelectProject(p.ID))
	assert.Equal(t, []string{a.ID}, ids(ix.Visible()))
}

func TestDeleteConversation_ReselectsSibling(t *testing.T) {
	ix, mgr, _ := newIndex(t)
	sibling := createIn(t, ix, "")
	active := createIn(t, ix, "")
	require.Equal(t, active.ID, mgr.CurrentID())

	require.NoError(t, ix.DeleteConversation(active.ID))
	assert.Equal(t, sibling.ID, mgr.CurrentID())
}

func TestDeleteConversation_SiblingMustShareScope(t *testing.T) {
	ix, mgr, _ := newIndex(t)
	p, err := ix.CreateProject("P")
	require.NoError(t, err)

	createIn(t, ix, p.ID)
	active := createIn(t, ix, "")

	require.NoError(t, ix.DeleteConversation(active.ID))
	assert.Equal(t, "", mgr.CurrentID())
	assert.Empty(t, mgr.View().Messages)
}

func TestDeleteConversation_NotSelected(t *testing.T) {
	ix, mgr, _ := newIndex(t)
	other := createIn(t, ix, "")
	active := createIn(t, ix, "")

	require.NoError(t, ix.DeleteConversation(other.ID))
	assert.Equal(t, active.ID, mgr.CurrentID())
	assert.ErrorIs(t, ix.DeleteConversation(other.ID), session.ErrChatNotFound)
}

func TestDeleteProject_Cascades(t *testing.T) {
	ix, mgr, store := newIndex(t)
	p, err := ix.CreateProject("P")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		createIn(t, ix, p.ID)
	}
	keep := createIn(t, ix, "")
	require.NoError(t, ix.SelectProject(p.ID))

	require.NoError(t, ix.DeleteProject(p.ID))

	assert.Equal(t, "", mgr.Scope())
	assert.Equal(t, []string{keep.ID}, ids(mgr.Chats()))

	saved, err := storage.LoadChats(store)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids(saved))

	projects, err := storage.LoadProjects(store)
	require.NoError(t, err)
	assert.Empty(t, projects)

	assert.ErrorIs(t, ix.DeleteProject(p.ID), ErrProjectNotFound)
}

func TestDeleteProject_OtherScopeUntouched(t *testing.T) {
	ix, mgr, _ := newIndex(t)
	p, err := ix.CreateProject("P")
	require.NoError(t, err)
	q, err := ix.CreateProject("Q")
	require.NoError(t, err)
	createIn(t, ix, p.ID)
	createIn(t, ix, q.ID)

	require.NoError(t, ix.DeleteProject(p.ID))
	assert.Equal(t, q.ID, mgr.Scope())
	assert.Len(t, ix.VisibleIn(q.ID), 1)
}

func TestRenameConversation(t *testing.T) {
	ix, mgr, _ := newIndex(t)
	c := createIn(t, ix, "")

	require.NoError(t, ix.RenameConversation(c.ID, "  Trip plan "))
	got, _ := mgr.Chat(c.ID)
	assert.Equal(t, "Trip plan", got.Title)

	require.NoError(t, ix.RenameConversation(c.ID, "  \t"))
	got, _ = mgr.Chat(c.ID)
	assert.Equal(t, model.UntitledChat, got.Title)

	assert.ErrorIs(t, ix.RenameConversation("nope", "x"), session.ErrChatNotFound)
}

func TestTitleDraft(t *testing.T) {
	ix, mgr, _ := newIndex(t)
	c := createIn(t, ix, "")

	d, err := ix.BeginRename(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultChatTitle, d.Value)

	require.NoError(t, ix.SetDraft("Budget"))
	require.NoError(t, ix.CommitRename())
	got, _ := mgr.Chat(c.ID)
	assert.Equal(t, "Budget", got.Title)

	_, ok := ix.Draft()
	assert.False(t, ok)
	assert.ErrorIs(t, ix.CommitRename(), ErrNoDraft)

	_, err = ix.BeginRename(c.ID)
	require.NoError(t, err)
	require.NoError(t, ix.SetDraft("Discarded"))
	ix.CancelRename()
	got, _ = mgr.Chat(c.ID)
	assert.Equal(t, "Budget", got.Title)

	_, err = ix.BeginRename(c.ID)
	require.NoError(t, err)
	require.NoError(t, ix.DeleteConversation(c.ID))
	_, ok = ix.Draft()
	assert.False(t, ok)
}

func TestSelectProject_Unknown(t *testing.T) {
	ix, _, _ := newIndex(t)
	assert.ErrorIs(t, ix.SelectProject("missing"), ErrProjectNotFound)
}

func TestResolveProject(t *testing.T) {
	ix, _, _ := newIndex(t)
	p, err := ix.CreateProject("Research")
	require.NoError(t, err)

	got, ok := ix.ResolveProject("Research")
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)

	got, ok = ix.ResolveProject(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Research", got.Title)
}

func TestReload(t *testing.T) {
	ix, mgr, store := newIndex(t)
	p, err := ix.CreateProject("P")
	require.NoError(t, err)
	createIn(t, ix, p.ID)

	// Another process empties the store.
	require.NoError(t, storage.SaveProjects(store, nil))
	require.NoError(t, storage.SaveChats(store, nil))

	require.NoError(t, ix.Reload())
	assert.Empty(t, ix.Projects())
	assert.Empty(t, mgr.Chats())
	assert.Equal(t, "", mgr.Scope())
}
