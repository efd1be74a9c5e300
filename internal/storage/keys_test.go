// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
)

func TestChatsRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	chats, err := LoadChats(s)
	require.NoError(t, err)
	assert.Empty(t, chats)

	in := []model.Chat{
		{ID: "a", Title: "First", ProjectID: "P", Messages: []model.Message{{Role: model.RoleUser, Content: "hi"}}},
		{ID: "b", Title: "Second", Messages: []model.Message{}},
	}
	require.NoError(t, SaveChats(s, in))

	out, err := LoadChats(s)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadChats_ReadsBrowserFormat(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(KeyChats, `[{"id":"x","title":"New Chat","messages":[{"role":"user","content":"q"},{"role":"assistant","content":"a"}],"type":"chat"}]`))

	chats, err := LoadChats(s)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "x", chats[0].ID)
	assert.Len(t, chats[0].Messages, 2)
}

func TestLoadChats_Corrupt(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(KeyChats, `[{"id":`))
	_, err := LoadChats(s)
	assert.Error(t, err)
}

func TestProjectsRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	p := model.NewProject("Work")
	require.NoError(t, SaveProjects(s, []model.Project{p}))

	out, err := LoadProjects(s)
	require.NoError(t, err)
	assert.Equal(t, []model.Project{p}, out)
}

func TestPreferences(t *testing.T) {
	s := NewMemoryStore()

	assert.Equal(t, DefaultSystemPrompt, SystemPrompt(s))
	assert.Equal(t, "", Host(s))
	assert.Equal(t, DefaultHost, HostOrDefault(s))
	assert.Equal(t, "", SelectedModel(s))

	require.NoError(t, SetSystemPrompt(s, "Be brief."))
	require.NoError(t, SetHost(s, " http://gpu:11434/ "))
	require.NoError(t, SetSelectedModel(s, "llama3"))

	assert.Equal(t, "Be brief.", SystemPrompt(s))
	assert.Equal(t, "http://gpu:11434", Host(s))
	assert.Equal(t, "llama3", SelectedModel(s))
}

func TestAPIKeys(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, SetAPIKey(s, "openai", "sk-1"))
	require.NoError(t, SetAPIKey(s, "anthropic", "sk-2"))
	require.NoError(t, s.Set(KeyHost, "http://x"))

	providers, err := ConfiguredProviders(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "openai"}, providers)
	assert.Equal(t, "sk-1", APIKey(s, "openai"))

	require.NoError(t, RemoveAPIKey(s, "openai"))
	providers, err = ConfiguredProviders(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic"}, providers)
}
