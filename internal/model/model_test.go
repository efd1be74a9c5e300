// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("other"), "other"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.role.DisplayName())
	}
	assert.False(t, Role("tool").Valid())
}

func TestNewChat(t *testing.T) {
	a := NewChat("")
	b := NewChat("p1")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, DefaultChatTitle, a.Title)
	assert.Empty(t, a.Messages)
	assert.Equal(t, "p1", b.ProjectID)
}

func TestChat_JSONShape(t *testing.T) {
	c := Chat{ID: "a", Title: "T", Messages: []Message{{Role: RoleUser, Content: "hi"}}, ProjectID: "P"}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","title":"T","messages":[{"role":"user","content":"hi"}],"projectId":"P"}`, string(data))

	var back Chat
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b","title":"x","messages":[],"type":"chat"}`), &back))
	assert.Empty(t, back.ProjectID)
	assert.True(t, back.InScope(""))
}

func TestFilterScope(t *testing.T) {
	chats := []Chat{{ID: "a", ProjectID: "P"}, {ID: "b"}}

	scoped := FilterScope(chats, "P")
	require.Len(t, scoped, 1)
	assert.Equal(t, "a", scoped[0].ID)

	unscoped := FilterScope(chats, "")
	require.Len(t, unscoped, 1)
	assert.Equal(t, "b", unscoped[0].ID)
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, UntitledChat, NormalizeTitle("   "))
	assert.Equal(t, "Trip", NormalizeTitle(" Trip "))
}

func TestChat_CloneIsIndependent(t *testing.T) {
	c := Chat{ID: "a", Messages: []Message{{Role: RoleUser, Content: "one"}}}
	cp := c.Clone()
	cp.Messages[0].Content = "changed"
	assert.Equal(t, "one", c.Messages[0].Content)
}

func TestProject(t *testing.T) {
	p := NewProject("Work")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 0, FindProject([]Project{p}, p.ID))
	assert.Equal(t, -1, FindProject(nil, p.ID))
	assert.Equal(t, p.CreatedAt, p.Created().UnixMilli())
}

func TestMessage_Time(t *testing.T) {
	m := Message{Timestamp: "2025-01-02T03:04:05Z"}
	assert.Equal(t, 2025, m.Time().Year())
	assert.True(t, Message{}.Time().IsZero())
	assert.True(t, Message{Timestamp: "junk"}.Time().IsZero())
}
