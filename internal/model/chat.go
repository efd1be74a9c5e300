// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultChatTitle is the title given to chats before auto-titling runs.
	DefaultChatTitle = "New Chat"

	// UntitledChat replaces blank titles on rename.
	UntitledChat = "Untitled"

	chatType = "chat"
)

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat is one ordered thread of user/assistant turns.
// ProjectID is empty when the chat is not grouped in a project.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Type      string    `json:"type,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
}

// NewChat creates an empty chat with a fresh id in the given project scope.
func NewChat(projectID string) Chat {
	return Chat{
		ID:        uuid.NewString(),
		Title:     DefaultChatTitle,
		Messages:  []Message{},
		Type:      chatType,
		ProjectID: projectID,
	}
}

// InScope reports whether the chat is listed under the given project scope.
// An empty scope matches only chats without a project.
func (c Chat) InScope(projectID string) bool {
	return c.ProjectID == projectID
}

// Clone returns a deep copy of the chat.
func (c Chat) Clone() Chat {
	c.Messages = CloneMessages(c.Messages)
	return c
}

// Preview returns the first user message, or an empty string.
func (c Chat) Preview() string {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}

// NormalizeTitle maps blank titles to UntitledChat.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return UntitledChat
	}
	return title
}

// FilterScope returns the chats listed under the given project scope,
// preserving order.
func FilterScope(chats []Chat, projectID string) []Chat {
	out := make([]Chat, 0, len(chats))
	for _, c := range chats {
		if c.InScope(projectID) {
			out = append(out, c)
		}
	}
	return out
}

// FindChat returns the index of the chat with the given id, or -1.
func FindChat(chats []Chat, id string) int {
	for i, c := range chats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// PROJECT TYPE
// =============================================================================

// Project groups chats. It has no content of its own.
// CreatedAt is milliseconds since the Unix epoch.
type Project struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"`
}

// NewProject creates a project with a fresh id.
func NewProject(title string) Project {
	return Project{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Created returns CreatedAt as a time.Time.
func (p Project) Created() time.Time {
	return time.UnixMilli(p.CreatedAt)
}

// FindProject returns the index of the project with the given id, or -1.
func FindProject(projects []Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}
