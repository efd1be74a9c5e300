// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import "github.com/jeranaias/rigchat/internal/session"

// TitleDraft is an in-progress rename. It is never persisted.
type TitleDraft struct {
	ChatID string
	Value  string
}

// BeginRename starts editing a conversation title, seeded with the current
// title. Any earlier draft is dropped.
func (ix *Index) BeginRename(id string) (TitleDraft, error) {
	chat, ok := ix.sessions.Chat(id)
	if !ok {
		return TitleDraft{}, session.ErrChatNotFound
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.draft = &TitleDraft{ChatID: id, Value: chat.Title}
	return *ix.draft, nil
}

// SetDraft replaces the draft value.
func (ix *Index) SetDraft(value string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.draft == nil {
		return ErrNoDraft
	}
	ix.draft.Value = value
	return nil
}

// Draft returns the current draft, if any.
func (ix *Index) Draft() (TitleDraft, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.draft == nil {
		return TitleDraft{}, false
	}
	return *ix.draft, true
}

// CommitRename applies the draft and ends editing.
func (ix *Index) CommitRename() error {
	ix.mu.Lock()
	d := ix.draft
	ix.draft = nil
	ix.mu.Unlock()

	if d == nil {
		return ErrNoDraft
	}
	return ix.RenameConversation(d.ChatID, d.Value)
}

// CancelRename drops the draft.
func (ix *Index) CancelRename() {
	ix.mu.Lock()
	ix.draft = nil
	ix.mu.Unlock()
}

func (ix *Index) clearDraftFor(chatID string) {
	ix.mu.Lock()
	if ix.draft != nil && ix.draft.ChatID == chatID {
		ix.draft = nil
	}
	ix.mu.Unlock()
}
