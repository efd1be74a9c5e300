// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigchat/internal/model"
)

// TitlePrompt asks for a short title for a conversation opening with msg.
func TitlePrompt(msg string) string {
	return fmt.Sprintf(`Generate a very short, concise title (max 4 words) for a chat that starts with this message: "%s". Do not use quotes or prefixes. Just the title.`, msg)
}

// CleanTitle trims a generated title and strips one leading and one
// trailing double quote. An empty result means there is no usable title.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.TrimPrefix(title, `"`)
	title = strings.TrimSuffix(title, `"`)
	return norm.NFC.String(title)
}

func (m *Manager) startTitle(chatID, firstMessage, modelName, host string) {
	if host == "" {
		return
	}
	m.titles.Add(1)
	go func() {
		defer m.titles.Done()
		m.generateTitle(chatID, firstMessage, modelName, host)
	}()
}

// generateTitle runs on its own context; the chat stream's cancellation
// never reaches it.
func (m *Manager) generateTitle(chatID, firstMessage, modelName, host string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.TitleTimeout)
	defer cancel()

	raw, err := m.ollama.ForHost(host).Generate(ctx, modelName, TitlePrompt(firstMessage))
	if err != nil {
		m.log.Warn("generate title", zap.String("chat", chatID), zap.Error(err))
		return
	}
	title := CleanTitle(raw)
	if title == "" {
		return
	}

	// Title-only update against the live list.
	m.mu.Lock()
	i := model.FindChat(m.chats, chatID)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	m.chats[i].Title = title
	_ = m.saveLocked()
	v := m.viewLocked()
	m.mu.Unlock()

	m.log.Debug("conversation titled", zap.String("chat", chatID), zap.String("title", title))
	m.render(v)
}
