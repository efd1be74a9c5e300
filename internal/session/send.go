// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/transport"
)

// turn carries what one send needs after the lock is released.
type turn struct {
	chatID    string
	isNew     bool
	prior     []model.Message
	user      model.Message
	model     string
	system    string
	host      string
	firstText string
}

// Send appends text as a user turn to the current conversation (creating
// one in the current scope if none is selected) and streams the assistant
// reply into it. It blocks until the session is idle again.
//
// Only precondition failures are returned: ErrEmptyInput, ErrNoModel,
// ErrNoHost and ErrBusy, all without side effects. Stream failures end up
// in the assistant message as ErrorMarker.
func (m *Manager) Send(ctx context.Context, text string) error {
	t, streamCtx, err := m.begin(ctx, text)
	if err != nil {
		return err
	}
	defer m.cancelMgr.cancel()

	content, streamErr := m.stream(streamCtx, t)
	m.finish(t, content, streamErr)

	if streamErr == nil && m.cfg.AutoTitle && (t.isNew || len(t.prior) == 0) {
		m.startTitle(t.chatID, t.firstText, t.model, t.host)
	}
	return nil
}

// Stop cancels the in-flight stream, if any. The send finalizes with the
// content received so far.
func (m *Manager) Stop() bool {
	return m.cancelMgr.cancel()
}

// begin validates the send and applies the optimistic update. The stream
// context is cancellable through Stop before Loading becomes visible.
func (m *Manager) begin(ctx context.Context, text string) (turn, context.Context, error) {
	if strings.TrimSpace(text) == "" {
		return turn{}, nil, ErrEmptyInput
	}

	m.mu.Lock()
	if m.model == "" {
		m.mu.Unlock()
		return turn{}, nil, ErrNoModel
	}
	if m.loading {
		m.mu.Unlock()
		return turn{}, nil, ErrBusy
	}
	host := m.Host()
	if host == "" {
		m.mu.Unlock()
		return turn{}, nil, ErrNoHost
	}

	t := turn{
		model:     m.model,
		system:    m.systemPrompt,
		host:      host,
		firstText: text,
		user:      model.NewUserMessage(text),
	}

	if m.currentID == "" || model.FindChat(m.chats, m.currentID) < 0 {
		m.newChatLocked()
		t.isNew = true
	}
	t.chatID = m.currentID
	t.prior = model.CloneMessages(m.messages)

	optimistic := append(model.CloneMessages(t.prior), t.user, model.NewAssistantMessage(""))
	m.messages = optimistic
	m.setMessagesLocked(t.chatID, optimistic)
	_ = m.saveLocked()

	streamCtx, cancel := context.WithCancel(ctx)
	m.cancelMgr.set(cancel)

	m.loading = true
	m.state = StateSending
	v := m.viewLocked()
	m.mu.Unlock()

	m.render(v)
	return t, streamCtx, nil
}

// stream runs the request and accumulates assistant content. The returned
// content is whatever arrived before the stream ended, failed or was
// cancelled.
func (m *Manager) stream(ctx context.Context, t turn) (string, error) {
	client := m.ollama.ForHost(t.host)
	body, err := json.Marshal(client.NewChatRequest(t.model, t.system, ollama.FromModel(t.prior), ollama.FromModel([]model.Message{t.user})[0]))
	if err != nil {
		return "", err
	}

	s, err := m.transport.Open(ctx, transport.JSONPost(client.ChatURL(), body))
	if err != nil {
		m.log.Warn("open stream", zap.String("chat", t.chatID), zap.Error(err))
		return "", err
	}
	defer s.Close()

	m.setState(StateStreaming)

	var (
		acc     strings.Builder
		decoder = ollama.NewLineDecoder()
		limiter = rate.NewLimiter(rate.Every(m.cfg.RenderInterval), 1)
	)

	apply := func(records []ollama.Record) error {
		updated := false
		for _, r := range records {
			if r.Error != "" {
				return errors.New(r.Error)
			}
			if r.Content != "" {
				acc.WriteString(r.Content)
				updated = true
			}
		}
		if updated && limiter.Allow() {
			m.renderPartial(t, acc.String())
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			m.log.Info("stream cancelled", zap.String("chat", t.chatID))
			return acc.String(), err
		}
		chunk, err := s.Next()
		if len(chunk) > 0 {
			if applyErr := apply(decoder.Feed(chunk)); applyErr != nil {
				m.log.Warn("stream reported error", zap.String("chat", t.chatID), zap.Error(applyErr))
				return acc.String(), applyErr
			}
		}
		if errors.Is(err, io.EOF) {
			applyErr := apply(decoder.Flush())
			if skipped := decoder.Skipped(); skipped > 0 {
				m.log.Debug("skipped malformed lines", zap.String("chat", t.chatID), zap.Int("count", skipped))
			}
			return acc.String(), applyErr
		}
		if err != nil {
			m.log.Info("stream ended early", zap.String("chat", t.chatID), zap.Error(err))
			return acc.String(), err
		}
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// renderPartial updates the view with the growing assistant message. The
// store is not written.
func (m *Manager) renderPartial(t turn, content string) {
	m.mu.Lock()
	if m.currentID != t.chatID || len(m.messages) == 0 {
		m.mu.Unlock()
		return
	}
	last := len(m.messages) - 1
	m.messages[last] = m.messages[last].WithContent(content)
	v := m.viewLocked()
	m.mu.Unlock()

	m.render(v)
}

// finish commits the final turn and returns the session to Idle.
func (m *Manager) finish(t turn, content string, streamErr error) {
	if streamErr != nil {
		content += ErrorMarker
	}
	final := append(model.CloneMessages(t.prior), t.user, model.NewAssistantMessage(content))

	m.mu.Lock()
	m.state = StateFinalizing
	if m.setMessagesLocked(t.chatID, final) {
		_ = m.saveLocked()
	} else {
		m.log.Info("conversation removed while streaming", zap.String("chat", t.chatID))
	}
	if m.currentID == t.chatID {
		m.messages = model.CloneMessages(final)
	}
	m.loading = false
	m.state = StateIdle
	v := m.viewLocked()
	m.mu.Unlock()

	v.Final = true
	m.render(v)
}
