// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/transport"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// scripted hands out fixed chunks. With hang set it then blocks until the
// stream context is cancelled, closing atEnd first.
type scripted struct {
	chunks  []string
	openErr error
	hang    bool

	mu    sync.Mutex
	reqs  []transport.Request
	atEnd chan struct{}
}

func newScripted(chunks ...string) *scripted {
	return &scripted{chunks: chunks, atEnd: make(chan struct{})}
}

func (s *scripted) Kind() transport.Kind { return transport.KindDirect }

func (s *scripted) Open(ctx context.Context, req transport.Request) (transport.Stream, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &scriptedStream{ctx: ctx, parent: s}, nil
}

func (s *scripted) requests() []transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Request(nil), s.reqs...)
}

type scriptedStream struct {
	ctx    context.Context
	parent *scripted
	i      int
	once   sync.Once
}

func (s *scriptedStream) Next() ([]byte, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if s.i < len(s.parent.chunks) {
		c := s.parent.chunks[s.i]
		s.i++
		return []byte(c), nil
	}
	if s.parent.hang {
		s.once.Do(func() { close(s.parent.atEnd) })
		<-s.ctx.Done()
		return nil, s.ctx.Err()
	}
	return nil, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

func line(content string) string {
	b, _ := json.Marshal(map[string]any{"message": map[string]string{"role": "assistant", "content": content}})
	return string(b) + "\n"
}

func newTestManager(t *testing.T, tr transport.Transport, mutate func(*Config)) (*Manager, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	cfg := DefaultConfig()
	cfg.AutoTitle = false
	if mutate != nil {
		mutate(&cfg)
	}
	m := NewManager(cfg, store, tr, nil)
	require.NoError(t, m.Load())
	m.UseModel("m1")
	return m, store
}

func lastContent(t *testing.T, store storage.Store, chatID string) string {
	t.Helper()
	chats, err := storage.LoadChats(store)
	require.NoError(t, err)
	i := model.FindChat(chats, chatID)
	require.GreaterOrEqual(t, i, 0, "chat %s not persisted", chatID)
	msgs := chats[i].Messages
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1].Content
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestSend_Preconditions(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		m, store := newTestManager(t, newScripted(), nil)
		assert.ErrorIs(t, m.Send(context.Background(), "   \n"), ErrEmptyInput)
		assert.Equal(t, 0, store.Writes())
		assert.Empty(t, m.Chats())
	})

	t.Run("no model", func(t *testing.T) {
		m, store := newTestManager(t, newScripted(), nil)
		m.UseModel("")
		assert.ErrorIs(t, m.Send(context.Background(), "hi"), ErrNoModel)
		assert.Equal(t, 0, store.Writes())
	})

	t.Run("no host", func(t *testing.T) {
		tr := newScripted()
		m, store := newTestManager(t, tr, func(c *Config) { c.DefaultHost = "" })
		assert.ErrorIs(t, m.Send(context.Background(), "hi"), ErrNoHost)
		assert.Equal(t, 0, store.Writes())
		assert.Empty(t, tr.requests())
	})
}

func TestSend_BusyWhileStreaming(t *testing.T) {
	tr := newScripted(line("partial"))
	tr.hang = true
	m, _ := newTestManager(t, tr, nil)

	done := make(chan error, 1)
	go func() { done <- m.Send(context.Background(), "first") }()
	<-tr.atEnd

	assert.True(t, m.Loading())
	assert.ErrorIs(t, m.Send(context.Background(), "second"), ErrBusy)

	assert.True(t, m.Stop())
	require.NoError(t, <-done)
	assert.False(t, m.Loading())
	assert.False(t, m.Stop())
}

// =============================================================================
// STREAMING
// =============================================================================

func TestSend_AccumulatesFragments(t *testing.T) {
	tr := newScripted(line("Sure"), line(", here"))
	m, store := newTestManager(t, tr, nil)

	require.NoError(t, m.Send(context.Background(), "Summarize this email"))

	v := m.View()
	assert.False(t, v.Loading)
	assert.Equal(t, StateIdle, v.State)
	require.Len(t, v.Messages, 2)
	assert.Equal(t, model.RoleUser, v.Messages[0].Role)
	assert.Equal(t, "Sure, here", v.Messages[1].Content)
	assert.Equal(t, "Sure, here", lastContent(t, store, v.ChatID))
}

func TestSend_RequestBody(t *testing.T) {
	tr := newScripted(line("a"), line("b"))
	m, store := newTestManager(t, tr, nil)
	require.NoError(t, storage.SetHost(store, "http://ollama.test:11434/"))
	require.NoError(t, m.SetSystemPrompt("Be brief."))

	require.NoError(t, m.Send(context.Background(), "one"))
	require.NoError(t, m.Send(context.Background(), "two"))

	reqs := tr.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "http://ollama.test:11434/api/chat", reqs[1].URL)

	var body ollama.ChatRequest
	require.NoError(t, json.Unmarshal(reqs[1].Body, &body))
	assert.Equal(t, "m1", body.Model)
	assert.True(t, body.Stream)
	assert.Equal(t, "http://ollama.test:11434", body.Host)

	roles := make([]string, len(body.Messages))
	for i, msg := range body.Messages {
		roles[i] = msg.Role
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, "Be brief.", body.Messages[0].Content)
	assert.Equal(t, "ab", body.Messages[2].Content)

	// The system message is never stored.
	for _, msg := range m.View().Messages {
		assert.NotEqual(t, model.RoleSystem, msg.Role)
	}
}

func TestSend_ChunkBoundaryIndependence(t *testing.T) {
	body := line("Hel") + "not json\n" + "\n" + line("lo, ") + line("wörld") + `{"message":{"content":"!"},"done":true}`
	want := "Hello, wörld!"

	for size := 1; size <= len(body); size++ {
		var chunks []string
		for i := 0; i < len(body); i += size {
			end := i + size
			if end > len(body) {
				end = len(body)
			}
			chunks = append(chunks, body[i:end])
		}
		m, store := newTestManager(t, newScripted(chunks...), nil)
		require.NoError(t, m.Send(context.Background(), "x"))
		require.Equal(t, want, lastContent(t, store, m.CurrentID()), "chunk size %d", size)
	}
}

func TestSend_RecordSplitAcrossChunks(t *testing.T) {
	full := line("split record")
	tr := newScripted(full[:10], full[10:])
	m, _ := newTestManager(t, tr, nil)

	require.NoError(t, m.Send(context.Background(), "x"))
	assert.Equal(t, "split record", m.View().Messages[1].Content)
}

func TestSend_CancelKeepsFragments(t *testing.T) {
	tr := newScripted(line("one "), line("two "), line("three"))
	tr.hang = true
	m, store := newTestManager(t, tr, nil)

	done := make(chan error, 1)
	go func() { done <- m.Send(context.Background(), "count") }()

	<-tr.atEnd
	m.Stop()
	require.NoError(t, <-done)

	want := "one two three" + ErrorMarker
	assert.Equal(t, want, m.View().Messages[1].Content)
	assert.Equal(t, want, lastContent(t, store, m.CurrentID()))
}

func TestSend_StopDuringSendingRender(t *testing.T) {
	tr := newScripted(line("never"))
	m, store := newTestManager(t, tr, nil)

	var stopped atomic.Bool
	m.SetRenderCallback(func(v View) {
		if v.State == StateSending && !stopped.Load() {
			stopped.Store(m.Stop())
		}
	})

	require.NoError(t, m.Send(context.Background(), "x"))
	assert.True(t, stopped.Load(), "Stop must reach a send that already shows Loading")
	assert.Equal(t, ErrorMarker, lastContent(t, store, m.CurrentID()))
	assert.False(t, m.View().Loading)
}

func TestSend_StopOverBridgeKeepsReceivedFragments(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := w.(http.Flusher)
		_, _ = io.WriteString(w, line("one ")+line("two "))
		f.Flush()
		select {
		case <-release:
			_, _ = io.WriteString(w, line("three"))
			f.Flush()
		case <-r.Context().Done():
			return
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	host := transport.NewBridge(nil, nil)
	defer host.Close()
	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetHost(store, srv.URL))
	cfg := DefaultConfig()
	cfg.AutoTitle = false
	cfg.RenderInterval = time.Nanosecond
	m := NewManager(cfg, store, transport.NewBridged(host, nil), nil)
	require.NoError(t, m.Load())
	m.UseModel("m1")

	done := make(chan error, 1)
	go func() { done <- m.Send(context.Background(), "count") }()

	require.Eventually(t, func() bool {
		v := m.View()
		return len(v.Messages) == 2 && v.Messages[1].Content == "one two "
	}, 2*time.Second, 5*time.Millisecond)

	require.True(t, m.Stop())
	close(release)
	require.NoError(t, <-done)

	want := "one two " + ErrorMarker
	assert.Equal(t, want, m.View().Messages[1].Content)
	assert.Equal(t, want, lastContent(t, store, m.CurrentID()))
}

func TestSend_CallerContextCancel(t *testing.T) {
	tr := newScripted(line("half"))
	tr.hang = true
	m, _ := newTestManager(t, tr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Send(ctx, "x") }()
	<-tr.atEnd
	cancel()

	require.NoError(t, <-done)
	assert.Equal(t, "half"+ErrorMarker, m.View().Messages[1].Content)
}

func TestSend_OpenFailure(t *testing.T) {
	tr := newScripted()
	tr.openErr = errors.New("connection refused")
	m, store := newTestManager(t, tr, nil)

	require.NoError(t, m.Send(context.Background(), "hello"))

	v := m.View()
	assert.False(t, v.Loading)
	require.Len(t, v.Messages, 2)
	assert.Equal(t, ErrorMarker, v.Messages[1].Content)
	assert.Equal(t, ErrorMarker, lastContent(t, store, v.ChatID))

	// The session stays usable.
	tr.openErr = nil
	tr.chunks = []string{line("ok")}
	require.NoError(t, m.Send(context.Background(), "again"))
	assert.Equal(t, "ok", m.View().Messages[3].Content)
}

func TestSend_InStreamError(t *testing.T) {
	tr := newScripted(line("some"), `{"error":"model crashed"}`+"\n", line("ignored"))
	m, _ := newTestManager(t, tr, nil)

	require.NoError(t, m.Send(context.Background(), "x"))
	assert.Equal(t, "some"+ErrorMarker, m.View().Messages[1].Content)
}

func TestSend_OptimisticWriteBeforeStream(t *testing.T) {
	tr := newScripted()
	tr.hang = true
	m, store := newTestManager(t, tr, nil)

	done := make(chan error, 1)
	go func() { done <- m.Send(context.Background(), "hello") }()
	<-tr.atEnd

	chats, err := storage.LoadChats(store)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Len(t, chats[0].Messages, 2)
	assert.Equal(t, "hello", chats[0].Messages[0].Content)
	assert.Equal(t, "", chats[0].Messages[1].Content)
	assert.Equal(t, model.DefaultChatTitle, chats[0].Title)

	m.Stop()
	<-done
}

func TestSend_RenderThrottle(t *testing.T) {
	chunks := make([]string, 50)
	for i := range chunks {
		chunks[i] = line("x")
	}
	tr := newScripted(chunks...)
	m, _ := newTestManager(t, tr, func(c *Config) { c.RenderInterval = time.Hour })

	var partial, final int
	m.SetRenderCallback(func(v View) {
		switch {
		case v.Final:
			final++
		case v.State == StateStreaming:
			partial++
		}
	})

	require.NoError(t, m.Send(context.Background(), "x"))
	assert.LessOrEqual(t, partial, 1)
	assert.Equal(t, 1, final)
	assert.Equal(t, strings.Repeat("x", 50), m.View().Messages[1].Content)
}

// =============================================================================
// SCOPE AND SELECTION
// =============================================================================

func TestSend_NewChatInheritsScope(t *testing.T) {
	m, _ := newTestManager(t, newScripted(line("hi")), nil)
	m.SelectProject("P")

	require.NoError(t, m.Send(context.Background(), "x"))

	chat, ok := m.Chat(m.CurrentID())
	require.True(t, ok)
	assert.Equal(t, "P", chat.ProjectID)
}

func TestSelectProjectClearsView(t *testing.T) {
	m, _ := newTestManager(t, newScripted(line("hi")), nil)
	require.NoError(t, m.Send(context.Background(), "x"))
	require.NotEmpty(t, m.View().Messages)

	m.SelectProject("P")
	v := m.View()
	assert.Empty(t, v.ChatID)
	assert.Empty(t, v.Messages)
	assert.Equal(t, "P", v.ProjectID)
}

func TestSelectChat(t *testing.T) {
	m, _ := newTestManager(t, newScripted(line("hi")), nil)
	require.NoError(t, m.Send(context.Background(), "x"))
	first := m.CurrentID()

	_, err := m.NewChat()
	require.NoError(t, err)
	assert.NotEqual(t, first, m.CurrentID())
	assert.Empty(t, m.View().Messages)

	require.NoError(t, m.SelectChat(first))
	assert.Len(t, m.View().Messages, 2)
	assert.ErrorIs(t, m.SelectChat("missing"), ErrChatNotFound)
}

func TestLoadRehydrates(t *testing.T) {
	tr := newScripted(line("persisted"))
	m, store := newTestManager(t, tr, nil)
	require.NoError(t, m.SetModel("m1"))
	require.NoError(t, m.Send(context.Background(), "x"))

	again := NewManager(DefaultConfig(), store, tr, nil)
	require.NoError(t, again.Load())
	assert.Equal(t, "m1", again.Model())
	require.Len(t, again.Chats(), 1)
	assert.Equal(t, "persisted", again.Chats()[0].Messages[1].Content)
}

func TestUpdateChatsClearsMissingSelection(t *testing.T) {
	m, store := newTestManager(t, newScripted(line("hi")), nil)
	require.NoError(t, m.Send(context.Background(), "x"))

	require.NoError(t, m.UpdateChats(func([]model.Chat) []model.Chat { return nil }))
	assert.Empty(t, m.CurrentID())
	assert.Empty(t, m.View().Messages)

	chats, err := storage.LoadChats(store)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

// =============================================================================
// END TO END AND TITLES
// =============================================================================

type ollamaStub struct {
	srv        *httptest.Server
	title      string
	titleGate  chan struct{}
	titleCalls int32
	titleBody  atomic.Value
}

func newOllamaStub(t *testing.T, title string) *ollamaStub {
	t.Helper()
	stub := &ollamaStub{title: title}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			f := w.(http.Flusher)
			_, _ = io.WriteString(w, `{"message":{"content":"Sure"}}`+"\n")
			f.Flush()
			_, _ = io.WriteString(w, `{"message":{"content":", here"}}`+"\n")
			f.Flush()
		case "/api/generate":
			atomic.AddInt32(&stub.titleCalls, 1)
			var req ollama.GenerateRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			stub.titleBody.Store(req)
			if stub.titleGate != nil {
				<-stub.titleGate
			}
			if stub.title == "" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(ollama.GenerateResponse{Response: stub.title})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.srv.Close)
	return stub
}

func newE2EManager(t *testing.T, stub *ollamaStub) (*Manager, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetHost(store, stub.srv.URL))
	m := NewManager(DefaultConfig(), store, transport.NewDirect(nil), nil)
	require.NoError(t, m.Load())
	m.UseModel("m1")
	return m, store
}

func TestEndToEnd_SendAndTitle(t *testing.T) {
	stub := newOllamaStub(t, "  \"Email Summary Help\"\n")
	m, store := newE2EManager(t, stub)

	require.NoError(t, m.Send(context.Background(), "Summarize this email"))
	assert.Equal(t, "Sure, here", m.View().Messages[1].Content)

	m.Wait()

	chats, err := storage.LoadChats(store)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "Email Summary Help", chats[0].Title)
	assert.Equal(t, "Sure, here", chats[0].Messages[1].Content)

	req := stub.titleBody.Load().(ollama.GenerateRequest)
	assert.Equal(t, "m1", req.Model)
	assert.False(t, req.Stream)
	assert.Contains(t, req.Prompt, `"Summarize this email"`)
}

func TestTitle_OnlyForFirstExchange(t *testing.T) {
	stub := newOllamaStub(t, "First Title")
	m, _ := newE2EManager(t, stub)

	require.NoError(t, m.Send(context.Background(), "one"))
	m.Wait()
	require.NoError(t, m.Send(context.Background(), "two"))
	m.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.titleCalls))
}

func TestTitle_FailureKeepsDefault(t *testing.T) {
	stub := newOllamaStub(t, "")
	m, store := newE2EManager(t, stub)

	require.NoError(t, m.Send(context.Background(), "hello"))
	m.Wait()

	chats, err := storage.LoadChats(store)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultChatTitle, chats[0].Title)
}

func TestTitle_SkippedAfterFailedStream(t *testing.T) {
	stub := newOllamaStub(t, "Never")
	store := storage.NewMemoryStore()
	require.NoError(t, storage.SetHost(store, stub.srv.URL))
	tr := newScripted()
	tr.openErr = errors.New("boom")
	m := NewManager(DefaultConfig(), store, tr, nil)
	require.NoError(t, m.Load())
	m.UseModel("m1")

	require.NoError(t, m.Send(context.Background(), "hello"))
	m.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.titleCalls))
}

func TestTitle_DoesNotClobberLaterMessages(t *testing.T) {
	stub := newOllamaStub(t, "Late Title")
	stub.titleGate = make(chan struct{})
	m, store := newE2EManager(t, stub)

	require.NoError(t, m.Send(context.Background(), "one"))
	// The title request is parked; a second exchange lands first.
	require.NoError(t, m.Send(context.Background(), "two"))
	close(stub.titleGate)
	m.Wait()

	chats, err := storage.LoadChats(store)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "Late Title", chats[0].Title)
	assert.Len(t, chats[0].Messages, 4)
}

func TestTitle_NotCancelledByStop(t *testing.T) {
	stub := newOllamaStub(t, "Survives")
	stub.titleGate = make(chan struct{})
	m, store := newE2EManager(t, stub)

	require.NoError(t, m.Send(context.Background(), "one"))
	assert.False(t, m.Stop())
	close(stub.titleGate)
	m.Wait()

	chats, err := storage.LoadChats(store)
	require.NoError(t, err)
	assert.Equal(t, "Survives", chats[0].Title)
}
