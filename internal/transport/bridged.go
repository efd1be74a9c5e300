// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/ollama"
)

const eventBuffer = 64

// ErrStreamClosed is returned by Next after Close.
var ErrStreamClosed = errors.New("stream closed")

// Bridged streams through a Host's event topics.
type Bridged struct {
	host Host
	log  *zap.Logger

	teardowns atomic.Int64
}

// NewBridged creates a bridged transport on host.
func NewBridged(host Host, log *zap.Logger) *Bridged {
	return &Bridged{host: host, log: logging.OrNop(log).Named("transport")}
}

func (b *Bridged) Kind() Kind { return KindBridged }

// Teardowns reports how many streams have released their subscriptions.
func (b *Bridged) Teardowns() int64 { return b.teardowns.Load() }

// NewStreamID returns "<unix millis>-<9 random chars>".
func NewStreamID() string {
	r := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), r[:9])
}

// Open subscribes to the stream's three topics, then asks the host to start
// the request. Subscribing first means no early event is missed.
func (b *Bridged) Open(ctx context.Context, req Request) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := NewStreamID()
	streamCtx, cancel := context.WithCancel(ctx)
	// Subscriptions outlive nothing but the stream; teardown ends them.
	subCtx, cancelSubs := context.WithCancel(context.Background())

	s := &bridgedStream{
		id:     id,
		parent: ctx,
		events: make(chan bridgeEvent, eventBuffer),
		done:   make(chan struct{}),
		log:    b.log.With(zap.String("stream", id)),
	}
	s.release = func() {
		cancelSubs()
		cancel()
		b.teardowns.Add(1)
		close(s.done)
	}

	topics := []struct {
		name string
		kind eventKind
	}{
		{ChunkTopic(id), eventChunk},
		{ErrorTopic(id), eventError},
		{CompleteTopic(id), eventComplete},
	}
	for _, t := range topics {
		msgs, err := b.host.Subscribe(subCtx, t.name)
		if err != nil {
			s.teardown()
			return nil, fmt.Errorf("bridge: subscribe %s: %w", t.name, err)
		}
		go s.forward(msgs, t.kind)
	}

	go func() {
		select {
		case <-streamCtx.Done():
			s.teardown()
		case <-s.done:
		}
	}()

	if err := b.host.StreamAPI(streamCtx, id, req); err != nil {
		s.teardown()
		return nil, err
	}
	return s, nil
}

// =============================================================================
// STREAM
// =============================================================================

type eventKind int

const (
	eventChunk eventKind = iota
	eventError
	eventComplete
)

type bridgeEvent struct {
	kind eventKind
	data []byte
	err  error
}

type bridgedStream struct {
	id     string
	parent context.Context
	events chan bridgeEvent
	done   chan struct{}
	log    *zap.Logger

	release      func()
	teardownOnce sync.Once

	// terminal is set once Next has returned a final result.
	terminal error
}

func (s *bridgedStream) teardown() {
	s.teardownOnce.Do(func() {
		s.release()
		s.log.Debug("stream torn down")
	})
}

// forward moves events from one topic into the ordered events channel. The
// ack is sent after the event is queued, which holds the publisher until
// then.
func (s *bridgedStream) forward(msgs <-chan *message.Message, kind eventKind) {
	for msg := range msgs {
		ev, ok := decodeEvent(kind, msg.Payload)
		if ok {
			select {
			case s.events <- ev:
			case <-s.done:
			}
		} else {
			s.log.Debug("malformed bridge event", zap.Int("kind", int(kind)))
		}
		msg.Ack()
		if ok && kind != eventChunk {
			s.teardown()
		}
	}
}

func decodeEvent(kind eventKind, payload []byte) (bridgeEvent, bool) {
	switch kind {
	case eventChunk:
		var p chunkPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return bridgeEvent{}, false
		}
		return bridgeEvent{kind: kind, data: []byte(p.Chunk)}, true
	case eventError:
		var p errorPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return bridgeEvent{}, false
		}
		msg := p.Error
		if msg == "" {
			msg = "bridge stream failed"
		}
		return bridgeEvent{kind: kind, err: &ollama.ClientError{Type: ollama.ErrTypeConnection, Message: msg}}, true
	default:
		return bridgeEvent{kind: eventComplete}, true
	}
}

func (s *bridgedStream) Next() ([]byte, error) {
	if s.terminal != nil {
		return nil, s.terminal
	}

	// Queued events win over teardown: a terminal event is always queued
	// before the stream is torn down.
	select {
	case ev := <-s.events:
		return s.handle(ev)
	default:
	}

	select {
	case ev := <-s.events:
		return s.handle(ev)
	case <-s.done:
		if err := s.parent.Err(); err != nil {
			s.terminal = err
			return nil, err
		}
		select {
		case ev := <-s.events:
			return s.handle(ev)
		default:
		}
		s.terminal = ErrStreamClosed
		return nil, s.terminal
	}
}

func (s *bridgedStream) handle(ev bridgeEvent) ([]byte, error) {
	// Chunks still queued after cancellation are dropped.
	if err := s.parent.Err(); err != nil {
		s.terminal = err
		return nil, err
	}
	switch ev.kind {
	case eventChunk:
		return ev.data, nil
	case eventError:
		s.terminal = ev.err
	default:
		s.terminal = io.EOF
	}
	return nil, s.terminal
}

func (s *bridgedStream) Close() error {
	s.teardown()
	return nil
}
