// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/ollama"
)

// =============================================================================
// EVENT TOPICS
// =============================================================================

// ChunkTopic carries {"chunk": "..."} payloads for stream id.
func ChunkTopic(id string) string { return "stream-chunk-" + id }

// ErrorTopic carries a single {"error": "..."} payload for stream id.
func ErrorTopic(id string) string { return "stream-error-" + id }

// CompleteTopic carries a single {"done": true} payload for stream id.
func CompleteTopic(id string) string { return "stream-complete-" + id }

type chunkPayload struct {
	Chunk string `json:"chunk"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type completePayload struct {
	Done bool `json:"done"`
}

// Host performs bridged requests and publishes their events.
type Host interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	// StreamAPI starts req and returns once it is dispatched. Events for
	// streamID follow asynchronously. ctx bounds the request.
	StreamAPI(ctx context.Context, streamID string, req Request) error
}

// =============================================================================
// BRIDGE HOST
// =============================================================================

// Bridge is an in-process Host backed by a watermill GoChannel. Publishing
// blocks until the subscriber acks, so events of one stream arrive in the
// order they were published even across topics.
type Bridge struct {
	pubsub *gochannel.GoChannel
	client *http.Client
	log    *zap.Logger
}

// NewBridge creates a bridge host. A nil client gets one with no timeout.
func NewBridge(client *http.Client, log *zap.Logger) *Bridge {
	log = logging.OrNop(log).Named("bridge")
	if client == nil {
		client = &http.Client{}
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, logging.NewWatermillAdapter(log))
	return &Bridge{pubsub: pubsub, client: client, log: log}
}

func (b *Bridge) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// StreamAPI validates req and performs it in the background.
func (b *Bridge) StreamAPI(ctx context.Context, streamID string, req Request) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return fmt.Errorf("bridge: build request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	go b.run(ctx, streamID, httpReq)
	return nil
}

// Close shuts the pub/sub down; open subscriptions are closed.
func (b *Bridge) Close() error {
	return b.pubsub.Close()
}

func (b *Bridge) run(ctx context.Context, id string, req *http.Request) {
	resp, err := b.client.Do(req)
	if err != nil {
		b.publish(ErrorTopic(id), errorPayload{Error: err.Error()})
		return
	}
	defer resp.Body.Close()

	// Same status rule as the direct transport.
	if err := ollama.StatusError(resp); err != nil {
		b.publish(ErrorTopic(id), errorPayload{Error: err.Error()})
		return
	}

	buf := make([]byte, readSize)
	var pending []byte
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			var ready []byte
			ready, pending = splitUTF8(pending)
			if len(ready) > 0 {
				b.publish(ChunkTopic(id), chunkPayload{Chunk: string(ready)})
				// Keep the tail in its own backing array.
				pending = append([]byte(nil), pending...)
			}
		}
		if err == io.EOF {
			if len(pending) > 0 {
				b.publish(ChunkTopic(id), chunkPayload{Chunk: string(pending)})
			}
			b.publish(CompleteTopic(id), completePayload{Done: true})
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				b.publish(ErrorTopic(id), errorPayload{Error: err.Error()})
			}
			return
		}
	}
}

func (b *Bridge) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.Error("marshal event", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		b.log.Debug("publish dropped", zap.String("topic", topic), zap.Error(err))
	}
}

// splitUTF8 returns the longest prefix of b that does not end inside a
// multi-byte sequence, and the held-back remainder.
func splitUTF8(b []byte) (ready, rest []byte) {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		start := len(b) - i
		if !utf8.RuneStart(b[start]) {
			continue
		}
		if !utf8.FullRune(b[start:]) {
			return b[:start], b[start:]
		}
		break
	}
	return b, nil
}
