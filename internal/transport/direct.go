// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/jeranaias/rigchat/internal/ollama"
)

const readSize = 4096

// Direct streams over net/http.
type Direct struct {
	client *http.Client
}

// NewDirect creates a direct transport. A nil client gets one with no
// timeout: a chat stream is bounded only by cancellation.
func NewDirect(client *http.Client) *Direct {
	if client == nil {
		client = &http.Client{}
	}
	return &Direct{client: client}
}

func (d *Direct) Kind() Kind { return KindDirect }

// Open sends req and returns the body as a Stream. Non-200 responses fail
// here with an ollama.ClientError describing the status.
func (d *Direct) Open(ctx context.Context, req Request) (Stream, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &ollama.ClientError{Type: ollama.ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ollama.ClientError{Type: ollama.ErrTypeNotRunning, Message: ollama.ErrNotRunning.Message, Cause: err}
	}

	if err := ollama.StatusError(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return &directStream{ctx: ctx, body: resp.Body, buf: make([]byte, readSize)}, nil
}

type directStream struct {
	ctx  context.Context
	body io.ReadCloser
	buf  []byte

	closeOnce sync.Once
}

func (s *directStream) Next() ([]byte, error) {
	for {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.body.Read(s.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			// A read error with data is reported on the following call.
			return chunk, nil
		}
		if err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}
}

func (s *directStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
