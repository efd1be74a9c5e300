// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Request describes one streaming call.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// JSONPost builds a POST request with a JSON body.
func JSONPost(url string, body []byte) Request {
	return Request{
		Method: "POST",
		URL:    url,
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   body,
	}
}

// Stream yields response chunks.
type Stream interface {
	// Next blocks until the next chunk arrives. It returns io.EOF after the
	// last chunk of a successful response, and the context error once the
	// context passed to Open is done.
	Next() ([]byte, error)
	// Close releases the stream. It is safe to call more than once.
	Close() error
}

// Transport opens streams. The context given to Open is the stream's
// cancellation token for its whole lifetime.
type Transport interface {
	Open(ctx context.Context, req Request) (Stream, error)
	Kind() Kind
}

// =============================================================================
// KIND AND DETECTION
// =============================================================================

// Kind identifies a transport implementation.
type Kind int

const (
	KindDirect Kind = iota
	KindBridged
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindBridged:
		return "bridge"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// BridgeEnv marks a process running inside a shell that provides the event
// bridge.
const BridgeEnv = "RIGCHAT_BRIDGE"

// Mode values accepted by Detect.
const (
	ModeAuto   = "auto"
	ModeDirect = "direct"
	ModeBridge = "bridge"
)

// Detect resolves a configured mode to a Kind. "auto" picks the bridge when
// BridgeEnv is set to a non-empty value other than "0".
func Detect(mode string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeAuto:
		if v := os.Getenv(BridgeEnv); v != "" && v != "0" {
			return KindBridged, nil
		}
		return KindDirect, nil
	case ModeDirect:
		return KindDirect, nil
	case ModeBridge:
		return KindBridged, nil
	default:
		return KindDirect, fmt.Errorf("unknown transport mode %q", mode)
	}
}
