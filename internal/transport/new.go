// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"io"
	"net/http"

	"go.uber.org/zap"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the transport for kind. The returned closer releases any host
// the transport owns.
func New(kind Kind, client *http.Client, log *zap.Logger) (Transport, io.Closer) {
	if kind == KindBridged {
		host := NewBridge(client, log)
		return NewBridged(host, log), host
	}
	return NewDirect(client), nopCloser{}
}
