// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "errors"

// Send rejects these before touching any state.
var (
	ErrEmptyInput = errors.New("message is empty")
	ErrNoModel    = errors.New("no model selected")
	ErrNoHost     = errors.New("ollama host not set")
	ErrBusy       = errors.New("a response is still streaming")
)

// ErrChatNotFound is returned when a conversation id is unknown.
var ErrChatNotFound = errors.New("conversation not found")

// ErrorMarker is appended to an assistant message whose stream failed or was
// stopped.
const ErrorMarker = "\n⚠️ Error or aborted."
