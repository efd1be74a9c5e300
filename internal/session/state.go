// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"

	"github.com/jeranaias/rigchat/internal/model"
)

// State is the phase of the current send.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// View is a snapshot handed to renderers. It shares nothing with the
// manager.
type View struct {
	ChatID    string
	ChatTitle string
	ProjectID string
	Messages  []model.Message
	Loading   bool
	State     State
	Model     string
	// Final is set on the render that ends a send.
	Final bool
}

// Streaming reports whether an assistant message is still growing.
func (v View) Streaming() bool {
	return v.Loading && v.State == StateStreaming
}
