// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the chat session manager.
//
// A Manager owns the conversation list, the current selection and the
// message view. Send turns a raw NDJSON stream from the model backend into
// an incrementally rendered assistant message:
//
//	Idle -> Sending -> Streaming -> Finalizing -> Idle
//
// The user turn and an empty assistant placeholder are written to the store
// before the request goes out. Fragments accumulate on every chunk; renders
// are rate limited. On completion, error or Stop the final turn replaces the
// optimistic one in the store. A failed or cancelled stream keeps its
// partial content followed by ErrorMarker.
//
// # Usage
//
//	mgr := session.NewManager(session.DefaultConfig(), store, tr, log)
//	if err := mgr.Load(); err != nil { ... }
//	mgr.SetRenderCallback(func(v session.View) { ... })
//	err := mgr.Send(ctx, "Summarize this email") // blocks until Idle
//
// Stop may be called from any goroutine while Send is running.
//
// The first successful exchange of a conversation triggers a background
// title request that never shares the chat stream's context.
package session
