// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats, projects and messages.
//
// These are the records persisted by the storage package and manipulated by
// the session manager and the conversation index.
//
// # Key Types
//
//   - Message: one turn with role, content and an optional timestamp
//   - Chat: an ordered thread of messages, optionally grouped in a project
//   - Project: a named grouping of chats
//   - Role: message role enumeration (user, assistant, system)
//
// # Usage
//
//	chat := model.NewChat("")
//	chat.Messages = append(chat.Messages, model.NewUserMessage("Hello!"))
package model
