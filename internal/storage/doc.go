// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value persistence used for chats,
// projects and user preferences.
//
// Every backend implements Store: synchronous Get/Set/Remove of string
// values by key. Writes are last-writer-wins full-value replacements, so
// callers always write back a complete list rather than a delta.
//
// # Backends
//
//   - MemoryStore: in-process map, used by tests
//   - FileStore: one JSON document on disk, written atomically, with an
//     optional fsnotify watch for external edits
//   - SQLiteStore: a single kv table in a modernc.org/sqlite database
//   - RedisStore: keys under a namespace prefix in Redis
//
// # Typed access
//
// keys.go maps the persisted keys (savedChats, savedProjects, selectedModel,
// systemMessage, ollama_host, api_key_<provider>) to typed helpers:
//
//	chats, err := storage.LoadChats(store)
//	err = storage.SaveChats(store, chats)
package storage
