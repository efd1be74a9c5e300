// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index manages the conversation and project lists: creation,
// selection, renaming and deletion.
//
// Conversations live in the session manager, which owns the selection; the
// index owns projects and the title edit draft. Every mutation is written
// through to the store before the call returns.
//
// # Display filter
//
// With a project scope selected only that project's conversations are
// listed; without one, only conversations that belong to no project.
package index
