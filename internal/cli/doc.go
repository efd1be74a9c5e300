// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigchat command line.
//
// Running rigchat with no command opens the TUI. The subcommands cover the
// same operations for scripts and plain terminals:
//
//	rigchat chat [--plain] [-m model] [-p project]
//	rigchat models
//	rigchat status
//	rigchat tool <kind> [-o option] [--provider p] [--model m] <input>
//	rigchat chats list|show|rename|delete|export
//	rigchat projects list|create|delete
//	rigchat keys set|remove|list
//	rigchat config show|get|set|set-host|set-system|set-model
//
// Output is colored only when stdout is a terminal. NO_COLOR and
// FORCE_COLOR are respected.
package cli
