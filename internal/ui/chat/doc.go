// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the full-screen rigchat interface with Bubble Tea.

The screen has a sidebar with projects and conversations of the current
scope, the transcript of the selected conversation and a multi-line input.
All state lives in the session manager and the conversation index; the
model only renders their snapshots and turns key presses into calls on
them.

# Rendering

Session.Send runs as a tea.Cmd. While it streams, the manager's render
callback hands snapshots to a relay that forwards only the latest one to
the program, so the manager never blocks on the UI and the UI never falls
behind a fast stream. Finished assistant replies are rendered as Markdown
with glamour when ui.markdown is on.

# Keys

	Enter      send             Tab   sidebar / input
	A-Enter    newline          C-n   new chat
	C-c / Esc  stop the reply   C-p   new project
	C-o        choose model     C-e   rename chat
	F1         help             C-q   quit

In the sidebar Enter opens a project or chat, r renames and d deletes
after confirmation. Deleting a project deletes its chats.

# Usage

	err := chat.Run(ctx, chat.Deps{
		Sessions: app.Sessions,
		Index:    app.Index,
		Catalog:  app.Catalog,
		UI:       app.Config.UI,
		Log:      app.Log,
	})
*/
package chat
