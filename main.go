// rigchat - chat with local Ollama models from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/rigchat/internal/cli"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/chat"
)

func main() {
	// Interrupts are handled per reply by the REPL and as a key by the TUI.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], cli.WithTUI(runTUI))
	stop()
	os.Exit(code)
}

// runTUI opens the full-screen interface over the application's services.
func runTUI(ctx context.Context, app *cli.App) error {
	deps := chat.Deps{
		Sessions: app.Sessions,
		Index:    app.Index,
		Catalog:  app.Catalog,
		UI:       app.Config.UI,
		Log:      app.Log,
	}
	if fs, ok := app.Store.(*storage.FileStore); ok && app.Config.Store.Watch {
		deps.Watch = fs.Watch
	}
	return chat.Run(ctx, deps)
}
