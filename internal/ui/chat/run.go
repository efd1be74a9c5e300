// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/logging"
)

// Run starts the interface on the terminal and blocks until the user quits
// or ctx is done. Extra program options are passed to Bubble Tea.
func Run(ctx context.Context, deps Deps, opts ...tea.ProgramOption) error {
	log := logging.OrNop(deps.Log).Named("tui")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, deps)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)

	r := newRelay()
	deps.Sessions.SetRenderCallback(r.push)
	defer deps.Sessions.SetRenderCallback(nil)
	go r.run(ctx, p.Send)

	if deps.Watch != nil {
		go func() {
			err := deps.Watch(ctx, func() {
				// A reload mid-stream would drop the partial reply.
				if deps.Sessions.Loading() {
					log.Debug("store changed during a reply, reload skipped")
					return
				}
				if err := deps.Index.Reload(); err != nil {
					log.Warn("reload after store change failed", zap.Error(err))
					return
				}
				p.Send(storeChangedMsg{})
			})
			if err != nil && ctx.Err() == nil {
				log.Warn("store watch stopped", zap.Error(err))
			}
		}()
	}

	_, err := p.Run()
	deps.Sessions.Stop()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run interface")
	}
	return nil
}
