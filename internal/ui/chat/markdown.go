// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

// markdown renders finished assistant replies with glamour. Output is
// cached per content and dropped when the wrap width changes.
type markdown struct {
	style string
	width int
	log   *zap.Logger

	tr    *glamour.TermRenderer
	cache map[string]string
}

func newMarkdown(style string, log *zap.Logger) *markdown {
	return &markdown{style: style, log: log, cache: make(map[string]string)}
}

func (md *markdown) setWidth(w int) {
	if w == md.width {
		return
	}
	md.width = w
	md.tr = nil
	md.cache = make(map[string]string)
}

// render returns content as styled terminal text, or content unchanged if
// glamour fails.
func (md *markdown) render(content string) string {
	if out, ok := md.cache[content]; ok {
		return out
	}
	if md.tr == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(md.style),
			glamour.WithWordWrap(md.width),
		)
		if err != nil {
			md.log.Warn("markdown renderer unavailable", zap.Error(err))
			return content
		}
		md.tr = tr
	}
	out, err := md.tr.Render(content)
	if err != nil {
		md.log.Debug("markdown render failed", zap.Error(err))
		return content
	}
	out = strings.Trim(out, "\n")
	md.cache[content] = out
	return out
}
