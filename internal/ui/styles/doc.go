// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colour palette and lipgloss styles of the rigchat
interface.

Colours are lipgloss AdaptiveColor values. NewTheme resolves the configured
theme ("dark", "light" or "auto") once and tells lipgloss which side of each
adaptive colour to use, so the palette follows the ui.theme setting instead
of background detection when a theme is forced.

	theme := styles.NewTheme(cfg.UI.Theme)
	fmt.Println(theme.UserLabel.Render("You"))
*/
package styles
