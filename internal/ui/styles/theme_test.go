// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme_Forced(t *testing.T) {
	dark := NewTheme("dark")
	assert.True(t, dark.IsDark)
	assert.Equal(t, ThemeDark, dark.Name)

	light := NewTheme("LIGHT")
	assert.False(t, light.IsDark)
	assert.Equal(t, ThemeLight, light.Name)
}

func TestNewTheme_UnknownIsAuto(t *testing.T) {
	th := NewTheme("sepia")
	assert.Contains(t, []string{ThemeDark, ThemeLight}, th.Name)
}

func TestShortcut(t *testing.T) {
	th := NewTheme("dark")
	out := th.Shortcut("C-n", "new chat")
	assert.Contains(t, out, "C-n")
	assert.Contains(t, out, "new chat")
}
