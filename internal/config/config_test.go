// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	for _, k := range []string{
		"RIGCHAT_OLLAMA_HOST", "OLLAMA_HOST", "RIGCHAT_STORE", "RIGCHAT_STORE_PATH",
		"RIGCHAT_REDIS_URL", "RIGCHAT_TRANSPORT", "RIGCHAT_LOG_LEVEL",
		"RIGCHAT_LOG_FILE", "RIGCHAT_MARKDOWN",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32*time.Millisecond, cfg.RenderInterval())
	assert.Equal(t, 30*time.Second, cfg.OllamaTimeout())
	assert.Equal(t, 30*time.Second, cfg.CatalogTTL())

	cfg.Catalog.CacheTTLSecs = 0
	assert.Less(t, cfg.CatalogTTL(), time.Duration(0))
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveAndLoadTOML(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.Ollama.Host = "http://gpu-box:11434/"
	cfg.Store.Backend = "sqlite"
	cfg.UI.Markdown = false
	require.NoError(t, Save(cfg))

	path := filepath.Join(dir, "config.toml")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", loaded.Ollama.Host)
	assert.Equal(t, "sqlite", loaded.Store.Backend)
	assert.False(t, loaded.UI.Markdown)
}

func TestLoadJSONFallback(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"transport":{"mode":"bridge"}}`), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bridge", cfg.Transport.Mode)
	// Unspecified sections keep their defaults.
	assert.Equal(t, 32, cfg.UI.RenderIntervalMs)

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[store]\nbackend = \"redis\"\n\n[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := Load()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]string{}
	for _, e := range verrs {
		fields[e.Field] = e.Message
	}
	assert.Contains(t, fields, "store.redis_url")
	assert.Contains(t, fields["ui.theme"], "must be one of: dark, light, auto")
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("OLLAMA_HOST", "10.0.0.5:11434")
	t.Setenv("RIGCHAT_TRANSPORT", "DIRECT")
	t.Setenv("RIGCHAT_MARKDOWN", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:11434", cfg.Ollama.Host)
	assert.Equal(t, "direct", cfg.Transport.Mode)
	assert.False(t, cfg.UI.Markdown)

	t.Setenv("RIGCHAT_OLLAMA_HOST", "http://primary:11434")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "http://primary:11434", cfg.Ollama.Host)
}

func TestDotEnvLoaded(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.Unsetenv("RIGCHAT_LOG_LEVEL"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RIGCHAT_LOG_LEVEL=debug\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("RIGCHAT_LOG_LEVEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("ui.render_interval_ms")
	require.NoError(t, err)
	assert.Equal(t, 32, v)

	require.NoError(t, cfg.Set("ui.render-interval-ms", "50"))
	assert.Equal(t, 50, cfg.UI.RenderIntervalMs)

	require.NoError(t, cfg.Set("ui.markdown", "false"))
	assert.False(t, cfg.UI.Markdown)

	require.NoError(t, cfg.Set("store.backend", "memory"))
	assert.Equal(t, "memory", cfg.Store.Backend)

	_, err = cfg.Get("ui.nope")
	assert.Error(t, err)
	_, err = cfg.Get("ui")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("ui.render_interval_ms", "fast"))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "ollama.host")
	assert.Contains(t, keys, "store.redis_url")
	assert.Contains(t, keys, "catalog.cache_ttl_secs")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}
