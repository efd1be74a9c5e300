// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// BACKEND CONFORMANCE
// =============================================================================

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStore(filepath.Join(dir, "store.json"))
	require.NoError(t, err)

	sqlite, err := NewSQLiteStore(filepath.Join(dir, "rigchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	out := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   file,
		"sqlite": sqlite,
	}

	if url := os.Getenv("RIGCHAT_TEST_REDIS_URL"); url != "" {
		ns := "rigchat-test:" + time.Now().Format("150405.000000") + ":"
		redis, err := NewRedisStore(url, ns, time.Second)
		require.NoError(t, err)
		t.Cleanup(func() { redis.Close() })
		out["redis"] = redis
	}
	return out
}

func TestStore_Conformance(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("missing")
			assert.True(t, errors.Is(err, ErrNotFound), "missing key should be ErrNotFound, got %v", err)

			require.NoError(t, s.Set("a", "1"))
			require.NoError(t, s.Set("a", "2"))
			v, err := s.Get("a")
			require.NoError(t, err)
			assert.Equal(t, "2", v, "last writer wins")

			require.NoError(t, s.Set("api_key_openai", "k1"))
			require.NoError(t, s.Set("api_key_cohere", "k2"))
			keys, err := s.Keys("api_key_")
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{"api_key_cohere", "api_key_openai"}, keys)

			// Prefixes are literal, never patterns.
			require.NoError(t, s.Set("glob*[é]", "1"))
			require.NoError(t, s.Set("globby", "2"))
			keys, err = s.Keys("glob*[é")
			require.NoError(t, err)
			assert.Equal(t, []string{"glob*[é]"}, keys)

			require.NoError(t, s.Remove("a"))
			require.NoError(t, s.Remove("a"), "removing twice is fine")
			_, err = s.Get("a")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyHost, "http://box:11434"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "http://box:11434", Host(reopened))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeySelectedModel, "m1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, func() { changed <- struct{}{} }) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	other, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, other.Set(KeySelectedModel, "m2"))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not report the external write")
	}
	assert.Equal(t, "m2", SelectedModel(s))

	cancel()
	assert.NoError(t, <-done)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Backend: BackendSQLite, Path: DefaultPath(dir, BackendSQLite)})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLiteStore{}, s)

	s, err = Open(Options{Path: DefaultPath(dir, BackendFile)})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(Options{Backend: "etcd"})
	assert.Error(t, err)
}

func TestScanPattern(t *testing.T) {
	assert.Equal(t, "rigchat:api_key_*", scanPattern("rigchat:api_key_"))
	assert.Equal(t, `ns\*\?\[x\]\\:*`, scanPattern(`ns*?[x]\:`))
}
