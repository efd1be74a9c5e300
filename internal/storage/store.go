// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store is a synchronous string key-value store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)
	// Set replaces the value for key.
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	// Keys lists the keys starting with prefix, in no particular order.
	Keys(prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned by Get when the key has no value.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &StoreError{Message: "key not found"}

// StoreError represents a storage-related error.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// Is makes errors.Is match any StoreError with the same message.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// BACKEND SELECTION
// =============================================================================

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the JSON file (file) or database file (sqlite).
	Path string
	// RedisURL is a redis:// URL (redis).
	RedisURL string
	// Namespace prefixes every key in shared backends (redis).
	Namespace string
	// Timeout bounds each network round trip (redis).
	Timeout time.Duration
}

// Open returns the backend named by opts.Backend.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileStore(opts.Path)
	case BackendSQLite:
		return NewSQLiteStore(opts.Path)
	case BackendRedis:
		return NewRedisStore(opts.RedisURL, opts.Namespace, opts.Timeout)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// DefaultPath returns the default data file for a backend inside dir.
func DefaultPath(dir, backend string) string {
	if backend == BackendSQLite {
		return filepath.Join(dir, "rigchat.db")
	}
	return filepath.Join(dir, "store.json")
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0700)
}
