// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/rigchat/internal/model"
)

// Persisted keys.
const (
	KeyChats         = "savedChats"
	KeyProjects      = "savedProjects"
	KeySelectedModel = "selectedModel"
	KeySystemPrompt  = "systemMessage"
	KeyHost          = "ollama_host"
	APIKeyPrefix     = "api_key_"
)

const (
	// DefaultHost is used when no backend host has been saved.
	DefaultHost = "http://localhost:11434"

	// DefaultSystemPrompt is used when no override has been saved.
	DefaultSystemPrompt = "You are a helpful assistant."
)

// =============================================================================
// CHATS AND PROJECTS
// =============================================================================

// LoadChats returns the saved chat list. A missing key is an empty list.
func LoadChats(s Store) ([]model.Chat, error) {
	chats := []model.Chat{}
	if err := getJSON(s, KeyChats, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// SaveChats replaces the saved chat list.
func SaveChats(s Store, chats []model.Chat) error {
	if chats == nil {
		chats = []model.Chat{}
	}
	return setJSON(s, KeyChats, chats)
}

// LoadProjects returns the saved project list. A missing key is an empty list.
func LoadProjects(s Store) ([]model.Project, error) {
	projects := []model.Project{}
	if err := getJSON(s, KeyProjects, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// SaveProjects replaces the saved project list.
func SaveProjects(s Store, projects []model.Project) error {
	if projects == nil {
		projects = []model.Project{}
	}
	return setJSON(s, KeyProjects, projects)
}

func getJSON(s Store, key string, v any) error {
	raw, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func setJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, string(data))
}

// =============================================================================
// PREFERENCES
// =============================================================================

// GetString returns the value for key, or fallback when it is missing,
// empty, or unreadable.
func GetString(s Store, key, fallback string) string {
	v, err := s.Get(key)
	if err != nil || v == "" {
		return fallback
	}
	return v
}

// SelectedModel returns the saved model preference or "".
func SelectedModel(s Store) string {
	return GetString(s, KeySelectedModel, "")
}

// SetSelectedModel saves the model preference.
func SetSelectedModel(s Store, name string) error {
	return s.Set(KeySelectedModel, name)
}

// SystemPrompt returns the saved system prompt override or the default.
func SystemPrompt(s Store) string {
	return GetString(s, KeySystemPrompt, DefaultSystemPrompt)
}

// SetSystemPrompt saves the system prompt override.
func SetSystemPrompt(s Store, prompt string) error {
	return s.Set(KeySystemPrompt, prompt)
}

// Host returns the saved backend host, or "" when none is saved.
// Callers that need a usable URL use HostOrDefault.
func Host(s Store) string {
	return strings.TrimRight(GetString(s, KeyHost, ""), "/")
}

// HostOrDefault returns the saved backend host or DefaultHost.
func HostOrDefault(s Store) string {
	if h := Host(s); h != "" {
		return h
	}
	return DefaultHost
}

// SetHost saves the backend host.
func SetHost(s Store, host string) error {
	return s.Set(KeyHost, strings.TrimRight(strings.TrimSpace(host), "/"))
}

// =============================================================================
// API KEYS
// =============================================================================

// APIKey returns the saved key for provider or "".
func APIKey(s Store, provider string) string {
	return GetString(s, APIKeyPrefix+provider, "")
}

// SetAPIKey saves the key for provider.
func SetAPIKey(s Store, provider, key string) error {
	return s.Set(APIKeyPrefix+provider, key)
}

// RemoveAPIKey deletes the key for provider.
func RemoveAPIKey(s Store, provider string) error {
	return s.Remove(APIKeyPrefix + provider)
}

// ConfiguredProviders returns the sorted ids of providers with a saved key.
func ConfiguredProviders(s Store) ([]string, error) {
	keys, err := s.Keys(APIKeyPrefix)
	if err != nil {
		return nil, err
	}
	providers := make([]string, 0, len(keys))
	for _, k := range keys {
		if id := strings.TrimPrefix(k, APIKeyPrefix); id != "" {
			providers = append(providers, id)
		}
	}
	sort.Strings(providers)
	return providers, nil
}
