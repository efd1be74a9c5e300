// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/storage"
)

// OpenAI-compatible endpoints of the remote providers.
var providerBaseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"anthropic": "https://api.anthropic.com/v1",
	"google":    "https://generativelanguage.googleapis.com/v1beta/openai",
	"cohere":    "https://api.cohere.ai/compatibility/v1",
}

// DefaultProviderBaseURL returns the built-in endpoint for provider, or ""
// for an unknown id.
func DefaultProviderBaseURL(provider string) string {
	return providerBaseURLs[provider]
}

// ProviderBaseURL returns the OpenAI-compatible endpoint for provider.
func (c *Client) ProviderBaseURL(provider string) string {
	return c.baseURLs[provider]
}

// Lists used when no key is saved.
var fallbackModels = map[string][]Model{
	"openai": {
		{ID: "gpt-4o", Label: "GPT-4o"},
		{ID: "gpt-4o-mini", Label: "GPT-4o Mini"},
	},
	"anthropic": {
		{ID: "claude-3-5-sonnet-latest", Label: "Claude 3.5 Sonnet"},
		{ID: "claude-3-7-sonnet-latest", Label: "Claude 3.7 Sonnet"},
	},
	"google": {
		{ID: "gemini-1.5-pro", Label: "Gemini 1.5 Pro"},
		{ID: "gemini-1.5-flash", Label: "Gemini 1.5 Flash"},
	},
	"cohere": {
		{ID: "command-r-plus", Label: "Command R+"},
		{ID: "command-r", Label: "Command R"},
	},
}

// Used when the Anthropic listing call fails.
var anthropicDated = []Model{
	{ID: "claude-3-7-sonnet-20250219", Label: "Claude 3.7 Sonnet"},
	{ID: "claude-3-5-sonnet-20241022", Label: "Claude 3.5 Sonnet"},
	{ID: "claude-3-opus-20240229", Label: "Claude 3 Opus"},
	{ID: "claude-3-sonnet-20240229", Label: "Claude 3 Sonnet"},
	{ID: "claude-3-haiku-20240307", Label: "Claude 3 Haiku"},
}

// ProviderModels lists the models of a remote provider using its saved key.
// It never fails: without a key it returns a static list, and a failed
// listing yields an empty list (Anthropic falls back to its dated models).
func (c *Client) ProviderModels(ctx context.Context, provider string) []Model {
	key := storage.APIKey(c.store, provider)
	if key == "" {
		return append([]Model(nil), fallbackModels[provider]...)
	}

	cacheKey := "provider:" + provider
	if c.cache != nil {
		if v, ok := c.cache.Get(cacheKey); ok {
			return v.([]Model)
		}
	}

	ids, err := c.listProvider(ctx, provider, key)
	if err != nil {
		c.log.Warn("list provider models", zap.String("provider", provider), zap.Error(err))
		if provider == "anthropic" {
			return append([]Model(nil), anthropicDated...)
		}
		return []Model{}
	}

	models := make([]Model, 0, len(ids))
	for _, id := range ids {
		switch provider {
		case "openai":
			if !strings.HasPrefix(id, "gpt-") && !strings.HasPrefix(id, "o1-") {
				continue
			}
		case "google":
			id = strings.TrimPrefix(id, "models/")
		}
		models = append(models, Model{ID: id, Label: id})
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, models, gocache.DefaultExpiration)
	}
	return models
}

func (c *Client) listProvider(ctx context.Context, provider, key string) ([]string, error) {
	config := openai.DefaultConfig(key)
	if base := c.baseURLs[provider]; base != "" {
		config.BaseURL = base
	}
	config.HTTPClient = c.http

	list, err := openai.NewClientWithConfig(config).ListModels(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list.Models))
	for i, m := range list.Models {
		ids[i] = m.ID
	}
	return ids, nil
}
