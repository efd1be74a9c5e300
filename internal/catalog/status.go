// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/rigchat/internal/storage"
)

// OllamaProvider is the provider id used for the local backend.
const OllamaProvider = "ollama"

// Model is one entry in a provider's model list.
type Model struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Provider groups the models of one backend.
type Provider struct {
	Label  string  `json:"label"`
	Value  string  `json:"value"`
	Models []Model `json:"models"`
}

// Status reports backend reachability and the usable providers.
type Status struct {
	OllamaOnline bool       `json:"ollamaStatus"`
	Providers    []string   `json:"providers"`
	AIProviders  []Provider `json:"aiProviders"`
	Error        string     `json:"error,omitempty"`
}

// ProviderInfo is a known remote provider.
type ProviderInfo struct {
	ID    string
	Label string
}

// KnownProviders lists the remote providers in display order.
var KnownProviders = []ProviderInfo{
	{ID: "openai", Label: "OpenAI"},
	{ID: "anthropic", Label: "Anthropic Claude"},
	{ID: "google", Label: "Google Gemini"},
	{ID: "cohere", Label: "Cohere"},
}

// IsKnownProvider reports whether id names a remote provider or ollama.
func IsKnownProvider(id string) bool {
	if id == OllamaProvider {
		return true
	}
	for _, p := range KnownProviders {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Status checks the saved host and lists models for every provider that has
// a saved API key, plus Ollama when it is reachable. Provider lists are
// fetched concurrently.
func (c *Client) Status(ctx context.Context) Status {
	configured, err := c.configured()
	if err != nil {
		c.log.Warn("read provider keys", zap.Error(err))
	}

	var enabled []ProviderInfo
	for _, p := range KnownProviders {
		if configured[p.ID] {
			enabled = append(enabled, p)
		}
	}

	providers := make([]Provider, len(enabled))
	var online bool

	var g errgroup.Group
	g.SetLimit(4)
	for i, p := range enabled {
		i, p := i, p
		g.Go(func() error {
			providers[i] = Provider{Label: p.Label, Value: p.ID, Models: c.ProviderModels(ctx, p.ID)}
			return nil
		})
	}
	g.Go(func() error {
		online = c.ollama.ForHost(c.host()).CheckRunning(ctx) == nil
		return nil
	})
	_ = g.Wait()

	st := Status{OllamaOnline: online, AIProviders: providers}
	if online {
		if res := c.Models(ctx); res.OK() {
			models := make([]Model, len(res.Models))
			for i, m := range res.Models {
				models[i] = Model{ID: m.Name, Label: m.Name, Description: m.Details.ParameterSize}
			}
			st.AIProviders = append(st.AIProviders, Provider{Label: "Ollama (Local)", Value: OllamaProvider, Models: models})
		} else {
			st.Error = res.Error
		}
	}

	st.Providers = make([]string, len(st.AIProviders))
	for i, p := range st.AIProviders {
		st.Providers[i] = p.Value
	}
	return st
}

func (c *Client) configured() (map[string]bool, error) {
	ids, err := storage.ConfiguredProviders(c.store)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
