// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog lists the models available to rigchat and reports which
// backends are reachable.
//
// Results are tagged values rather than errors: a caller always gets either
// a model list or an error message, never a panic or a bare error.
package catalog

import (
	"context"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/storage"
)

// DefaultCacheTTL bounds how long a model list is reused.
const DefaultCacheTTL = 30 * time.Second

// Result is either Models or Error.
type Result struct {
	Models []ollama.ModelInfo `json:"models,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// OK reports whether the result carries models.
func (r Result) OK() bool { return r.Error == "" }

// Names returns the model names in order.
func (r Result) Names() []string {
	names := make([]string, len(r.Models))
	for i, m := range r.Models {
		names[i] = m.Name
	}
	return names
}

// Options configures a Client.
type Options struct {
	// CacheTTL for model lists. Zero means DefaultCacheTTL; negative
	// disables caching.
	CacheTTL time.Duration
	// HTTPClient is shared by the Ollama and provider calls.
	HTTPClient *http.Client
	// ProviderBaseURLs overrides the OpenAI-compatible endpoint per
	// provider id.
	ProviderBaseURLs map[string]string
	// DefaultHost is used when the store has no saved host
	// (default: storage.DefaultHost).
	DefaultHost string
}

// Client answers catalog queries against the host saved in the store.
type Client struct {
	store    storage.Store
	ollama   *ollama.Client
	http     *http.Client
	cache    *gocache.Cache
	baseURLs map[string]string
	defHost  string
	log      *zap.Logger
}

// New creates a catalog client.
func New(store storage.Store, opts Options, log *zap.Logger) *Client {
	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	baseURLs := make(map[string]string, len(providerBaseURLs))
	for id, u := range providerBaseURLs {
		baseURLs[id] = u
	}
	for id, u := range opts.ProviderBaseURLs {
		baseURLs[id] = u
	}

	c := &Client{
		store:    store,
		ollama:   ollama.NewClientWithConfig(&ollama.ClientConfig{HTTPClient: httpClient}),
		http:     httpClient,
		baseURLs: baseURLs,
		defHost:  opts.DefaultHost,
		log:      logging.OrNop(log).Named("catalog"),
	}
	if ttl > 0 {
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c
}

func (c *Client) host() string {
	if h := storage.Host(c.store); h != "" {
		return h
	}
	if c.defHost != "" {
		return c.defHost
	}
	return storage.DefaultHost
}

// Host returns the host queries are sent to.
func (c *Client) Host() string {
	return c.host()
}

// Models lists the models installed on the saved host. Successful lists are
// cached per host.
func (c *Client) Models(ctx context.Context) Result {
	host := c.host()
	if c.cache != nil {
		if v, ok := c.cache.Get("models:" + host); ok {
			return v.(Result)
		}
	}

	models, err := c.ollama.ForHost(host).ListModels(ctx)
	if err != nil {
		c.log.Debug("list models failed", zap.String("host", host), zap.Error(err))
		return Result{Error: err.Error()}
	}

	res := Result{Models: models}
	if c.cache != nil {
		c.cache.Set("models:"+host, res, gocache.DefaultExpiration)
	}
	return res
}

// Invalidate drops cached lists, e.g. after the host changes.
func (c *Client) Invalidate() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

// SelectModel returns the saved preference when it is still installed,
// otherwise the first model. The fallback is not saved. It returns "" for
// an empty list.
func (c *Client) SelectModel(models []ollama.ModelInfo) string {
	return SelectModel(storage.SelectedModel(c.store), models)
}

// SelectModel picks preferred if present in models, else the first entry.
func SelectModel(preferred string, models []ollama.ModelInfo) string {
	if len(models) == 0 {
		return ""
	}
	for _, m := range models {
		if m.Name == preferred {
			return preferred
		}
	}
	return models[0].Name
}
