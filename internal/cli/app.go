// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/catalog"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/index"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/tools"
	"github.com/jeranaias/rigchat/internal/transport"
)

// App wires the components every command works with.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Store     storage.Store
	Sessions  *session.Manager
	Index     *index.Index
	Catalog   *catalog.Client
	Tools     *tools.Generator
	Transport transport.Kind

	closers []io.Closer
}

// OpenStore opens the backend selected by cfg.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	path := cfg.Store.Path
	if path == "" && (cfg.Store.Backend == storage.BackendFile || cfg.Store.Backend == storage.BackendSQLite) {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		path = storage.DefaultPath(dir, cfg.Store.Backend)
	}
	store, err := storage.Open(storage.Options{
		Backend:   cfg.Store.Backend,
		Path:      path,
		RedisURL:  cfg.Store.RedisURL,
		Namespace: cfg.Store.Namespace,
		Timeout:   cfg.OllamaTimeout(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", cfg.Store.Backend)
	}
	return store, nil
}

// NewApp opens the configured store and builds the components on it.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	app, err := NewAppWithStore(cfg, store, nil, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	return app, nil
}

// NewAppWithStore builds the components on an open store. The store is
// closed by App.Close. A nil httpClient uses the component defaults.
func NewAppWithStore(cfg *config.Config, store storage.Store, httpClient *http.Client, log *zap.Logger) (*App, error) {
	log = logging.OrNop(log)
	kind, err := transport.Detect(cfg.Transport.Mode)
	if err != nil {
		return nil, err
	}
	// Streams are bounded by cancellation, not by a client timeout.
	streamClient := httpClient
	if streamClient == nil {
		streamClient = &http.Client{}
	}
	tr, trCloser := transport.New(kind, streamClient, log)

	sessions := session.NewManager(session.Config{
		DefaultHost:    cfg.Ollama.Host,
		RenderInterval: cfg.RenderInterval(),
		AutoTitle:      cfg.UI.AutoTitle,
		Ollama: &ollama.ClientConfig{
			BaseURL:    cfg.Ollama.Host,
			Timeout:    cfg.OllamaTimeout(),
			HTTPClient: httpClient,
		},
	}, store, tr, log)

	if err := sessions.Load(); err != nil {
		trCloser.Close()
		return nil, errors.Wrap(err, "load conversations")
	}
	ix := index.New(sessions, store, log)
	if err := ix.Load(); err != nil {
		trCloser.Close()
		return nil, errors.Wrap(err, "load projects")
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Sessions: sessions,
		Index:    ix,
		Catalog: catalog.New(store, catalog.Options{
			CacheTTL:    cfg.CatalogTTL(),
			HTTPClient:  httpClient,
			DefaultHost: cfg.Ollama.Host,
		}, log),
		Tools: tools.NewGenerator(store, tools.Options{
			HTTPClient:  httpClient,
			DefaultHost: cfg.Ollama.Host,
		}, log),
		Transport: kind,
		closers:   []io.Closer{trCloser, store},
	}, nil
}

// Close waits for background title requests and releases the transport
// and store.
func (a *App) Close() error {
	a.Sessions.Stop()
	a.Sessions.Wait()

	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	_ = a.Log.Sync()
	return first
}
