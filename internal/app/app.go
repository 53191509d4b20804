// Package app wires configuration, storage, the model and the query session
// into the runnable commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/i474232898/sensor-assistant/internal/assistant/providers"
	"github.com/i474232898/sensor-assistant/internal/config"
	"github.com/i474232898/sensor-assistant/internal/graph"
	"github.com/i474232898/sensor-assistant/internal/query"
	"github.com/i474232898/sensor-assistant/internal/sensor"
	"github.com/i474232898/sensor-assistant/internal/store"
)

// Name is the application name used in logs and the HTTP API.
const Name = "sensor-assistant"

// Backend is an opened store.
type Backend struct {
	Store sensor.Store
	// Source is the file backing the store; empty for the memory driver.
	Source string
	close  func() error
}

// Close releases the store.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend opens the store selected by cfg.Driver.
func OpenBackend(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	switch cfg.Driver {
	case "json", "":
		return &Backend{Store: store.NewFileStore(cfg.Path), Source: cfg.Path}, nil
	case "sqlite":
		st, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: st, Source: cfg.SQLitePath, close: st.Close}, nil
	case "memory":
		return &Backend{Store: store.NewMemoryStore(0)}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newPanel(cfg *config.AppConfig, logger *slog.Logger) *graph.Panel {
	return graph.NewPanel(cfg.GraphDir, cfg.GraphWidthCm, cfg.GraphHeightCm, logger)
}

// newSession builds the model and the session and performs the first load.
// A model that cannot be initialised leaves the session in fallback mode
// with a warning queued for the user.
func newSession(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, backend *Backend, renderer query.Renderer) *query.Session {
	name := providers.DisplayName(cfg.Assistant)

	httpClient := &http.Client{Timeout: cfg.Assistant.Timeout}
	model, err := providers.New(ctx, cfg.Assistant, httpClient)

	source := backend.Source
	if source == "" {
		source = "memory"
	}
	session := query.NewSession(backend.Store, query.NewEngine(model, renderer, logger), logger,
		query.WithAssistantName(name),
		query.WithSource(source),
	)

	if err != nil {
		logger.Warn("assistant unavailable, using fallback mode", "provider", cfg.Assistant.Provider, "error", err)
		if cfg.Assistant.Provider != "none" {
			session.Notify(fmt.Sprintf("Warning: Could not connect to %s API (%v). Using fallback mode.", name, err))
		}
	}

	if err := session.Reload(ctx); err != nil && !isStoreError(err) {
		logger.Error("initial load failed", "error", err)
	}
	return session
}

func isStoreError(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrEmpty) || errors.Is(err, store.ErrMalformed)
}
