package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/i474232898/sensor-assistant/internal/assistant"
	"github.com/i474232898/sensor-assistant/internal/config"
)

// New builds the configured model. It returns assistant.ErrUnavailable
// (wrapped) when the provider is disabled or has no credentials.
func New(ctx context.Context, cfg config.AssistantConfig, httpClient *http.Client) (assistant.Model, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Provider {
	case "none":
		return nil, fmt.Errorf("%w: provider disabled", assistant.ErrUnavailable)
	case "xai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: xai: API key not configured", assistant.ErrUnavailable)
		}
		return NewXAIModel(httpClient, cfg.Name, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxRetries), nil
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: gemini: API key not configured", assistant.ErrUnavailable)
		}
		m, err := NewGeminiModel(ctx, httpClient, cfg.Name, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxRetries)
		if err != nil {
			return nil, fmt.Errorf("%w: gemini: %v", assistant.ErrUnavailable, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", assistant.ErrUnavailable, cfg.Provider)
	}
}

// DisplayName is the name to show for a provider even when it failed to
// initialise.
func DisplayName(cfg config.AssistantConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	switch cfg.Provider {
	case "xai":
		return "Grok"
	case "gemini", "":
		return "Gemini"
	default:
		return "Assistant"
	}
}
