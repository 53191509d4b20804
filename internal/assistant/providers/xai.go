package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
)

const (
	defaultXAIBaseURL = "https://api.x.ai/v1"
	defaultXAIModel   = "grok-3"
	xaiMaxTokens      = 1024
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// XAIModel talks to an OpenAI-compatible chat completions endpoint (Grok by default).
type XAIModel struct {
	name        string
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpCfg     HTTPClientConfig
	cb          *gobreaker.CircuitBreaker
}

// NewXAIModel builds the client. Empty baseURL and model fall back to the
// public Grok endpoint.
func NewXAIModel(client *http.Client, name, apiKey, baseURL, model string, temperature float64, maxRetries int) *XAIModel {
	if baseURL == "" {
		baseURL = defaultXAIBaseURL
	}
	if model == "" {
		model = defaultXAIModel
	}
	if name == "" {
		name = "Grok"
	}
	return &XAIModel{
		name:        name,
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(maxRetries),
		},
		cb: newBreaker("xai"),
	}
}

func (m *XAIModel) Name() string { return m.name }

// Complete sends a system + user message pair and returns the first choice.
func (m *XAIModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   xaiMaxTokens,
		Temperature: m.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := doRequestWithResilience(ctx, m.httpCfg, m.cb, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("api error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errEmptyResponse
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
