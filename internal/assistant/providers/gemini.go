package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiModel answers through the Gemini API.
type GeminiModel struct {
	name        string
	client      *genai.Client
	model       string
	temperature float32
	backoff     BackoffConfig
	cb          *gobreaker.CircuitBreaker
}

// NewGeminiModel creates the genai client. baseURL is only set in tests.
func NewGeminiModel(ctx context.Context, httpClient *http.Client, name, apiKey, baseURL, model string, temperature float64, maxRetries int) (*GeminiModel, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	if name == "" {
		name = "Gemini"
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiModel{
		name:        name,
		client:      client,
		model:       model,
		temperature: float32(temperature),
		backoff:     defaultBackoff(maxRetries),
		cb:          newBreaker("gemini"),
	}, nil
}

func (m *GeminiModel) Name() string { return m.name }

// Complete generates a single answer. Transient failures are retried with
// the same backoff as the HTTP provider.
func (m *GeminiModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(m.temperature),
	}

	for attempt := 0; ; attempt++ {
		result, err := m.cb.Execute(func() (interface{}, error) {
			resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(userPrompt), cfg)
			if err != nil {
				return nil, err
			}
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return nil, errEmptyResponse
			}
			return text, nil
		})
		if err == nil {
			return result.(string), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if !geminiRetryable(err) || attempt >= m.backoff.MaxRetries {
			return "", err
		}
		if !sleepBackoff(ctx, m.backoff, attempt) {
			return "", ctx.Err()
		}
	}
}

func geminiRetryable(err error) bool {
	if errors.Is(err, errEmptyResponse) || !retryable(err) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return true
}
