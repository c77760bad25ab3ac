package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Ramsey-B/sage/pkg/tracing"
)

// DefaultBaseURL is the Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiConfig holds Gemini embedder configuration.
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiProvider calls the Gemini embedContent API.
type GeminiProvider struct {
	client *resty.Client
	model  string
	apiKey string
}

// NewGeminiProvider creates a Gemini-backed embedding provider.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &GeminiProvider{
		client: client,
		model:  cfg.Model,
		apiKey: cfg.APIKey,
	}
}

// Model returns the configured model name. Cache keys include it so vectors
// from different models never collide.
func (p *GeminiProvider) Model() string {
	return p.model
}

type embedRequest struct {
	Content embedContent `json:"content"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed generates a dense vector for the given text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracing.StartSpan(ctx, "embedding.GeminiProvider.Embed")
	defer span.End()

	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	body := embedRequest{Content: embedContent{Parts: []embedPart{{Text: text}}}}

	var out embedResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetBody(&body).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:embedContent", p.model))
	if err != nil {
		return nil, fmt.Errorf("gemini embed request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("gemini embed status %d", resp.StatusCode())
	}

	if len(out.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed returned no values")
	}

	return out.Embedding.Values, nil
}
