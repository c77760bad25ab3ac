package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-resty/resty/v2"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// DefaultBaseURL is the Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiConfig holds Gemini client configuration.
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiOracle classifies candidates with the Gemini generateContent API,
// requesting a JSON response body.
type GeminiOracle struct {
	client *resty.Client
	model  string
	apiKey string
	logger ectologger.Logger
}

// NewGeminiOracle creates a Gemini-backed oracle.
func NewGeminiOracle(cfg GeminiConfig, logger ectologger.Logger) *GeminiOracle {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &GeminiOracle{
		client: client,
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// Configured reports whether the client has an API key.
func (g *GeminiOracle) Configured() bool {
	return g.apiKey != ""
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Classify asks Gemini whether the candidate corresponds to one of the
// counterpart entries.
func (g *GeminiOracle) Classify(ctx context.Context, candidate *models.CandidateEvent, counterparts []models.CalendarEntry) (*Judgment, error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.GeminiOracle.Classify")
	defer span.End()

	prompt, err := buildClassifyPrompt(candidate, counterparts)
	if err != nil {
		return nil, err
	}

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
		},
	}

	var out generateResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(&body).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		g.logger.WithContext(ctx).WithFields(map[string]any{
			"status": resp.StatusCode(),
		}).Warn("Gemini classify returned non-200")
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no content")
	}

	var judgment Judgment
	if err := SanitizeAndParse(out.Candidates[0].Content.Parts[0].Text, &judgment); err != nil {
		return nil, err
	}

	return &judgment, nil
}

// buildClassifyPrompt renders the candidate and its counterpart entries as
// JSON and asks for a single-object JSON answer in the verdict vocabulary.
func buildClassifyPrompt(candidate *models.CandidateEvent, counterparts []models.CalendarEntry) (string, error) {
	candJSON, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return "", err
	}
	entriesJSON, err := json.MarshalIndent(counterparts, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You compare a proposed calendar event against existing calendar events and decide whether it is already on the calendar.

Proposed event:
%s

Existing calendar events:
%s

Answer with a single JSON object:
{
  "match_type": one of "no_match", "duplicate", "update", "possible_update",
  "matched_event_id": the id of the matching existing event, or "" when match_type is "no_match",
  "matched_event": for "update" or "possible_update", the existing event with the proposal's changes merged in (same field shape as the proposed event); otherwise null,
  "reason": a one-sentence explanation
}

Rules:
- "duplicate": an existing event is the same event and the proposal adds nothing.
- "update": an existing event is clearly the same event and the proposal changes or adds details.
- "possible_update": an existing event is probably the same event but you are not certain.
- "no_match": none of the existing events is this event.
- Compare by meaning, not exact wording. Times that refer to the same moment are the same.`, candJSON, entriesJSON), nil
}
