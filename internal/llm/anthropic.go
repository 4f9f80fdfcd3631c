package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// anthropicClient is the concrete Narrator backed by the Anthropic Messages
// API. The Messages API has no JSON-schema response mode, so the schema is
// enforced by the prompt and checked by Validate after parsing.
type anthropicClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAnthropicClient returns a Narrator that calls the Anthropic API.
//   - apiKey: your ANTHROPIC_API_KEY
//   - model:  e.g. "claude-opus-4-6"
func NewAnthropicClient(apiKey, model string) Narrator {
	return &anthropicClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// ─── ANTHROPIC API SHAPES ─────────────────────────────────────────────────────

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// GenerateNarrative calls the Anthropic API and validates the parsed narrative.
func (c *anthropicClient) GenerateNarrative(ctx context.Context, in NarrativeInput) (Narrative, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 1000,
		System:    systemPrompt + "\n\n" + devInstructions,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildUserPrompt(in)},
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return Narrative{}, err
	}

	var parsed Narrative
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return Narrative{}, fmt.Errorf("anthropic: parse narrative JSON: %w (raw: %.200s)", err, raw)
	}
	if err := parsed.Validate(); err != nil {
		return Narrative{}, fmt.Errorf("anthropic: %w", err)
	}

	return parsed, nil
}

// AnalyzeContactRisk calls the Anthropic API and validates the risk tuple.
func (c *anthropicClient) AnalyzeContactRisk(ctx context.Context, in ContactRiskInput) (ContactRisk, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 800,
		System:    buildContactRiskSystemPrompt(),
		Messages: []anthropicMessage{
			{Role: "user", Content: buildContactRiskPrompt(in)},
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return ContactRisk{}, err
	}

	var parsed ContactRisk
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return ContactRisk{}, fmt.Errorf("anthropic: parse contact risk JSON: %w (raw: %.200s)", err, raw)
	}
	if err := parsed.Validate(); err != nil {
		return ContactRisk{}, fmt.Errorf("anthropic: %w", err)
	}

	return parsed, nil
}

// call sends one request to the Anthropic Messages API and returns the text
// content of the first content block.
func (c *anthropicClient) call(ctx context.Context, reqBody anthropicRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.anthropic.com/v1/messages",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("anthropic: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("anthropic: read response body: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("anthropic: unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic: API error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("anthropic: no text content in response")
}
