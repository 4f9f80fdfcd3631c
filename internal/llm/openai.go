package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// openaiClient is the concrete Narrator backed by the OpenAI chat completions
// API. It is the primary provider; Anthropic is the configured fallback.
type openaiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient returns a Narrator that calls the OpenAI API.
//   - apiKey: your OPENAI_API_KEY
//   - model:  e.g. "gpt-4o-mini"
func NewOpenAIClient(apiKey, model string) Narrator {
	return &openaiClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// ─── OPENAI API SHAPES ────────────────────────────────────────────────────────

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat selects the structured-output mode: "json_schema" constrains
// the response to an exact schema, "json_object" merely guarantees valid JSON.
type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

// GenerateNarrative calls the OpenAI API with the narrative schema constraint
// and validates the parsed response before returning it.
func (c *openaiClient) GenerateNarrative(ctx context.Context, in NarrativeInput) (Narrative, error) {
	reqBody := openAIRequest{
		Model:       c.model,
		MaxTokens:   1000,
		Temperature: 0.7,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   "narrative_response",
				Strict: true,
				Schema: json.RawMessage(narrativeSchema),
			},
		},
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt + "\n\n" + devInstructions},
			{Role: "user", Content: buildUserPrompt(in)},
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return Narrative{}, err
	}

	var parsed Narrative
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return Narrative{}, fmt.Errorf("openai: parse narrative JSON: %w (raw: %.200s)", err, raw)
	}
	if err := parsed.Validate(); err != nil {
		return Narrative{}, fmt.Errorf("openai: %w", err)
	}

	return parsed, nil
}

// AnalyzeContactRisk calls the OpenAI API in json_object mode and validates
// the risk tuple.
func (c *openaiClient) AnalyzeContactRisk(ctx context.Context, in ContactRiskInput) (ContactRisk, error) {
	reqBody := openAIRequest{
		Model:          c.model,
		MaxTokens:      800,
		Temperature:    0.5,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []openAIMessage{
			{Role: "system", Content: buildContactRiskSystemPrompt()},
			{Role: "user", Content: buildContactRiskPrompt(in)},
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return ContactRisk{}, err
	}

	var parsed ContactRisk
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return ContactRisk{}, fmt.Errorf("openai: parse contact risk JSON: %w (raw: %.200s)", err, raw)
	}
	if err := parsed.Validate(); err != nil {
		return ContactRisk{}, fmt.Errorf("openai: %w", err)
	}

	return parsed, nil
}

// call sends one request to the chat completions endpoint and returns the
// text content of the first choice.
func (c *openaiClient) call(ctx context.Context, reqBody openAIRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.openai.com/v1/chat/completions",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("openai: unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("openai: API error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}

// stripFences removes accidental markdown fences around a JSON payload.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
