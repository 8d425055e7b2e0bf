// Package generation holds the structured-generation layer: the backend
// client, the closed set of result shapes, and the bounded constraint-retry
// controller the pipeline stages build on.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"charforge/internal/logging"
)

// Request describes one structured-generation call. Stage is used for
// logging only; Large selects the larger model tier.
type Request struct {
	Stage       string
	System      string
	User        string
	Temperature float64
	TopP        float64
	Large       bool
}

// Client produces structured output for a request, decoding the backend
// reply into out and validating it before returning. out must be a
// non-nil pointer to one of the result shapes.
type Client interface {
	Generate(ctx context.Context, req Request, out Shape) error
}

// GroqConfig holds configuration for the Groq client.
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	LargeModel  string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultGroqConfig returns sensible defaults.
func DefaultGroqConfig(apiKey string) GroqConfig {
	return GroqConfig{
		APIKey:      apiKey,
		BaseURL:     "https://api.groq.com/openai/v1",
		Model:       "llama3-70b-8192",
		LargeModel:  "llama-3.3-70b-versatile",
		Timeout:     120 * time.Second,
		MaxAttempts: 5,
		RetryDelay:  time.Second,
	}
}

// GroqClient implements Client against an OpenAI-compatible chat
// completions endpoint with JSON response mode.
type GroqClient struct {
	apiKey      string
	baseURL     string
	model       string
	largeModel  string
	maxAttempts int
	retryDelay  time.Duration
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// NewGroqClient creates a new Groq client with default config.
func NewGroqClient(apiKey string) *GroqClient {
	return NewGroqClientWithConfig(DefaultGroqConfig(apiKey))
}

// NewGroqClientWithConfig creates a new Groq client with custom config.
func NewGroqClientWithConfig(config GroqConfig) *GroqClient {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &GroqClient{
		apiKey:      config.APIKey,
		baseURL:     config.BaseURL,
		model:       config.Model,
		largeModel:  config.LargeModel,
		maxAttempts: config.MaxAttempts,
		retryDelay:  config.RetryDelay,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	TopP           float64       `json:"top_p,omitempty"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends the request and decodes the reply into out. Transport
// failures and shape mismatches are both retried up to MaxAttempts; the
// last error is returned when the budget is exhausted.
func (c *GroqClient) Generate(ctx context.Context, req Request, out Shape) error {
	if c.apiKey == "" {
		return fmt.Errorf("API key not configured")
	}
	if strings.TrimSpace(req.System) == "" || strings.TrimSpace(req.User) == "" {
		return fmt.Errorf("stage %s: empty prompt", req.Stage)
	}

	model := c.model
	if req.Large && c.largeModel != "" {
		model = c.largeModel
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature:    req.Temperature,
		TopP:           req.TopP,
		ResponseFormat: &chatFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			logging.GenerationWarn("stage %s attempt %d/%d after error: %v",
				req.Stage, attempt, c.maxAttempts, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		content, err := c.complete(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		if err := decodeShape(content, out); err != nil {
			lastErr = err
			continue
		}

		logging.GenerationDebug("stage %s succeeded on attempt %d (model=%s)",
			req.Stage, attempt, model)
		return nil
	}

	return fmt.Errorf("stage %s: %d attempts exhausted: %w", req.Stage, c.maxAttempts, lastErr)
}

// complete performs one HTTP round trip and returns the raw message content.
func (c *GroqClient) complete(ctx context.Context, payload []byte) (string, error) {
	// Rate limiting: ensure at least 500ms between requests
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 500*time.Millisecond {
		time.Sleep(500*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("rate limit exceeded (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// decodeShape extracts the JSON document from the reply, decodes it into
// a fresh value and validates, then copies into out. Decoding into a
// fresh value keeps a failed attempt from leaking partial fields into
// the next one.
func decodeShape(content string, out Shape) error {
	doc, err := extractJSON(content)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	outVal := reflect.ValueOf(out)
	if outVal.Kind() != reflect.Pointer || outVal.IsNil() {
		return fmt.Errorf("out must be a non-nil pointer, got %T", out)
	}
	fresh := reflect.New(outVal.Elem().Type())
	if err := json.Unmarshal([]byte(doc), fresh.Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	shape, ok := fresh.Interface().(Shape)
	if !ok {
		return fmt.Errorf("decoded %T does not implement Shape", fresh.Interface())
	}
	if err := shape.Validate(); err != nil {
		return err
	}
	outVal.Elem().Set(fresh.Elem())
	return nil
}

// extractJSON pulls the JSON document out of a reply that may wrap it in
// a markdown code fence or surrounding prose.
func extractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if end := strings.LastIndex(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in reply")
	}
	return trimmed[start : end+1], nil
}
