// Package openrouter provides a chat client for OpenRouter-compatible
// APIs with ordered fallback across multiple model identifiers: when a
// model is rate limited, unreachable, or rejects the request, the next
// model in the list is tried until one answers or the list is exhausted.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/openai/openai-go"

	"github.com/avatarcrew/crewd/pkg/llm/tokenizer"
	"github.com/avatarcrew/crewd/pkg/logging"
)

// DefaultBaseURL is the OpenRouter API base URL.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Request defaults matching the public chat contract.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 300
)

// DefaultModels are tried in order when a request names no model.
var DefaultModels = []string{
	"meta-llama/llama-3.3-70b-instruct:free",
	"mistralai/mistral-7b-instruct:free",
	"google/gemma-2-9b-it:free",
}

// Client calls an OpenRouter-compatible chat completions API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	appName    string
	appURL     string
	models     []string
	tokenizer  *tokenizer.Tokenizer
	log        *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different OpenAI-compatible API,
// e.g. a local Ollama server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithModels replaces the default fallback model list.
func WithModels(models []string) Option {
	return func(c *Client) {
		if len(models) > 0 {
			c.models = models
		}
	}
}

// WithAppAttribution sets the OpenRouter app attribution headers
// (HTTP-Referer and X-Title).
func WithAppAttribution(name, url string) Option {
	return func(c *Client) {
		c.appName = name
		c.appURL = url
	}
}

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates an OpenRouter client. If apiKey is empty it is read
// from the OPENROUTER_API_KEY environment variable.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required (provide via parameter or OPENROUTER_API_KEY environment variable)")
	}

	log, _ := logging.NewLogger("openrouter")
	tok, err := tokenizer.New()
	if err != nil {
		// Approximate counts are fine; they are only logged
		log.Warnf("tokenizer running in approximate mode: %v", err)
	}

	c := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		models:     DefaultModels,
		tokenizer:  tok,
		log:        log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Request is one chat turn. Model, when set, is tried before
// FallbackModels; with no Model the client's default list is used.
// Temperature is a pointer so an explicit 0 (deterministic sampling) is
// distinguishable from unset, which takes the default.
type Request struct {
	Message        string   `json:"message"`
	Model          string   `json:"model,omitempty"`
	FallbackModels []string `json:"fallback_models,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
}

// Result is a successful chat answer.
type Result struct {
	Content     string   `json:"content"`
	ModelUsed   string   `json:"model_used"`
	ModelsTried []string `json:"models_tried"`
}

// ExhaustedError reports that every candidate model failed. The last
// per-model error is preserved as the cause.
type ExhaustedError struct {
	ModelsTried []string
	LastErr     error
}

func (e *ExhaustedError) Error() string {
	if e.LastErr == nil {
		return "all models failed"
	}
	return fmt.Sprintf("all models failed, last error: %v", e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Chat sends the message to each candidate model in order and returns
// the first answer. Rate limits, connection errors, and API errors all
// advance to the next model.
func (c *Client) Chat(ctx context.Context, req Request) (*Result, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}
	if req.Temperature == nil {
		temperature := DefaultTemperature
		req.Temperature = &temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	models := c.candidateModels(req)
	promptTokens := c.tokenizer.CountTokens(req.Message)

	var lastErr error
	tried := make([]string, 0, len(models))
	for _, model := range models {
		tried = append(tried, model)
		c.log.Infof("trying model %s (prompt ~%d tokens)", model, promptTokens)

		content, err := c.complete(ctx, model, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%s: %w", model, err)
			c.log.Warnf("model %s failed: %v", model, err)
			continue
		}

		c.log.Infof("got response from %s", model)
		return &Result{
			Content:     content,
			ModelUsed:   model,
			ModelsTried: tried,
		}, nil
	}

	return nil, &ExhaustedError{ModelsTried: tried, LastErr: lastErr}
}

// candidateModels builds the ordered try list for one request.
func (c *Client) candidateModels(req Request) []string {
	var models []string
	if req.Model != "" {
		models = append(models, req.Model)
	} else {
		models = append(models, c.models...)
	}
	models = append(models, req.FallbackModels...)
	return models
}

// complete performs one non-streaming chat completion call.
func (c *Client) complete(ctx context.Context, model string, req Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(req.Message),
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": *req.Temperature,
		"max_tokens":  req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.appURL != "" {
		httpReq.Header.Set("HTTP-Referer", c.appURL)
	}
	if c.appName != "" {
		httpReq.Header.Set("X-Title", c.appName)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("API request failed with status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
