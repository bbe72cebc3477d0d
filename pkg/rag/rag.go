// Package rag answers questions with retrieval-augmented generation:
// a vector search against a Weaviate instance supplies context chunks,
// and an OpenAI-compatible model generates the answer from them.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/avatarcrew/crewd/pkg/llm/openrouter"
	"github.com/avatarcrew/crewd/pkg/logging"
)

// DefaultTopK is how many context chunks a search retrieves.
const DefaultTopK = 5

// defaultClassName is the Weaviate class holding indexed documents.
const defaultClassName = "Document"

// Generator produces an answer from a prompt. The openrouter client
// satisfies this, typically pointed at a local Ollama server.
type Generator interface {
	Chat(ctx context.Context, req openrouter.Request) (*openrouter.Result, error)
}

// Pipeline is the end-to-end RAG flow: search, then generate.
type Pipeline struct {
	weaviateURL string
	className   string
	topK        int
	model       string
	generator   Generator
	httpClient  *http.Client
	log         *logging.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTopK sets how many chunks each search retrieves.
func WithTopK(k int) PipelineOption {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithClassName sets the Weaviate class to search.
func WithClassName(name string) PipelineOption {
	return func(p *Pipeline) {
		if name != "" {
			p.className = name
		}
	}
}

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) PipelineOption {
	return func(p *Pipeline) {
		p.httpClient = httpClient
	}
}

// NewPipeline creates a pipeline against the given Weaviate endpoint.
// model names the generation model passed to the generator.
func NewPipeline(weaviateURL, model string, generator Generator, opts ...PipelineOption) *Pipeline {
	log, _ := logging.NewLogger("rag")
	p := &Pipeline{
		weaviateURL: strings.TrimRight(weaviateURL, "/"),
		className:   defaultClassName,
		topK:        DefaultTopK,
		model:       model,
		generator:   generator,
		httpClient:  &http.Client{},
		log:         log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// QueryResult carries the generated answer and the chunks it was
// grounded on.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Query runs the full pipeline for one question.
func (p *Pipeline) Query(ctx context.Context, question string) (*QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	chunks, err := p.Search(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}
	p.log.Infof("retrieved %d context chunks", len(chunks))

	answer, err := p.Generate(ctx, question, chunks)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &QueryResult{Answer: answer, Sources: chunks}, nil
}

// Search performs a nearText vector search and returns the matched
// text chunks.
func (p *Pipeline) Search(ctx context.Context, question string) ([]string, error) {
	query := fmt.Sprintf(
		`{ Get { %s(nearText: {concepts: [%s]}, limit: %d) { text } } }`,
		p.className, mustQuote(question), p.topK,
	)

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	url := p.weaviateURL + "/v1/graphql"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weaviate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weaviate returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Data map[string]map[string][]struct {
			Text string `json:"text"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode weaviate response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query error: %s", parsed.Errors[0].Message)
	}

	docs := parsed.Data["Get"][p.className]
	chunks := make([]string, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, d.Text)
	}
	return chunks, nil
}

// Generate asks the model to answer the question from the given chunks.
func (p *Pipeline) Generate(ctx context.Context, question string, chunks []string) (string, error) {
	prompt := fmt.Sprintf(
		"Answer the question using the context below.\n\nContext:\n%s\n\nQuestion: %s\nAnswer:",
		strings.Join(chunks, "\n"), question,
	)

	result, err := p.generator.Chat(ctx, openrouter.Request{
		Message: prompt,
		Model:   p.model,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Content), nil
}

// mustQuote JSON-encodes a string for embedding in a GraphQL query.
func mustQuote(s string) string {
	quoted, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(quoted)
}
