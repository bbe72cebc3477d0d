package rag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarcrew/crewd/pkg/llm/openrouter"
)

type stubGenerator struct {
	lastReq openrouter.Request
	content string
	err     error
}

func (g *stubGenerator) Chat(ctx context.Context, req openrouter.Request) (*openrouter.Result, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return &openrouter.Result{Content: g.content, ModelUsed: req.Model}, nil
}

// weaviateStub answers GraphQL queries with fixed text chunks.
func weaviateStub(t *testing.T, chunks []string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/graphql", r.URL.Path)

		var body struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if capture != nil {
			*capture = body.Query
		}

		docs := make([]map[string]string, 0, len(chunks))
		for _, c := range chunks {
			docs = append(docs, map[string]string{"text": c})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{"Document": docs},
			},
		})
	}))
}

func TestQuery(t *testing.T) {
	var query string
	ts := weaviateStub(t, []string{"chunk one", "chunk two"}, &query)
	defer ts.Close()

	gen := &stubGenerator{content: "  the answer  "}
	pipeline := NewPipeline(ts.URL, "llama3", gen)

	result, err := pipeline.Query(context.Background(), "what is up?")
	require.NoError(t, err)

	assert.Equal(t, "the answer", result.Answer)
	assert.Equal(t, []string{"chunk one", "chunk two"}, result.Sources)

	// The search carried the question and limit
	assert.Contains(t, query, `"what is up?"`)
	assert.Contains(t, query, "limit: 5")

	// The prompt carried both chunks and the question
	assert.Contains(t, gen.lastReq.Message, "chunk one")
	assert.Contains(t, gen.lastReq.Message, "chunk two")
	assert.Contains(t, gen.lastReq.Message, "what is up?")
	assert.Equal(t, "llama3", gen.lastReq.Model)
}

func TestQueryEmptyQuestion(t *testing.T) {
	pipeline := NewPipeline("http://localhost:8080", "llama3", &stubGenerator{})

	_, err := pipeline.Query(context.Background(), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is required")
}

func TestQuerySearchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	pipeline := NewPipeline(ts.URL, "llama3", &stubGenerator{})

	_, err := pipeline.Query(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "semantic search failed")
}

func TestQueryGraphQLErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"message": "no such class"}},
		})
	}))
	defer ts.Close()

	pipeline := NewPipeline(ts.URL, "llama3", &stubGenerator{})

	_, err := pipeline.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such class")
}

func TestQueryGenerationFailure(t *testing.T) {
	ts := weaviateStub(t, []string{"chunk"}, nil)
	defer ts.Close()

	gen := &stubGenerator{err: errors.New("all models failed")}
	pipeline := NewPipeline(ts.URL, "llama3", gen)

	_, err := pipeline.Query(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer generation failed")
}

func TestWithTopKAndClassName(t *testing.T) {
	var query string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		query = body.Query
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{"Article": []map[string]string{}},
			},
		})
	}))
	defer ts.Close()

	pipeline := NewPipeline(ts.URL, "llama3", &stubGenerator{},
		WithTopK(2), WithClassName("Article"))

	chunks, err := pipeline.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.True(t, strings.Contains(query, "Article(nearText"))
	assert.Contains(t, query, "limit: 2")
}
