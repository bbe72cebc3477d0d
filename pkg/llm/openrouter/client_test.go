package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completionResponse builds a minimal chat completions body.
func completionResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	_, err := NewClient("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")
}

func TestNewClientReadsEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-env")

	client, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", client.apiKey)
}

func TestChatFirstModelSucceeds(t *testing.T) {
	var gotPath, gotAuth, gotReferer string
	var gotBody map[string]interface{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(completionResponse("hello there"))
	}))
	defer ts.Close()

	client, err := NewClient("sk-test",
		WithBaseURL(ts.URL),
		WithAppAttribution("Avatar-Crew", "https://example.com/avatar-crew"),
	)
	require.NoError(t, err)

	result, err := client.Chat(context.Background(), Request{
		Message: "hi",
		Model:   "meta-llama/llama-3.3-70b-instruct:free",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", result.Content)
	assert.Equal(t, "meta-llama/llama-3.3-70b-instruct:free", result.ModelUsed)
	assert.Equal(t, []string{"meta-llama/llama-3.3-70b-instruct:free"}, result.ModelsTried)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "https://example.com/avatar-crew", gotReferer)
	assert.Equal(t, "meta-llama/llama-3.3-70b-instruct:free", gotBody["model"])
	assert.EqualValues(t, DefaultMaxTokens, gotBody["max_tokens"])
}

func TestChatTemperatureZeroIsHonored(t *testing.T) {
	var temps []float64

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		temps = append(temps, body["temperature"].(float64))
		json.NewEncoder(w).Encode(completionResponse("ok"))
	}))
	defer ts.Close()

	client, err := NewClient("sk-test", WithBaseURL(ts.URL))
	require.NoError(t, err)

	zero := 0.0
	_, err = client.Chat(context.Background(), Request{Message: "hi", Temperature: &zero})
	require.NoError(t, err)

	// unset still falls back to the default
	_, err = client.Chat(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, DefaultTemperature}, temps)
}

func TestChatFallsBackOnRateLimit(t *testing.T) {
	var modelsSeen []string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		model := body["model"].(string)
		modelsSeen = append(modelsSeen, model)

		if model == "primary" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(completionResponse("fallback answer"))
	}))
	defer ts.Close()

	client, err := NewClient("sk-test", WithBaseURL(ts.URL))
	require.NoError(t, err)

	result, err := client.Chat(context.Background(), Request{
		Message:        "hi",
		Model:          "primary",
		FallbackModels: []string{"secondary"},
	})
	require.NoError(t, err)

	assert.Equal(t, "fallback answer", result.Content)
	assert.Equal(t, "secondary", result.ModelUsed)
	assert.Equal(t, []string{"primary", "secondary"}, result.ModelsTried)
	assert.Equal(t, []string{"primary", "secondary"}, modelsSeen)
}

func TestChatAllModelsFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model overloaded"}`, http.StatusBadGateway)
	}))
	defer ts.Close()

	client, err := NewClient("sk-test",
		WithBaseURL(ts.URL),
		WithModels([]string{"a", "b"}),
	)
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), Request{Message: "hi"})
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"a", "b"}, exhausted.ModelsTried)
	assert.Contains(t, err.Error(), "all models failed")
}

func TestChatUsesDefaultModelsWhenUnset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse("ok"))
	}))
	defer ts.Close()

	client, err := NewClient("sk-test", WithBaseURL(ts.URL))
	require.NoError(t, err)

	result, err := client.Chat(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModels[0], result.ModelUsed)
}

func TestChatRequiresMessage(t *testing.T) {
	client, err := NewClient("sk-test")
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is required")
}
