package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Contains(t, cfg.Server.AllowedOrigins, "http://localhost:5173")
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 720, cfg.Browser.ViewportHeight)
	assert.Equal(t, float64(30000), cfg.Browser.TimeoutMs)
	assert.Equal(t, "http://localhost:8080", cfg.RAG.WeaviateURL)
	assert.Equal(t, "llama3", cfg.RAG.Model)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, "Rachel", cfg.Voice.DefaultVoiceID)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crewd.yaml")
	content := `
server:
  addr: ":9000"
browser:
  headless: false
  viewport_width: 1920
  viewport_height: 1080
  timeout_ms: 15000
rag:
  weaviate_url: "http://weaviate:8080"
  top_k: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.Equal(t, float64(15000), cfg.Browser.TimeoutMs)
	assert.Equal(t, "http://weaviate:8080", cfg.RAG.WeaviateURL)
	assert.Equal(t, 3, cfg.RAG.TopK)
	// untouched sections keep their defaults
	assert.Equal(t, "llama3", cfg.RAG.Model)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crewd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("ELEVENLABS_API_KEY", "el-key")
	t.Setenv("D_ID_API_KEY", "did-key")
	t.Setenv("WEAVIATE_URL", "http://remote:8080")
	t.Setenv("LLM_MODEL", "mistral")
	t.Setenv("CREWD_ADDR", ":8888")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "or-key", cfg.Chat.APIKey)
	assert.Equal(t, "el-key", cfg.Voice.ElevenLabsAPIKey)
	assert.Equal(t, "did-key", cfg.Voice.DIDAPIKey)
	assert.Equal(t, "http://remote:8080", cfg.RAG.WeaviateURL)
	assert.Equal(t, "mistral", cfg.RAG.Model)
	assert.Equal(t, ":8888", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: "server address is required",
		},
		{
			name:    "viewport width too small",
			mutate:  func(c *Config) { c.Browser.ViewportWidth = 10 },
			wantErr: "viewport width",
		},
		{
			name:    "viewport height too large",
			mutate:  func(c *Config) { c.Browser.ViewportHeight = 9000 },
			wantErr: "viewport height",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Browser.TimeoutMs = 0 },
			wantErr: "browser timeout must be positive",
		},
		{
			name:    "zero top_k",
			mutate:  func(c *Config) { c.RAG.TopK = 0 },
			wantErr: "top_k must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
