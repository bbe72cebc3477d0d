// Package config loads the daemon configuration from a YAML file with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	Chat    ChatConfig    `yaml:"chat"`
	RAG     RAGConfig     `yaml:"rag"`
	Voice   VoiceConfig   `yaml:"voice"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// AllowedOrigins are granted CORS access (the local dev frontend)
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BrowserConfig configures the automated browser session.
type BrowserConfig struct {
	Headless       bool    `yaml:"headless"`
	ViewportWidth  int     `yaml:"viewport_width"`
	ViewportHeight int     `yaml:"viewport_height"`
	TimeoutMs      float64 `yaml:"timeout_ms"`
}

// ChatConfig configures the OpenRouter chat gateway. The API key is
// never read from the file; only OPENROUTER_API_KEY supplies it.
type ChatConfig struct {
	APIKey         string   `yaml:"-"`
	BaseURL        string   `yaml:"base_url"`
	FallbackModels []string `yaml:"fallback_models"`
	AppName        string   `yaml:"app_name"`
	AppURL         string   `yaml:"app_url"`
}

// RAGConfig configures retrieval-augmented generation.
type RAGConfig struct {
	WeaviateURL   string `yaml:"weaviate_url"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
	Model         string `yaml:"model"`
	TopK          int    `yaml:"top_k"`
}

// VoiceConfig configures the TTS and lip-sync passthroughs. Keys come
// from ELEVENLABS_API_KEY and D_ID_API_KEY only.
type VoiceConfig struct {
	ElevenLabsAPIKey string `yaml:"-"`
	DIDAPIKey        string `yaml:"-"`
	DefaultVoiceID   string `yaml:"default_voice_id"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			TimeoutMs:      30000,
		},
		Chat: ChatConfig{
			AppName: "Avatar-Crew",
			AppURL:  "https://github.com/avatarcrew/crewd",
		},
		RAG: RAGConfig{
			WeaviateURL:   "http://localhost:8080",
			OllamaBaseURL: "http://localhost:11434",
			Model:         "llama3",
			TopK:          5,
		},
		Voice: VoiceConfig{
			DefaultVoiceID: "Rachel",
		},
	}
}

// Load reads the config file at path (optional: a missing file yields
// defaults), applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays secrets and endpoint overrides from the environment.
func (c *Config) applyEnv() {
	c.Chat.APIKey = os.Getenv("OPENROUTER_API_KEY")
	c.Voice.ElevenLabsAPIKey = os.Getenv("ELEVENLABS_API_KEY")
	c.Voice.DIDAPIKey = os.Getenv("D_ID_API_KEY")

	if v := os.Getenv("WEAVIATE_URL"); v != "" {
		c.RAG.WeaviateURL = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.RAG.OllamaBaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.RAG.Model = v
	}
	if v := os.Getenv("CREWD_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if c.Browser.ViewportWidth < 100 || c.Browser.ViewportWidth > 5000 {
		return fmt.Errorf("viewport width must be between 100 and 5000 pixels")
	}
	if c.Browser.ViewportHeight < 100 || c.Browser.ViewportHeight > 5000 {
		return fmt.Errorf("viewport height must be between 100 and 5000 pixels")
	}
	if c.Browser.TimeoutMs <= 0 {
		return fmt.Errorf("browser timeout must be positive")
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag top_k must be positive")
	}
	return nil
}
