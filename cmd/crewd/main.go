// Package main provides crewd, the Avatar-Crew backend daemon. It hosts
// the HTTP API that drives a managed browser session and proxies chat,
// RAG, and voice requests to their upstream services.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avatarcrew/crewd/pkg/browser"
	"github.com/avatarcrew/crewd/pkg/config"
	"github.com/avatarcrew/crewd/pkg/llm/openrouter"
	"github.com/avatarcrew/crewd/pkg/rag"
	"github.com/avatarcrew/crewd/pkg/server"
	"github.com/avatarcrew/crewd/pkg/voice"
)

const version = "0.1.0"

const shutdownTimeout = 10 * time.Second

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Addr        string
	Headed      bool
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("crewd v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		log.Printf("crewd failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.Addr, "addr", "", "Listen address (overrides config)")
	flag.BoolVar(&cli.Headed, "headed", false, "Run the browser with a visible window")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "crewd - Avatar-Crew backend daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: crewd [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  OPENROUTER_API_KEY   enables /chat\n")
		fmt.Fprintf(os.Stderr, "  ELEVENLABS_API_KEY   enables /tts\n")
		fmt.Fprintf(os.Stderr, "  D_ID_API_KEY         enables /lip_sync\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cli.Addr != "" {
		cfg.Server.Addr = cli.Addr
	}
	if cli.Headed {
		cfg.Browser.Headless = false
	}

	engine, err := browser.NewPlaywrightEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize browser engine: %w", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			log.Printf("failed to stop browser engine: %v", err)
		}
	}()

	session := browser.NewSession(engine, browser.Options{
		Headless: cfg.Browser.Headless,
		Viewport: browser.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		TimeoutMs: cfg.Browser.TimeoutMs,
	})

	deps := server.Deps{
		Session: session,
		RAG:     buildRAG(cfg),
		Voice:   buildVoice(cfg),
	}

	if cfg.Chat.APIKey != "" {
		chatOpts := []openrouter.Option{
			openrouter.WithAppAttribution(cfg.Chat.AppName, cfg.Chat.AppURL),
		}
		if cfg.Chat.BaseURL != "" {
			chatOpts = append(chatOpts, openrouter.WithBaseURL(cfg.Chat.BaseURL))
		}
		if len(cfg.Chat.FallbackModels) > 0 {
			chatOpts = append(chatOpts, openrouter.WithModels(cfg.Chat.FallbackModels))
		}
		chat, err := openrouter.NewClient(cfg.Chat.APIKey, chatOpts...)
		if err != nil {
			return fmt.Errorf("failed to create chat client: %w", err)
		}
		deps.Chat = chat
	} else {
		log.Println("OPENROUTER_API_KEY not set; /chat disabled")
	}

	srv := server.NewServer(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, deps)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// buildRAG wires the retrieval pipeline against the local Ollama
// OpenAI-compatible endpoint. Ollama ignores the bearer token, so a
// placeholder key keeps the client constructible without credentials.
func buildRAG(cfg *config.Config) server.RAGPipeline {
	base := strings.TrimSuffix(cfg.RAG.OllamaBaseURL, "/") + "/v1"
	generator, err := openrouter.NewClient("ollama",
		openrouter.WithBaseURL(base),
		openrouter.WithModels([]string{cfg.RAG.Model}),
	)
	if err != nil {
		log.Printf("rag pipeline disabled: %v", err)
		return nil
	}
	return rag.NewPipeline(cfg.RAG.WeaviateURL, cfg.RAG.Model, generator,
		rag.WithTopK(cfg.RAG.TopK),
	)
}

func buildVoice(cfg *config.Config) server.VoiceService {
	if cfg.Voice.ElevenLabsAPIKey == "" && cfg.Voice.DIDAPIKey == "" {
		log.Println("ELEVENLABS_API_KEY and D_ID_API_KEY not set; /tts and /lip_sync disabled")
		return nil
	}
	return voice.NewService(cfg.Voice.ElevenLabsAPIKey, cfg.Voice.DIDAPIKey)
}
