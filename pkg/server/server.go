// Package server exposes the crewd HTTP API: browser session control,
// chat, RAG, and voice passthroughs, answered as JSON for the local
// frontend.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avatarcrew/crewd/pkg/browser"
	"github.com/avatarcrew/crewd/pkg/llm/openrouter"
	"github.com/avatarcrew/crewd/pkg/logging"
	"github.com/avatarcrew/crewd/pkg/rag"
	"github.com/avatarcrew/crewd/pkg/voice"
)

// SessionController drives the single managed browser session.
type SessionController interface {
	Start() error
	Navigate(url string, timeoutMs float64) (*browser.NavigationResult, error)
	Click(selector string) error
	TypeText(selector, text string) error
	GetContent() (*browser.ContentResult, error)
	GetHTML() (*browser.HTMLResult, error)
	TakeScreenshot() (*browser.ScreenshotResult, error)
	GetCookies() ([]browser.Cookie, error)
	AddCookies(cookies []browser.Cookie) error
	DeleteCookies(cookies []browser.Cookie) error
	Close() error
}

// ChatClient answers free-form chat turns.
type ChatClient interface {
	Chat(ctx context.Context, req openrouter.Request) (*openrouter.Result, error)
}

// RAGPipeline answers questions grounded on retrieved documents.
type RAGPipeline interface {
	Query(ctx context.Context, question string) (*rag.QueryResult, error)
}

// VoiceService generates speech audio and lip-synced video.
type VoiceService interface {
	TTS(ctx context.Context, text, voiceID string) (*voice.TTSResult, error)
	LipSync(ctx context.Context, audioBase64, imageURL string) (*voice.LipSyncResult, error)
}

// Config controls the HTTP server behavior.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Deps are the services the server routes to. Chat, RAG, and Voice may
// be nil when their upstream credentials are absent; the matching
// endpoints then answer with an action error.
type Deps struct {
	Session SessionController
	Chat    ChatClient
	RAG     RAGPipeline
	Voice   VoiceService
}

// Server hosts the JSON/HTTP API and owns the browser session for the
// lifetime of the process.
type Server struct {
	cfg        Config
	deps       Deps
	httpServer *http.Server
	log        *logging.Logger
}

// NewServer constructs a server around the provided services.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	log, _ := logging.NewLogger("server")

	s := &Server{
		cfg:  cfg,
		deps: deps,
		log:  log,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler builds the full route tree. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(s.corsMiddleware)

	router.Get("/health", s.handleHealth)
	router.Get("/agents", s.handleAgents)
	router.Post("/chat", s.handleChat)
	router.Post("/rag_query", s.handleRAGQuery)
	router.Post("/tts", s.handleTTS)
	router.Post("/lip_sync", s.handleLipSync)

	router.Route("/browser", func(r chi.Router) {
		r.Post("/start", s.handleBrowserStart)
		r.Post("/navigate", s.handleBrowserNavigate)
		r.Post("/click", s.handleBrowserClick)
		r.Post("/type", s.handleBrowserType)
		r.Get("/content", s.handleBrowserContent)
		r.Get("/html", s.handleBrowserHTML)
		r.Get("/screenshot", s.handleBrowserScreenshot)
		r.Post("/close", s.handleBrowserClose)
		r.Get("/cookies", s.handleGetCookies)
		r.Post("/cookies/add", s.handleAddCookies)
		r.Post("/cookies/delete", s.handleDeleteCookies)
	})

	return router
}

// ListenAndServe blocks serving requests until the listener fails or
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Infof("listening on %s", s.cfg.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes the browser session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.deps.Session != nil {
		if closeErr := s.deps.Session.Close(); closeErr != nil {
			s.log.Warnf("failed to close browser session: %v", closeErr)
		}
	}
	return err
}
