package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/avatarcrew/crewd/pkg/browser"
	"github.com/avatarcrew/crewd/pkg/llm/openrouter"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// handleAgents returns a placeholder roster until real workflow agents
// are registered.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"agents": []map[string]any{
			{"id": 1, "name": "Sales Avatar", "status": "ready"},
			{"id": 2, "name": "HR Interviewer", "status": "ready"},
		},
	})
}

type chatRequest struct {
	Message        string   `json:"message"`
	Model          string   `json:"model"`
	FallbackModels []string `json:"fallback_models"`
	// pointer: an explicit 0 must reach the model, not the default
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

type chatResponse struct {
	Success     bool     `json:"success"`
	Content     string   `json:"content"`
	ModelUsed   string   `json:"model_used"`
	Error       string   `json:"error,omitempty"`
	ModelsTried []string `json:"models_tried,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if status, err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, status, err)
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}
	if s.deps.Chat == nil {
		respondJSON(w, chatResponse{Error: "chat is not configured: OPENROUTER_API_KEY not set", ModelUsed: "none"})
		return
	}

	s.log.Infof("chat request for model %q", req.Model)

	result, err := s.deps.Chat.Chat(r.Context(), openrouter.Request{
		Message:        req.Message,
		Model:          req.Model,
		FallbackModels: req.FallbackModels,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	})
	if err != nil {
		resp := chatResponse{Error: err.Error(), ModelUsed: "none"}
		var exhausted *openrouter.ExhaustedError
		if errors.As(err, &exhausted) {
			resp.ModelsTried = exhausted.ModelsTried
		}
		respondJSON(w, resp)
		return
	}

	respondJSON(w, chatResponse{
		Success:   true,
		Content:   result.Content,
		ModelUsed: result.ModelUsed,
	})
}

type ragRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	var req ragRequest
	if status, err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, status, err)
		return
	}
	if req.Question == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}
	if s.deps.RAG == nil {
		respondAction(w, fmt.Errorf("rag is not configured"))
		return
	}

	result, err := s.deps.RAG.Query(r.Context(), req.Question)
	if err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, result)
}

type ttsRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if status, err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, status, err)
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}
	if s.deps.Voice == nil {
		respondAction(w, fmt.Errorf("voice is not configured"))
		return
	}

	result, err := s.deps.Voice.TTS(r.Context(), req.Text, req.VoiceID)
	if err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, result)
}

type lipSyncRequest struct {
	AudioBase64 string `json:"audio_base64"`
	ImageURL    string `json:"image_url"`
}

func (s *Server) handleLipSync(w http.ResponseWriter, r *http.Request) {
	var req lipSyncRequest
	if status, err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, status, err)
		return
	}
	if req.AudioBase64 == "" || req.ImageURL == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("audio_base64 and image_url are required"))
		return
	}
	if s.deps.Voice == nil {
		respondAction(w, fmt.Errorf("voice is not configured"))
		return
	}

	result, err := s.deps.Voice.LipSync(r.Context(), req.AudioBase64, req.ImageURL)
	if err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, result)
}

func (s *Server) handleBrowserStart(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Session.Start(); err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "Browser started"})
}

type navigateRequest struct {
	URL     string  `json:"url"`
	Timeout float64 `json:"timeout"`
}

func (s *Server) handleBrowserNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if status, err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, status, err)
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}

	result, err := s.deps.Session.Navigate(req.URL, req.Timeout)
	if err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, result)
}

type clickRequest struct {
	Selector string `json:"selector"`
}

func (s *Server) handleBrowserClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if status, err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, status, err)
		return
	}
	if req.Selector == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("selector is required"))
		return
	}

	if err := s.deps.Session.Click(req.Selector); err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": fmt.Sprintf("Clicked element: %s", req.Selector)})
}

type typeRequest struct {
	Selector string  `json:"selector"`
	Text     *string `json:"text"`
}

func (s *Server) handleBrowserType(w http.ResponseWriter, r *http.Request) {
	var req typeRequest
	if status, err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, status, err)
		return
	}
	// empty text is allowed; an absent field is not
	if req.Selector == "" || req.Text == nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("selector and text are required"))
		return
	}

	if err := s.deps.Session.TypeText(req.Selector, *req.Text); err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": fmt.Sprintf("Typed text into: %s", req.Selector)})
}

func (s *Server) handleBrowserContent(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Session.GetContent()
	if err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, result)
}

func (s *Server) handleBrowserHTML(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Session.GetHTML()
	if err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, result)
}

func (s *Server) handleBrowserScreenshot(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Session.TakeScreenshot()
	if err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, result)
}

func (s *Server) handleBrowserClose(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Session.Close(); err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "Browser closed"})
}

func (s *Server) handleGetCookies(w http.ResponseWriter, r *http.Request) {
	cookies, err := s.deps.Session.GetCookies()
	if err != nil {
		respondAction(w, err)
		return
	}
	if cookies == nil {
		cookies = []browser.Cookie{}
	}
	respondJSON(w, map[string]any{"cookies": cookies})
}

func (s *Server) handleAddCookies(w http.ResponseWriter, r *http.Request) {
	var cookies []browser.Cookie
	if status, err := decodeJSONBody(w, r, &cookies); err != nil {
		respondError(w, status, err)
		return
	}
	if len(cookies) == 0 {
		respondError(w, http.StatusBadRequest, fmt.Errorf("at least one cookie is required"))
		return
	}

	if err := s.deps.Session.AddCookies(cookies); err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "Cookies added"})
}

func (s *Server) handleDeleteCookies(w http.ResponseWriter, r *http.Request) {
	var cookies []browser.Cookie
	if status, err := decodeJSONBody(w, r, &cookies); err != nil {
		respondError(w, status, err)
		return
	}
	if len(cookies) == 0 {
		respondError(w, http.StatusBadRequest, fmt.Errorf("at least one cookie is required"))
		return
	}

	if err := s.deps.Session.DeleteCookies(cookies); err != nil {
		respondAction(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "Cookies deleted"})
}
