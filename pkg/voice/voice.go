// Package voice wraps two external media APIs: ElevenLabs text-to-speech
// and D-ID lip-sync video generation. Both are single-call passthroughs
// with no retry or state.
package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/avatarcrew/crewd/pkg/logging"
)

const (
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultDIDBaseURL        = "https://api.d-id.com"

	// DefaultVoiceID is the ElevenLabs voice used when none is given.
	DefaultVoiceID = "Rachel"

	ttsModelID = "eleven_multilingual_v2"
)

// UpstreamError reports a non-success response from one of the media
// APIs, preserving the upstream body for diagnostics.
type UpstreamError struct {
	Service string
	Status  int
	Details string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed (%d)", e.Service, e.Status)
}

// Service holds credentials and endpoints for both providers.
type Service struct {
	elevenLabsKey string
	didKey        string
	elevenLabsURL string
	didURL        string
	httpClient    *http.Client
	log           *logging.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithElevenLabsBaseURL overrides the ElevenLabs endpoint, mainly for tests.
func WithElevenLabsBaseURL(url string) ServiceOption {
	return func(s *Service) {
		s.elevenLabsURL = strings.TrimRight(url, "/")
	}
}

// WithDIDBaseURL overrides the D-ID endpoint, mainly for tests.
func WithDIDBaseURL(url string) ServiceOption {
	return func(s *Service) {
		s.didURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(httpClient *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = httpClient
	}
}

// NewService creates the passthrough service. Empty keys are read from
// ELEVENLABS_API_KEY and D_ID_API_KEY; keys that are still missing fail
// lazily, per call, so one provider stays usable without the other.
func NewService(elevenLabsKey, didKey string, opts ...ServiceOption) *Service {
	if elevenLabsKey == "" {
		elevenLabsKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if didKey == "" {
		didKey = os.Getenv("D_ID_API_KEY")
	}

	log, _ := logging.NewLogger("voice")
	s := &Service{
		elevenLabsKey: elevenLabsKey,
		didKey:        didKey,
		elevenLabsURL: defaultElevenLabsBaseURL,
		didURL:        defaultDIDBaseURL,
		httpClient:    &http.Client{},
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTSResult carries generated speech audio.
type TTSResult struct {
	AudioBase64 string `json:"audio_base64"`
}

// TTS generates speech audio for text using the given ElevenLabs voice.
func (s *Service) TTS(ctx context.Context, text, voiceID string) (*TTSResult, error) {
	if s.elevenLabsKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY not set")
	}
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	payload := map[string]interface{}{
		"text":     text,
		"model_id": ttsModelID,
		"voice_settings": map[string]float64{
			"stability":        0.3,
			"similarity_boost": 0.7,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.elevenLabsURL + "/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", s.elevenLabsKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		details, _ := io.ReadAll(resp.Body)
		s.log.Errorf("tts failed with status %d", resp.StatusCode)
		return nil, &UpstreamError{Service: "TTS", Status: resp.StatusCode, Details: string(details)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	return &TTSResult{AudioBase64: base64.StdEncoding.EncodeToString(audio)}, nil
}

// LipSyncResult carries the URL of a generated lip-synced video.
type LipSyncResult struct {
	VideoURL string `json:"video_url"`
}

// LipSync submits audio and a source image to D-ID and returns the
// resulting video URL.
func (s *Service) LipSync(ctx context.Context, audioBase64, imageURL string) (*LipSyncResult, error) {
	if s.didKey == "" {
		return nil, fmt.Errorf("D_ID_API_KEY not set")
	}
	if audioBase64 == "" || imageURL == "" {
		return nil, fmt.Errorf("audio_base64 and image_url are required")
	}

	payload := map[string]interface{}{
		"script": map[string]string{
			"type":  "audio",
			"audio": audioBase64,
		},
		"source_url": imageURL,
		"driver_url": "bank://lively",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.didURL+"/talks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+s.didKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lip-sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		details, _ := io.ReadAll(resp.Body)
		s.log.Errorf("lip-sync failed with status %d", resp.StatusCode)
		return nil, &UpstreamError{Service: "Lip-sync", Status: resp.StatusCode, Details: string(details)}
	}

	var parsed struct {
		ResultURL string `json:"result_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &LipSyncResult{VideoURL: parsed.ResultURL}, nil
}
