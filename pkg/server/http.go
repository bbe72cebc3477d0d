package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/avatarcrew/crewd/pkg/browser"
	"github.com/avatarcrew/crewd/pkg/llm/openrouter"
	"github.com/avatarcrew/crewd/pkg/voice"
)

const maxBodyBytes int64 = 1 << 20

// decodeJSONBody decodes a bounded JSON request body into dst. A non-zero
// returned status indicates a malformed request the caller should reject.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) (int, error) {
	if r.Body == nil {
		return http.StatusBadRequest, fmt.Errorf("request body required")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body too large (max %d bytes)", maxBodyBytes)
		}
		return http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err)
	}
	return 0, nil
}

// respondJSON writes payload as the JSON response body.
func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError rejects a malformed request with the given status.
func respondError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":  err.Error(),
		"status": status,
	})
}

// respondAction reports an action-level failure. The request itself was
// well-formed, so the answer stays HTTP 200 with a shaped error body
// the frontend renders directly.
func respondAction(w http.ResponseWriter, err error) {
	payload := map[string]any{"error": err.Error()}

	var sessionErr *browser.Error
	var exhausted *openrouter.ExhaustedError
	var upstream *voice.UpstreamError
	switch {
	case errors.As(err, &sessionErr):
		payload["error"] = sessionErr.Message
		if sessionErr.Suggestion != "" {
			payload["suggestion"] = sessionErr.Suggestion
		}
	case errors.As(err, &exhausted):
		payload["models_tried"] = exhausted.ModelsTried
	case errors.As(err, &upstream):
		if upstream.Details != "" {
			payload["details"] = upstream.Details
		}
	}

	respondJSON(w, payload)
}
