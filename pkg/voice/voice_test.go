package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTS(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload map[string]interface{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte("raw-audio-bytes"))
	}))
	defer ts.Close()

	svc := NewService("el-key", "", WithElevenLabsBaseURL(ts.URL))

	result, err := svc.TTS(context.Background(), "hello", "")
	require.NoError(t, err)

	assert.Equal(t, "/v1/text-to-speech/"+DefaultVoiceID, gotPath)
	assert.Equal(t, "el-key", gotKey)
	assert.Equal(t, "hello", gotPayload["text"])
	assert.Equal(t, ttsModelID, gotPayload["model_id"])

	audio, err := base64.StdEncoding.DecodeString(result.AudioBase64)
	require.NoError(t, err)
	assert.Equal(t, "raw-audio-bytes", string(audio))
}

func TestTTSMissingKey(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	svc := NewService("", "")

	_, err := svc.TTS(context.Background(), "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ELEVENLABS_API_KEY")
}

func TestTTSUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer ts.Close()

	svc := NewService("el-key", "", WithElevenLabsBaseURL(ts.URL))

	_, err := svc.TTS(context.Background(), "hello", "nobody")
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.Status)
	assert.Contains(t, upstream.Details, "voice not found")
}

func TestLipSync(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]interface{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/talks", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"result_url": "https://video.example/v.mp4"})
	}))
	defer ts.Close()

	svc := NewService("", "did-key", WithDIDBaseURL(ts.URL))

	result, err := svc.LipSync(context.Background(), "AAAB", "https://img.example/face.png")
	require.NoError(t, err)

	assert.Equal(t, "Basic did-key", gotAuth)
	assert.Equal(t, "https://img.example/face.png", gotPayload["source_url"])
	assert.Equal(t, "https://video.example/v.mp4", result.VideoURL)
}

func TestLipSyncValidation(t *testing.T) {
	svc := NewService("", "did-key")

	_, err := svc.LipSync(context.Background(), "", "https://img.example/face.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestLipSyncUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer ts.Close()

	svc := NewService("", "did-key", WithDIDBaseURL(ts.URL))

	_, err := svc.LipSync(context.Background(), "AAAB", "https://img.example/face.png")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadRequest, upstream.Status)
}
