package elevenlabs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheongeum/cheongeum-server/internal/config"
)

func newTestClient(url, key string) *Client {
	return NewClient(&config.ElevenLabsConfig{BaseURL: url, APIKey: key, Timeout: 10 * time.Second})
}

func TestAddVoice_Success(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/voices/add", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "clone-1", r.FormValue("name"))

		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "sample.webm", header.Filename)
		assert.Equal(t, "audio/webm", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("sample"), data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voice_id":"v1"}`))
	}))
	defer mockServer.Close()

	id, err := newTestClient(mockServer.URL, "secret").AddVoice(context.Background(), "clone-1", []byte("sample"), "sample.webm", "audio/webm")

	require.NoError(t, err)
	assert.Equal(t, "v1", id)
}

func TestAddVoice_MissingVoiceID(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer mockServer.Close()

	_, err := newTestClient(mockServer.URL, "secret").AddVoice(context.Background(), "n", []byte("s"), "a.webm", "audio/webm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no voice_id")
}

func TestAddVoice_Rejected(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"voice_limit_reached"}`))
	}))
	defer mockServer.Close()

	_, err := newTestClient(mockServer.URL, "secret").AddVoice(context.Background(), "n", []byte("s"), "a.webm", "audio/webm")

	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.Contains(t, err.Error(), "voice_limit_reached")
}

func TestSynthesize_Success(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/v1", r.URL.Path)
		assert.Equal(t, "audio/mpeg", r.Header.Get("Accept"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello", body["text"])
		assert.Equal(t, "eleven_multilingual_v2", body["model_id"])
		settings := body["voice_settings"].(map[string]interface{})
		assert.Equal(t, 0.8, settings["similarity_boost"])

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3 bytes"))
	}))
	defer mockServer.Close()

	audio, err := newTestClient(mockServer.URL, "secret").Synthesize(context.Background(), "v1", "Hello", SynthesisOptions{
		ModelID:  "eleven_multilingual_v2",
		Settings: VoiceSettings{Stability: 0.5, SimilarityBoost: 0.8, Style: 0.5},
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 bytes"), audio)
}

func TestDeleteVoice(t *testing.T) {
	var calls int
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/voices/v1", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer mockServer.Close()

	err := newTestClient(mockServer.URL, "secret").DeleteVoice(context.Background(), "v1")

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_MissingAPIKey(t *testing.T) {
	client := newTestClient("http://localhost:9999", "  ")

	_, err := client.AddVoice(context.Background(), "n", nil, "a", "b")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	_, err = client.Synthesize(context.Background(), "v", "t", SynthesisOptions{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.ErrorIs(t, client.DeleteVoice(context.Background(), "v"), ErrMissingAPIKey)
}

func TestClient_Unavailable(t *testing.T) {
	client := NewClient(&config.ElevenLabsConfig{BaseURL: "http://localhost:9999", APIKey: "k", Timeout: time.Second})

	err := client.DeleteVoice(context.Background(), "v1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Timeout(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer mockServer.Close()

	client := NewClient(&config.ElevenLabsConfig{BaseURL: mockServer.URL, APIKey: "k", Timeout: 50 * time.Millisecond})

	err := client.DeleteVoice(context.Background(), "v1")
	assert.ErrorIs(t, err, ErrTimeout)
}
