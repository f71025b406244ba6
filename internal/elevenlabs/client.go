// Package elevenlabs is a client for the ElevenLabs voice cloning and
// text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/cheongeum/cheongeum-server/internal/config"
)

const headerAPIKey = "xi-api-key"

// VoiceSettings controls how a cloned voice is rendered.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

// SynthesisOptions selects the model and voice settings for a synthesis call.
type SynthesisOptions struct {
	ModelID  string
	Settings VoiceSettings
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

type addVoiceResponse struct {
	VoiceID string `json:"voice_id"`
}

// Client handles communication with the ElevenLabs API. It is safe for
// concurrent use and meant to be created once per process.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewClient creates a new provider client with connection pooling.
func NewClient(cfg *config.ElevenLabsConfig) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		endpoint: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
	}
}

// AddVoice uploads a voice sample and returns the id of the new voice.
func (c *Client) AddVoice(ctx context.Context, name string, sample []byte, filename, mimeType string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	if err := form.WriteField("name", name); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(sample); err != nil {
		return "", fmt.Errorf("failed to write sample: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/voices/add", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.do(ctx, httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result addVoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.VoiceID == "" {
		return "", errors.New("elevenlabs voice add returned no voice_id")
	}

	return result.VoiceID, nil
}

// Synthesize renders text with the given voice and returns MPEG audio.
func (c *Client) Synthesize(ctx context.Context, voiceID, text string, opts SynthesisOptions) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	payload, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       opts.ModelID,
		VoiceSettings: opts.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/text-to-speech/"+url.PathEscape(voiceID), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := c.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return audio, nil
}

// DeleteVoice removes a voice by id.
func (c *Client) DeleteVoice(ctx context.Context, voiceID string) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint+"/voices/"+url.PathEscape(voiceID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(ctx, httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// do sends the request with credentials and converts transport failures and
// non-2xx statuses into package errors. On success the caller owns the body.
func (c *Client) do(ctx context.Context, httpReq *http.Request) (*http.Response, error) {
	httpReq.Header.Set(headerAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
	}

	return resp, nil
}
