// Package voiceclone runs the clone-then-speak workflow against the remote
// voice provider: create an ephemeral voice from a sample, synthesize the
// target text with it, and always delete it afterwards.
package voiceclone

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cheongeum/cheongeum-server/internal/config"
	"github.com/cheongeum/cheongeum-server/internal/elevenlabs"
	"github.com/cheongeum/cheongeum-server/internal/metrics"
)

const defaultModelID = "eleven_multilingual_v2"

// Outcome labels reported to metrics.
const (
	OutcomeSuccess        = "success"
	OutcomeConfigError    = "config_error"
	OutcomeCreationError  = "creation_error"
	OutcomeSynthesisError = "synthesis_error"
)

// voiceSettings is fixed for every clone; callers cannot tune it.
var voiceSettings = elevenlabs.VoiceSettings{
	Stability:       0.5,
	SimilarityBoost: 0.8,
	Style:           0.5,
}

// Provider is the subset of the remote provider used by the workflow.
type Provider interface {
	AddVoice(ctx context.Context, name string, sample []byte, filename, mimeType string) (string, error)
	Synthesize(ctx context.Context, voiceID, text string, opts elevenlabs.SynthesisOptions) ([]byte, error)
	DeleteVoice(ctx context.Context, voiceID string) error
}

var _ Provider = (*elevenlabs.Client)(nil)

// Request is the input of a single clone run.
type Request struct {
	Audio    []byte
	Filename string
	MIMEType string
	Text     string
}

// Resource is an ephemeral provider voice owned by exactly one run.
type Resource struct {
	ID        string
	CreatedAt time.Time
}

// Result carries the synthesized audio and the id of the voice that produced it.
type Result struct {
	Audio   []byte
	VoiceID string
}

// Manager drives the workflow. It holds no per-request state and is safe for
// concurrent use.
type Manager struct {
	cfg      *config.ElevenLabsConfig
	provider Provider
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewManager creates a Manager. cfg is read on every call so the credential
// check reflects the current process configuration.
func NewManager(cfg *config.ElevenLabsConfig, provider Provider, m *metrics.Metrics, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		provider: provider,
		metrics:  m,
		logger:   logger.With().Str("component", "voiceclone").Logger(),
		now:      time.Now,
	}
}

// CloneAndSynthesize clones the voice in req.Audio and speaks req.Text with it.
// It returns audio or one of *ConfigError, *ResourceCreationError and
// *SynthesisError. Whenever a voice was created it is deleted exactly once
// before this method returns, even if ctx is cancelled.
func (m *Manager) CloneAndSynthesize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(m.cfg.APIKey) == "" {
		m.metrics.ObserveClone(OutcomeConfigError)
		return nil, &ConfigError{Setting: "elevenlabs.api_key"}
	}

	res, err := m.acquire(ctx, req)
	if err != nil {
		m.metrics.ObserveClone(OutcomeCreationError)
		return nil, err
	}
	defer m.release(ctx, res)

	audio, err := m.provider.Synthesize(ctx, res.ID, req.Text, elevenlabs.SynthesisOptions{
		ModelID:  m.modelID(),
		Settings: voiceSettings,
	})
	if err == nil && len(audio) == 0 {
		err = errEmptyAudio
	}
	if err != nil {
		m.metrics.ObserveClone(OutcomeSynthesisError)
		return nil, &SynthesisError{VoiceID: res.ID, Err: err}
	}

	m.metrics.ObserveClone(OutcomeSuccess)
	return &Result{Audio: audio, VoiceID: res.ID}, nil
}

func (m *Manager) acquire(ctx context.Context, req Request) (*Resource, error) {
	now := m.now()
	name := fmt.Sprintf("clone-%d-%s", now.UnixMilli(), uuid.NewString()[:8])

	id, err := m.provider.AddVoice(ctx, name, req.Audio, req.Filename, req.MIMEType)
	if err != nil {
		return nil, &ResourceCreationError{Err: err}
	}

	m.metrics.VoiceAcquired()
	m.logger.Debug().Str("voice_id", id).Str("voice_name", name).Msg("Ephemeral voice created")

	return &Resource{ID: id, CreatedAt: now}, nil
}

// release deletes the voice. It detaches from ctx cancellation so an abandoned
// request still frees the provider slot, and it never reports failure.
func (m *Manager) release(ctx context.Context, res *Resource) {
	cleanupCtx := context.WithoutCancel(ctx)
	if m.cfg.CleanupTimeout > 0 {
		var cancel context.CancelFunc
		cleanupCtx, cancel = context.WithTimeout(cleanupCtx, m.cfg.CleanupTimeout)
		defer cancel()
	}

	err := m.provider.DeleteVoice(cleanupCtx, res.ID)
	m.metrics.VoiceReleased(err != nil)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("voice_id", res.ID).
			Dur("held_for", m.now().Sub(res.CreatedAt)).
			Msg("Failed to delete ephemeral voice")
		return
	}

	m.logger.Debug().Str("voice_id", res.ID).Msg("Ephemeral voice deleted")
}

func (m *Manager) modelID() string {
	if m.cfg.ModelID != "" {
		return m.cfg.ModelID
	}
	return defaultModelID
}
