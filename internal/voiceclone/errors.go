package voiceclone

import (
	"errors"
	"fmt"
)

// errEmptyAudio marks a synthesis call that succeeded without returning audio.
var errEmptyAudio = errors.New("provider returned empty audio")

// ConfigError indicates a required provider setting is missing. No remote
// call was made.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("voice clone misconfigured: %s is not set", e.Setting)
}

// ResourceCreationError indicates the provider rejected the voice sample. No
// voice exists, so nothing was cleaned up.
type ResourceCreationError struct {
	Err error
}

func (e *ResourceCreationError) Error() string {
	return fmt.Sprintf("voice creation failed: %v", e.Err)
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

// SynthesisError indicates speech synthesis failed after the voice was
// created. The voice has already been released when this is returned.
type SynthesisError struct {
	VoiceID string
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis with voice %s failed: %v", e.VoiceID, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsResourceCreationError checks if an error is a ResourceCreationError.
func IsResourceCreationError(err error) bool {
	var re *ResourceCreationError
	return errors.As(err, &re)
}

// IsSynthesisError checks if an error is a SynthesisError.
func IsSynthesisError(err error) bool {
	var se *SynthesisError
	return errors.As(err, &se)
}
