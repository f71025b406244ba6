package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" json:"server"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs" json:"elevenlabs"`
	Simulator  SimulatorConfig  `mapstructure:"simulator" json:"simulator"`
	Storage    StorageConfig    `mapstructure:"storage" json:"storage"`
	Database   DatabaseConfig   `mapstructure:"database" json:"database"`
	Auth       AuthConfig       `mapstructure:"auth" json:"auth"`
	Feedback   FeedbackConfig   `mapstructure:"feedback" json:"feedback"`
	Logging    LoggingConfig    `mapstructure:"logging" json:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics" json:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen         string        `mapstructure:"listen" json:"listen"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`
}

// ElevenLabsConfig holds the voice cloning provider settings.
// An empty APIKey is allowed at startup; clone requests fail fast until it is set.
type ElevenLabsConfig struct {
	APIKey         string        `mapstructure:"api_key" json:"api_key"`
	BaseURL        string        `mapstructure:"base_url" json:"base_url"`
	ModelID        string        `mapstructure:"model_id" json:"model_id"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout"`
	CleanupTimeout time.Duration `mapstructure:"cleanup_timeout" json:"cleanup_timeout"`
}

// SimulatorConfig holds the conversational simulator settings.
type SimulatorConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled"`
	URL      string        `mapstructure:"url" json:"url"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
	Encoding string        `mapstructure:"encoding" json:"encoding"`
}

// StorageConfig holds object storage settings for uploaded voice samples.
type StorageConfig struct {
	Bucket        string `mapstructure:"bucket" json:"bucket"`
	Prefix        string `mapstructure:"prefix" json:"prefix"`
	Region        string `mapstructure:"region" json:"region"`
	Endpoint      string `mapstructure:"endpoint" json:"endpoint"`
	PublicBaseURL string `mapstructure:"public_base_url" json:"public_base_url"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL           string `mapstructure:"url" json:"url"`
	MaxConns      int32  `mapstructure:"max_conns" json:"max_conns"`
	RunMigrations bool   `mapstructure:"run_migrations" json:"run_migrations"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret" json:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" json:"token_ttl"`
	CookieName  string        `mapstructure:"cookie_name" json:"cookie_name"`
}

// FeedbackConfig holds post-session analysis settings.
type FeedbackConfig struct {
	OpenAIAPIKey  string `mapstructure:"openai_api_key" json:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`
	Model         string `mapstructure:"model" json:"model"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// MetricsConfig holds prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:         "0.0.0.0:8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   120 * time.Second,
			MaxUploadBytes: 15 << 20,
		},
		ElevenLabs: ElevenLabsConfig{
			BaseURL:        "https://api.elevenlabs.io/v1",
			ModelID:        "eleven_multilingual_v2",
			Timeout:        60 * time.Second,
			CleanupTimeout: 10 * time.Second,
		},
		Simulator: SimulatorConfig{
			Enabled:  false,
			URL:      "http://127.0.0.1:8091",
			Timeout:  60 * time.Second,
			Encoding: "json",
		},
		Storage: StorageConfig{
			Prefix: "uploads/voice",
		},
		Database: DatabaseConfig{
			MaxConns:      10,
			RunMigrations: true,
		},
		Auth: AuthConfig{
			TokenTTL:   7 * 24 * time.Hour,
			CookieName: "cheongeum.sid",
		},
		Feedback: FeedbackConfig{
			Model: "gpt-4o-mini",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen must be set")
	}
	switch c.Simulator.Encoding {
	case "json", "msgpack":
	default:
		return errors.New("simulator.encoding must be json or msgpack")
	}
	if c.Simulator.Enabled && c.Simulator.URL == "" {
		return errors.New("simulator.url must be set when the simulator is enabled")
	}
	return nil
}

// Load returns a Config populated with defaults and environment overrides.
func Load() (*Config, error) {
	return LoadWithDefaults(nil)
}

// LoadWithDefaults loads configuration using defaults and optional overrides map (for tests).
func LoadWithDefaults(overrides map[string]interface{}) (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)

	if overrides != nil {
		raw, err := json.Marshal(overrides)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := firstEnv("CHEONGEUM_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := firstEnv("CHEONGEUM_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY"); v != "" {
		cfg.ElevenLabs.APIKey = v
	}
	if v := firstEnv("CHEONGEUM_ELEVENLABS_BASE_URL"); v != "" {
		cfg.ElevenLabs.BaseURL = v
	}
	if v := firstEnv("CHEONGEUM_ELEVENLABS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ElevenLabs.Timeout = d
		}
	}
	if v := firstEnv("CHEONGEUM_SIMULATOR_ENABLED", "SIMULATOR_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Simulator.Enabled = b
		}
	}
	if v := firstEnv("CHEONGEUM_SIMULATOR_URL"); v != "" {
		cfg.Simulator.URL = v
	}
	if v := firstEnv("CHEONGEUM_STORAGE_BUCKET", "AWS_S3_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := firstEnv("CHEONGEUM_STORAGE_PREFIX", "AWS_S3_PREFIX"); v != "" {
		cfg.Storage.Prefix = v
	}
	if v := firstEnv("CHEONGEUM_STORAGE_REGION", "AWS_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := firstEnv("CHEONGEUM_STORAGE_PUBLIC_BASE_URL", "AWS_S3_PUBLIC_BASE_URL"); v != "" {
		cfg.Storage.PublicBaseURL = v
	}
	if v := firstEnv("CHEONGEUM_DATABASE_URL", "DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := firstEnv("CHEONGEUM_TOKEN_SECRET", "SESSION_SECRET"); v != "" {
		cfg.Auth.TokenSecret = v
	}
	if v := firstEnv("CHEONGEUM_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.Feedback.OpenAIAPIKey = v
	}
	if v := firstEnv("CHEONGEUM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := firstEnv("CHEONGEUM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
