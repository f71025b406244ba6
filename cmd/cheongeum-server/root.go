package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cheongeum/cheongeum-server/internal/config"
)

var (
	cfgFile string

	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cheongeum-server",
	Short: "Voice-phishing training API server",
	Long: `cheongeum-server serves the voice-phishing training API: account
management, voice sample uploads, one-shot voice cloning and the simulated
scam call itself.

Start the server:
  cheongeum-server

Start with custom settings:
  cheongeum-server --listen 0.0.0.0:8080 --simulator-enabled --simulator-url http://localhost:8091

Use environment variables:
  CHEONGEUM_LISTEN=0.0.0.0:8080 ELEVENLABS_API_KEY=... DATABASE_URL=postgres://... cheongeum-server`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cheongeum-server %s\n", Version)
		fmt.Printf("  Commit:     %s\n", Commit)
		fmt.Printf("  Build Date: %s\n", BuildDate)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

// bindings maps config keys to flags and their primary environment variable.
var bindings = []struct {
	key  string
	flag string
	env  string
}{
	{"server.listen", "listen", "CHEONGEUM_LISTEN"},
	{"server.read_timeout", "read-timeout", "CHEONGEUM_READ_TIMEOUT"},
	{"server.write_timeout", "write-timeout", "CHEONGEUM_WRITE_TIMEOUT"},
	{"server.max_upload_bytes", "max-upload-bytes", "CHEONGEUM_MAX_UPLOAD_BYTES"},
	{"elevenlabs.base_url", "elevenlabs-url", "CHEONGEUM_ELEVENLABS_BASE_URL"},
	{"elevenlabs.model_id", "elevenlabs-model", "CHEONGEUM_ELEVENLABS_MODEL_ID"},
	{"elevenlabs.timeout", "elevenlabs-timeout", "CHEONGEUM_ELEVENLABS_TIMEOUT"},
	{"simulator.enabled", "simulator-enabled", "CHEONGEUM_SIMULATOR_ENABLED"},
	{"simulator.url", "simulator-url", "CHEONGEUM_SIMULATOR_URL"},
	{"simulator.timeout", "simulator-timeout", "CHEONGEUM_SIMULATOR_TIMEOUT"},
	{"simulator.encoding", "simulator-encoding", "CHEONGEUM_SIMULATOR_ENCODING"},
	{"storage.bucket", "s3-bucket", "CHEONGEUM_STORAGE_BUCKET"},
	{"storage.region", "s3-region", "CHEONGEUM_STORAGE_REGION"},
	{"storage.endpoint", "s3-endpoint", "CHEONGEUM_STORAGE_ENDPOINT"},
	{"database.run_migrations", "migrate", "CHEONGEUM_DATABASE_RUN_MIGRATIONS"},
	{"feedback.model", "feedback-model", "CHEONGEUM_FEEDBACK_MODEL"},
	{"metrics.enabled", "metrics", "CHEONGEUM_METRICS_ENABLED"},
	{"logging.level", "log-level", "CHEONGEUM_LOG_LEVEL"},
	{"logging.format", "log-format", "CHEONGEUM_LOG_FORMAT"},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.Default()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.Flags().String("listen", defaults.Server.Listen, "Server listen address")
	rootCmd.Flags().Duration("read-timeout", defaults.Server.ReadTimeout, "HTTP read timeout")
	rootCmd.Flags().Duration("write-timeout", defaults.Server.WriteTimeout, "HTTP write timeout")
	rootCmd.Flags().Int64("max-upload-bytes", defaults.Server.MaxUploadBytes, "Maximum voice upload size")

	rootCmd.Flags().String("elevenlabs-url", defaults.ElevenLabs.BaseURL, "ElevenLabs API base URL")
	rootCmd.Flags().String("elevenlabs-model", defaults.ElevenLabs.ModelID, "ElevenLabs synthesis model")
	rootCmd.Flags().Duration("elevenlabs-timeout", defaults.ElevenLabs.Timeout, "ElevenLabs request timeout")

	rootCmd.Flags().Bool("simulator-enabled", defaults.Simulator.Enabled, "Use the live conversation simulator")
	rootCmd.Flags().String("simulator-url", defaults.Simulator.URL, "Conversation simulator URL")
	rootCmd.Flags().Duration("simulator-timeout", defaults.Simulator.Timeout, "Conversation simulator timeout")
	rootCmd.Flags().String("simulator-encoding", defaults.Simulator.Encoding, "Simulator wire encoding (json, msgpack)")

	rootCmd.Flags().String("s3-bucket", "", "S3 bucket for voice uploads (empty = uploads disabled)")
	rootCmd.Flags().String("s3-region", "", "S3 region")
	rootCmd.Flags().String("s3-endpoint", "", "S3-compatible endpoint override")

	rootCmd.Flags().Bool("migrate", defaults.Database.RunMigrations, "Apply database migrations on start")
	rootCmd.Flags().String("feedback-model", defaults.Feedback.Model, "Model used for session feedback")
	rootCmd.Flags().Bool("metrics", defaults.Metrics.Enabled, "Expose prometheus metrics")

	rootCmd.Flags().String("log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", defaults.Logging.Format, "Log format (json, text)")

	bindFlags()

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func bindFlags() {
	for _, b := range bindings {
		flag := rootCmd.Flags().Lookup(b.flag)
		if flag == nil {
			continue
		}
		_ = viper.BindPFlag(b.key, flag)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CHEONGEUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, b := range bindings {
		_ = viper.BindEnv(b.key, b.env)
	}

	bindFlags()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig layers defaults, environment, config file and flags, in that
// order of increasing precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	setString("server.listen", &cfg.Server.Listen)
	setDuration("server.read_timeout", &cfg.Server.ReadTimeout)
	setDuration("server.write_timeout", &cfg.Server.WriteTimeout)
	setInt64("server.max_upload_bytes", &cfg.Server.MaxUploadBytes)

	setString("elevenlabs.api_key", &cfg.ElevenLabs.APIKey)
	setString("elevenlabs.base_url", &cfg.ElevenLabs.BaseURL)
	setString("elevenlabs.model_id", &cfg.ElevenLabs.ModelID)
	setDuration("elevenlabs.timeout", &cfg.ElevenLabs.Timeout)
	setDuration("elevenlabs.cleanup_timeout", &cfg.ElevenLabs.CleanupTimeout)

	setBool("simulator.enabled", &cfg.Simulator.Enabled)
	setString("simulator.url", &cfg.Simulator.URL)
	setDuration("simulator.timeout", &cfg.Simulator.Timeout)
	setString("simulator.encoding", &cfg.Simulator.Encoding)

	setString("storage.bucket", &cfg.Storage.Bucket)
	setString("storage.prefix", &cfg.Storage.Prefix)
	setString("storage.region", &cfg.Storage.Region)
	setString("storage.endpoint", &cfg.Storage.Endpoint)
	setString("storage.public_base_url", &cfg.Storage.PublicBaseURL)

	setString("database.url", &cfg.Database.URL)
	if viper.IsSet("database.max_conns") {
		cfg.Database.MaxConns = viper.GetInt32("database.max_conns")
	}
	setBool("database.run_migrations", &cfg.Database.RunMigrations)

	setString("auth.token_secret", &cfg.Auth.TokenSecret)
	setDuration("auth.token_ttl", &cfg.Auth.TokenTTL)
	setString("auth.cookie_name", &cfg.Auth.CookieName)

	setString("feedback.openai_api_key", &cfg.Feedback.OpenAIAPIKey)
	setString("feedback.openai_base_url", &cfg.Feedback.OpenAIBaseURL)
	setString("feedback.model", &cfg.Feedback.Model)

	setBool("metrics.enabled", &cfg.Metrics.Enabled)
	setString("metrics.path", &cfg.Metrics.Path)

	setString("logging.level", &cfg.Logging.Level)
	setString("logging.format", &cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(key string, dst *string) {
	if viper.IsSet(key) {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if viper.IsSet(key) {
		if v := viper.GetDuration(key); v != 0 {
			*dst = v
		}
	}
}

func setInt64(key string, dst *int64) {
	if viper.IsSet(key) {
		if v := viper.GetInt64(key); v != 0 {
			*dst = v
		}
	}
}

func setBool(key string, dst *bool) {
	if viper.IsSet(key) {
		*dst = viper.GetBool(key)
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
