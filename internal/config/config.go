// ABOUTME: Centralized configuration for the voiceauth CLI and MCP server
// ABOUTME: Defaults, optional YAML file, then environment variables, with validation
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendCharm  = "charm"
)

// Embedding providers
const (
	ProviderSherpa = "sherpa"
	ProviderOpenAI = "openai"
)

// Long sample policies
const (
	PolicyTruncate = "truncate"
	PolicyReject   = "reject"
)

// Config holds all configuration for voiceauth
type Config struct {
	DefaultSpeakerID string        `yaml:"default_speaker_id"`
	LogLevel         string        `yaml:"log_level"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`

	Store        StoreConfig        `yaml:"store"`
	Audio        AudioConfig        `yaml:"audio"`
	Enrollment   EnrollmentConfig   `yaml:"enrollment"`
	Verification VerificationConfig `yaml:"verification"`
	Provider     ProviderConfig     `yaml:"provider"`
}

// StoreConfig selects and configures the voiceprint store
type StoreConfig struct {
	Backend string `yaml:"backend"`

	// Dir is the root for one-file-per-speaker storage
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
	BadgerDir  string `yaml:"badger_dir"`

	CharmHost     string `yaml:"charm_host"`
	CharmDB       string `yaml:"charm_db"`
	CharmAutoSync bool   `yaml:"charm_auto_sync"`
}

// AudioConfig holds sample validation limits
type AudioConfig struct {
	MinEnrollSeconds float64 `yaml:"min_enroll_seconds"`
	MinVerifySeconds float64 `yaml:"min_verify_seconds"`
	// MaxSampleSeconds of 0 disables the upper bound
	MaxSampleSeconds float64 `yaml:"max_sample_seconds"`
	LongSamplePolicy string  `yaml:"long_sample_policy"` // "truncate" or "reject"
}

// EnrollmentConfig holds enrollment limits
type EnrollmentConfig struct {
	MaxSamples int `yaml:"max_samples"`
}

// VerificationConfig holds the decision threshold
type VerificationConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// ProviderConfig selects and configures the embedding provider
type ProviderConfig struct {
	Kind string `yaml:"kind"` // "sherpa" or "openai"
	// Dimension pins D; 0 accepts whatever the provider reports
	Dimension int `yaml:"dimension"`

	// sherpa-onnx speaker embedding model
	ModelPath  string `yaml:"model_path"`
	NumThreads int    `yaml:"num_threads"`
	Device     string `yaml:"device"`

	// OpenAI-compatible embeddings endpoint
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`

	Timeout        time.Duration `yaml:"timeout"`
	InitRetries    int           `yaml:"init_retries"`
	InitRetryDelay time.Duration `yaml:"init_retry_delay"`
}

// DataDir returns the default data directory following XDG base directory conventions.
// XDG_DATA_HOME is re-read so tests can override it.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "voiceauth")
}

// DefaultConfigPath returns the default YAML config file path
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = xdg.ConfigHome
	}
	return filepath.Join(configHome, "voiceauth", "config.yaml")
}

// Default returns a Config with sensible default values
func Default() *Config {
	dataDir := DataDir()
	return &Config{
		DefaultSpeakerID: "owner",
		LogLevel:         "info",
		OperationTimeout: 2 * time.Minute,
		Store: StoreConfig{
			Backend:       BackendFile,
			Dir:           filepath.Join(dataDir, "voiceprints"),
			SQLitePath:    filepath.Join(dataDir, "voiceprints.db"),
			BadgerDir:     filepath.Join(dataDir, "badger"),
			CharmHost:     "cloud.charm.sh",
			CharmDB:       "voiceauth",
			CharmAutoSync: true,
		},
		Audio: AudioConfig{
			MinEnrollSeconds: 1.0,
			MinVerifySeconds: 0.5,
			MaxSampleSeconds: 30,
			LongSamplePolicy: PolicyTruncate,
		},
		Enrollment: EnrollmentConfig{
			MaxSamples: 20,
		},
		Verification: VerificationConfig{
			Threshold: 0.75,
		},
		Provider: ProviderConfig{
			Kind:           ProviderSherpa,
			ModelPath:      filepath.Join(dataDir, "models", "speaker-embedding.onnx"),
			NumThreads:     1,
			Device:         "cpu",
			Model:          "speaker-embedding",
			Timeout:        30 * time.Second,
			InitRetries:    3,
			InitRetryDelay: 500 * time.Millisecond,
		},
	}
}

// Load reads configuration from environment variables on top of defaults
func Load() (*Config, error) {
	cfg := Default()
	applyEnv(cfg)
	return cfg, cfg.Validate()
}

// LoadFile reads a YAML config file, then applies environment overrides.
// Missing fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Store.Dir = expandTilde(cfg.Store.Dir)
	cfg.Store.SQLitePath = expandTilde(cfg.Store.SQLitePath)
	cfg.Store.BadgerDir = expandTilde(cfg.Store.BadgerDir)
	cfg.Provider.ModelPath = expandTilde(cfg.Provider.ModelPath)

	applyEnv(cfg)
	return cfg, cfg.Validate()
}

// Resolve loads the explicit config file if given, else the default config
// file if it exists, else environment and defaults only
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if _, err := os.Stat(DefaultConfigPath()); err == nil {
		return LoadFile(DefaultConfigPath())
	}
	return Load()
}

func applyEnv(cfg *Config) {
	cfg.DefaultSpeakerID = getEnv("VOICEAUTH_DEFAULT_SPEAKER", cfg.DefaultSpeakerID)
	cfg.LogLevel = getEnv("VOICEAUTH_LOG_LEVEL", cfg.LogLevel)
	cfg.OperationTimeout = getEnvDuration("VOICEAUTH_TIMEOUT", cfg.OperationTimeout)

	cfg.Store.Backend = getEnv("VOICEAUTH_STORE", cfg.Store.Backend)
	cfg.Store.Dir = getEnv("VOICEAUTH_VOICEPRINTS_DIR", cfg.Store.Dir)
	cfg.Store.SQLitePath = getEnv("VOICEAUTH_SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.BadgerDir = getEnv("VOICEAUTH_BADGER_DIR", cfg.Store.BadgerDir)
	cfg.Store.CharmHost = getEnv("CHARM_HOST", cfg.Store.CharmHost)
	cfg.Store.CharmDB = getEnv("CHARM_DB", cfg.Store.CharmDB)
	cfg.Store.CharmAutoSync = getEnvBool("CHARM_AUTO_SYNC", cfg.Store.CharmAutoSync)

	cfg.Audio.MinEnrollSeconds = getEnvFloat("VOICEAUTH_MIN_ENROLL_SECONDS", cfg.Audio.MinEnrollSeconds)
	cfg.Audio.MinVerifySeconds = getEnvFloat("VOICEAUTH_MIN_VERIFY_SECONDS", cfg.Audio.MinVerifySeconds)
	cfg.Audio.MaxSampleSeconds = getEnvFloat("VOICEAUTH_MAX_SAMPLE_SECONDS", cfg.Audio.MaxSampleSeconds)
	cfg.Audio.LongSamplePolicy = getEnv("VOICEAUTH_LONG_SAMPLE_POLICY", cfg.Audio.LongSamplePolicy)

	cfg.Enrollment.MaxSamples = getEnvInt("VOICEAUTH_MAX_ENROLL_SAMPLES", cfg.Enrollment.MaxSamples)
	cfg.Verification.Threshold = getEnvFloat("VOICEAUTH_THRESHOLD", cfg.Verification.Threshold)

	cfg.Provider.Kind = getEnv("VOICEAUTH_PROVIDER", cfg.Provider.Kind)
	cfg.Provider.Dimension = getEnvInt("VOICEAUTH_EMBEDDING_DIM", cfg.Provider.Dimension)
	cfg.Provider.ModelPath = getEnv("VOICEAUTH_MODEL_PATH", cfg.Provider.ModelPath)
	cfg.Provider.NumThreads = getEnvInt("VOICEAUTH_MODEL_THREADS", cfg.Provider.NumThreads)
	cfg.Provider.Device = getEnv("VOICEAUTH_MODEL_DEVICE", cfg.Provider.Device)
	cfg.Provider.BaseURL = getEnv("VOICEAUTH_EMBEDDING_URL", cfg.Provider.BaseURL)
	cfg.Provider.APIKey = getEnv("VOICEAUTH_EMBEDDING_API_KEY", getEnv("OPENAI_API_KEY", cfg.Provider.APIKey))
	cfg.Provider.Model = getEnv("VOICEAUTH_EMBEDDING_MODEL", cfg.Provider.Model)
	cfg.Provider.Timeout = getEnvDuration("VOICEAUTH_PROVIDER_TIMEOUT", cfg.Provider.Timeout)
	cfg.Provider.InitRetries = getEnvInt("VOICEAUTH_PROVIDER_INIT_RETRIES", cfg.Provider.InitRetries)
	cfg.Provider.InitRetryDelay = getEnvDuration("VOICEAUTH_PROVIDER_INIT_DELAY", cfg.Provider.InitRetryDelay)
}

// Validate checks the config for invalid values
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DefaultSpeakerID) == "" {
		return fmt.Errorf("default speaker id must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store dir must not be empty for the file backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path must not be empty for the sqlite backend")
		}
	case BackendBadger:
		if c.Store.BadgerDir == "" {
			return fmt.Errorf("badger dir must not be empty for the badger backend")
		}
	case BackendCharm:
		if c.Store.CharmDB == "" {
			return fmt.Errorf("charm db must not be empty for the charm backend")
		}
	default:
		return fmt.Errorf("store backend must be file, sqlite, badger, or charm, got %q", c.Store.Backend)
	}

	if c.Audio.MinEnrollSeconds <= 0 || c.Audio.MinVerifySeconds <= 0 {
		return fmt.Errorf("minimum sample durations must be > 0")
	}
	if c.Audio.MaxSampleSeconds < 0 {
		return fmt.Errorf("max sample seconds must be >= 0, got %f", c.Audio.MaxSampleSeconds)
	}
	if c.Audio.MaxSampleSeconds > 0 && c.Audio.MaxSampleSeconds < c.Audio.MinEnrollSeconds {
		return fmt.Errorf("max sample seconds (%.2f) is below the enrollment minimum (%.2f)",
			c.Audio.MaxSampleSeconds, c.Audio.MinEnrollSeconds)
	}
	switch c.Audio.LongSamplePolicy {
	case PolicyTruncate, PolicyReject:
	default:
		return fmt.Errorf("long sample policy must be %q or %q, got %q", PolicyTruncate, PolicyReject, c.Audio.LongSamplePolicy)
	}

	if c.Enrollment.MaxSamples < 1 {
		return fmt.Errorf("max enrollment samples must be >= 1, got %d", c.Enrollment.MaxSamples)
	}

	if math.IsNaN(c.Verification.Threshold) || c.Verification.Threshold < -1 || c.Verification.Threshold > 1 {
		return fmt.Errorf("threshold must be within [-1, 1], got %f", c.Verification.Threshold)
	}

	switch c.Provider.Kind {
	case ProviderSherpa:
		if c.Provider.ModelPath == "" {
			return fmt.Errorf("model path must not be empty for the sherpa provider")
		}
	case ProviderOpenAI:
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("embedding url must not be empty for the openai provider")
		}
	default:
		return fmt.Errorf("provider must be %q or %q, got %q", ProviderSherpa, ProviderOpenAI, c.Provider.Kind)
	}
	if c.Provider.Dimension < 0 {
		return fmt.Errorf("embedding dimension must be >= 0, got %d", c.Provider.Dimension)
	}
	if c.Provider.InitRetries < 0 || c.Provider.InitRetries > 10 {
		return fmt.Errorf("provider init retries must be 0-10, got %d", c.Provider.InitRetries)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// expandTilde replaces a leading ~ with the user's home directory
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
