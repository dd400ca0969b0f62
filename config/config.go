package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline. It is loaded once and
// passed explicitly to constructors; nothing reads it from globals.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Memory    MemoryConfig    `yaml:"memory"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PipelineConfig tunes retrieval and ranking.
type PipelineConfig struct {
	Alpha            float64 `yaml:"alpha"`              // semantic/facet blend in [0,1]
	Limit            int     `yaml:"limit"`              // max candidates per query
	HalfLifeWeeks    float64 `yaml:"half_life_weeks"`    // <= 0 disables decay
	UtilityWeight    float64 `yaml:"utility_weight"`     // utility blend weight in [0,1]
	MaxRetries       int     `yaml:"max_retries"`        // retries after the first attempt
	RetryBackoffMS   int     `yaml:"retry_backoff_ms"`   // first backoff, doubles per retry
	SessionTimeoutMS int     `yaml:"session_timeout_ms"` // overall session deadline
	StreamBuffer     int     `yaml:"stream_buffer"`      // per-session event backlog
}

// EmbeddingConfig holds embedding collaborator configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "mock"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	BaseURL   string `yaml:"base_url"`    // override for OpenAI-compatible endpoints
	APIKeyEnv string `yaml:"api_key_env"` // environment variable for the API key
	Dimension int    `yaml:"dimension"`
}

// SynthesisConfig holds answer-synthesis collaborator configuration.
type SynthesisConfig struct {
	Provider    string `yaml:"provider"` // "openai", "extractive"
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxEvidence int    `yaml:"max_evidence"`
}

// MemoryConfig selects the shared memory store backend.
type MemoryConfig struct {
	Backend   string `yaml:"backend"` // "bolt", "redis", "memory"
	RedisAddr string `yaml:"redis_addr"`
}

// ServerConfig holds the SSE server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Alpha:            0.5,
			Limit:            10,
			HalfLifeWeeks:    6,
			UtilityWeight:    0.3,
			MaxRetries:       2,
			RetryBackoffMS:   200,
			SessionTimeoutMS: 60000,
			StreamBuffer:     64,
		},
		Embedding: EmbeddingConfig{
			Provider:  "mock",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 256,
		},
		Synthesis: SynthesisConfig{
			Provider:    "extractive",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxEvidence: 3,
		},
		Memory: MemoryConfig{
			Backend:   "bolt",
			RedisAddr: "localhost:6379",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// RetryBackoff returns the first retry backoff as a duration.
func (c PipelineConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// SessionTimeout returns the overall session deadline as a duration.
func (c PipelineConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMS) * time.Millisecond
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragpipe.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragpipe.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragpipe", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".ragpipe", "index.db")
}

// MemoryDBPath returns the path to the memory database.
func MemoryDBPath(dir string) string {
	return filepath.Join(dir, ".ragpipe", "memory.db")
}

// EnsureDataDir ensures the .ragpipe directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".ragpipe"), 0755)
}
