// Package config loads charforge configuration from charforge.yaml,
// merging file values over defaults and environment overrides over both.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all charforge configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Generative backend configuration
	Backend BackendConfig `yaml:"backend"`

	// Pipeline retry budgets and caps
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Working directory and static input locations
	Paths PathsConfig `yaml:"paths"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the text-generation backend.
type BackendConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`       // default tier, short fields
	LargeModel string `yaml:"large_model"` // narrative, definitions, dialogues
	Timeout    string `yaml:"timeout"`

	// Per-request retry budget inside the client
	MaxAttempts int    `yaml:"max_attempts"`
	RetryDelay  string `yaml:"retry_delay"`
}

// PipelineConfig configures the constraint-retry loops and dialogue growth.
type PipelineConfig struct {
	// Attempts per round for constrained fields (slogan, bio, greeting, tags)
	AttemptsPerRound int `yaml:"attempts_per_round"`

	// Dialogue generation batch size and accumulation cap
	DialogueBatchSize int `yaml:"dialogue_batch_size"`
	DialogueSoftCap   int `yaml:"dialogue_soft_cap"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	WorkDir       string `yaml:"work_dir"`       // checkpoint artifacts
	QuestionsFile string `yaml:"questions_file"` // base fact questions
	TemplatesDir  string `yaml:"templates_dir"`  // attribute templates
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "charforge",
		Version: "1.0.0",
		Backend: BackendConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama3-70b-8192",
			LargeModel:  "llama-3.3-70b-versatile",
			Timeout:     "120s",
			MaxAttempts: 5,
			RetryDelay:  "1s",
		},
		Pipeline: PipelineConfig{
			AttemptsPerRound:  5,
			DialogueBatchSize: 20,
			DialogueSoftCap:   100,
		},
		Paths: PathsConfig{
			WorkDir:       "temp",
			QuestionsFile: "questions.json",
			TemplatesDir:  "templates",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, merging over defaults.
// A missing file is not an error: defaults plus env overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variables on top of file values.
// CHARFORGE_API_KEY wins over GROQ_API_KEY; both win over the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHARFORGE_API_KEY"); v != "" {
		c.Backend.APIKey = v
	} else if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("CHARFORGE_MODEL"); v != "" {
		c.Backend.Model = v
	}
	if v := os.Getenv("CHARFORGE_WORKDIR"); v != "" {
		c.Paths.WorkDir = v
	}
}

// TimeoutDuration parses the backend timeout, falling back to 120s.
func (c *BackendConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// RetryDelayDuration parses the retry delay, falling back to 1s.
func (c *BackendConfig) RetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// Validate checks settings that have no sensible fallback.
func (c *Config) Validate() error {
	if c.Backend.APIKey == "" {
		return fmt.Errorf("backend api_key not configured (set CHARFORGE_API_KEY or GROQ_API_KEY)")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url not configured")
	}
	if c.Pipeline.AttemptsPerRound <= 0 {
		return fmt.Errorf("pipeline attempts_per_round must be positive")
	}
	return nil
}
