// Package config assembles process configuration. Values are resolved
// (lowest to highest priority) from defaults, an optional YAML file, an
// optional .env file and the environment, then validated once.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"feedback_agent/llm"
	"feedback_agent/logger"
	"feedback_agent/pipeline"
	"feedback_agent/publisher"
	"feedback_agent/server"
	"feedback_agent/storage"
)

// ErrInvalidConfig wraps every load or validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultEnvFile is read when present and no other env file is named.
const DefaultEnvFile = ".env"

// Config is the full process configuration.
type Config struct {
	LLM      LLMConfig        `yaml:"llm" json:"llm"`
	Pipeline pipeline.Config  `yaml:"pipeline" json:"pipeline"`
	Store    storage.Config   `yaml:"store" json:"store"`
	Log      logger.Config    `yaml:"log" json:"log"`
	Server   server.Config    `yaml:"server" json:"server"`
	Publish  publisher.Config `yaml:"publish" json:"publish"`
}

// LLMConfig configures the OpenAI-compatible backend.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key" json:"-" env:"OPENAI_API_KEY"`
	Model       string        `yaml:"model" json:"model" env:"OPENAI_MODEL"`
	BaseURL     string        `yaml:"base_url" json:"base_url" env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	HTTPReferer string        `yaml:"http_referer" json:"http_referer" env:"OPENROUTER_HTTP_REFERER"`
	XTitle      string        `yaml:"x_title" json:"x_title" env:"OPENROUTER_X_TITLE"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" env:"OPENAI_TIMEOUT"`
	// Mock swaps the backend for canned responses.
	Mock        bool          `yaml:"mock" json:"mock" env:"FEEDBACK_MOCK_LLM"`
}

// Settings converts the config into backend settings.
func (c LLMConfig) Settings() llm.Settings {
	return llm.Settings{
		APIKey:      c.APIKey,
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		HTTPReferer: c.HTTPReferer,
		XTitle:      c.XTitle,
		Timeout:     c.Timeout,
	}
}

// Client builds the configured backend, or nil when none is configured.
func (c LLMConfig) Client() (llm.Client, error) {
	if c.Mock {
		return llm.MockLLM{}, nil
	}
	return llm.NewFromSettings(c.Settings())
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Model:   llm.DefaultModel,
			BaseURL: llm.DefaultBaseURL,
			Timeout: llm.DefaultTimeout,
		},
		Pipeline: pipeline.Config{MaxIterations: pipeline.DefaultMaxIterations},
		Store: storage.Config{
			Driver:        storage.DriverFile,
			Dir:           storage.DefaultDir,
			SQLitePath:    storage.DefaultSQLitePath,
			MongoDatabase: storage.DefaultMongoDatabase,
		},
		Log:    logger.DefaultConfig(),
		Server: server.DefaultConfig(),
		Publish: publisher.Config{
			Dir:     "documents",
			Timeout: 30 * time.Second,
		},
	}
}

// Load resolves the configuration. An empty path skips the YAML layer; a
// named path must exist. Missing env files are skipped; with none named,
// DefaultEnvFile is tried.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("%w: load %s: %w", ErrInvalidConfig, f, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Pipeline.MaxIterations < 0 {
		return fmt.Errorf("%w: pipeline.max_iterations must not be negative", ErrInvalidConfig)
	}
	if c.Store.Driver == storage.DriverMongo && c.Store.MongoURI == "" {
		return fmt.Errorf("%w: store.mongo_uri is required for the mongo driver", ErrInvalidConfig)
	}
	return nil
}
