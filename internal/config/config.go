package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the assessment engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Completion CompletionConfig `yaml:"completion"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cache      CacheConfig      `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// CompletionConfig groups the language-model providers tried in order before
// the deterministic rule-based fallback.
type CompletionConfig struct {
	Groq       ProviderConfig `yaml:"groq"`
	OpenRouter ProviderConfig `yaml:"openrouter"`
}

// ProviderConfig configures one OpenAI-compatible completion endpoint. An
// empty APIKey marks the provider unconfigured; the fallback chain skips it.
type ProviderConfig struct {
	APIKey             string        `yaml:"apiKey"`
	Model              string        `yaml:"model"`
	BaseURL            string        `yaml:"baseURL"`
	MaxTokens          int           `yaml:"maxTokens"`
	Temperature        float32       `yaml:"temperature"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxRetries         int           `yaml:"maxRetries"`
	RetryDelay         time.Duration `yaml:"retryDelay"`
	RateLimitPerMinute int           `yaml:"rateLimitPerMinute"`
}

// Configured reports whether the provider has credentials.
func (p ProviderConfig) Configured() bool { return p.APIKey != "" }

// StoreConfig controls session persistence. An empty DataDir selects the
// in-memory store.
type StoreConfig struct {
	DataDir string `yaml:"dataDir"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls in-process caching of completion responses.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ASSESSMENT_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Completion: CompletionConfig{
			Groq: ProviderConfig{
				Model:              "llama-3.1-8b-instant",
				BaseURL:            "https://api.groq.com/openai/v1",
				MaxTokens:          800,
				Temperature:        0.7,
				Timeout:            30 * time.Second,
				MaxRetries:         2,
				RetryDelay:         500 * time.Millisecond,
				RateLimitPerMinute: 20,
			},
			OpenRouter: ProviderConfig{
				Model:              "meta-llama/llama-3.1-8b-instruct",
				BaseURL:            "https://openrouter.ai/api/v1",
				MaxTokens:          800,
				Temperature:        0.7,
				Timeout:            30 * time.Second,
				MaxRetries:         2,
				RetryDelay:         500 * time.Millisecond,
				RateLimitPerMinute: 20,
			},
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 100,
			TTL:      30 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ASSESSMENT_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ASSESSMENT_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ASSESSMENT_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ASSESSMENT_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("ASSESSMENT_ENGINE_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("ASSESSMENT_ENGINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("ASSESSMENT_ENGINE_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Capacity = n
		}
	}
	if v := os.Getenv("ASSESSMENT_ENGINE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}

	applyProviderEnvOverrides(&cfg.Completion.Groq, "GROQ")
	applyProviderEnvOverrides(&cfg.Completion.OpenRouter, "OPENROUTER")
}

func applyProviderEnvOverrides(p *ProviderConfig, prefix string) {
	if v := os.Getenv(prefix + "_API_KEY"); v != "" {
		p.APIKey = v
	}
	if v := os.Getenv(prefix + "_MODEL"); v != "" {
		p.Model = v
	}
	if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
		p.BaseURL = v
	}
	if v := os.Getenv(prefix + "_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxTokens = n
		}
	}
	if v := os.Getenv(prefix + "_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.Temperature = float32(f)
		}
	}
	if v := os.Getenv(prefix + "_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			p.Timeout = d
		}
	}
	if v := os.Getenv(prefix + "_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxRetries = n
		}
	}
	if v := os.Getenv(prefix + "_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.RateLimitPerMinute = n
		}
	}
}
