// Package config loads application settings from an optional JSON file,
// a .env file and DIPLOMA_* environment variables, then validates them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"diploma_generator/generator"
)

// EnvPrefix namespaces every environment override, e.g. DIPLOMA_LLM_API_KEY.
const EnvPrefix = "DIPLOMA"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Prompt  PromptConfig  `mapstructure:"prompt"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// GenerateTimeout bounds one full pipeline run.
	GenerateTimeout   time.Duration `mapstructure:"generate_timeout" validate:"gt=0"`
	MaxConcurrentRuns int           `mapstructure:"max_concurrent_runs" validate:"gte=1"`
}

// LLMConfig describes the remote text-generation service.
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=openai deepseek mock"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	// APIKeyEnv names a variable consulted when APIKey is empty.
	APIKeyEnv      string        `mapstructure:"api_key_env"`
	BaseURL        string        `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature    float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" validate:"gt=0"`
}

// StorageConfig selects where finished documents are persisted.
type StorageConfig struct {
	Backend    string      `mapstructure:"backend" validate:"required,oneof=filesystem azure"`
	Dir        string      `mapstructure:"dir"`
	RenderHTML bool        `mapstructure:"render_html"`
	Azure      AzureConfig `mapstructure:"azure"`
}

type AzureConfig struct {
	Container        string `mapstructure:"container"`
	ConnectionString string `mapstructure:"connection_string"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// PromptConfig overrides the built-in system prompt and section catalogue.
type PromptConfig struct {
	System   string                  `mapstructure:"system"`
	Sections []generator.SectionSpec `mapstructure:"sections" validate:"dive"`
}

// RetryPolicy converts the retry settings for the generator.
func (c LLMConfig) RetryPolicy() generator.RetryPolicy {
	return generator.RetryPolicy{
		MaxRetries: c.MaxRetries,
		MaxDelay:   c.MaxBackoff,
	}
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", time.Minute)
	v.SetDefault("server.write_timeout", 20*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.generate_timeout", 15*time.Minute)
	v.SetDefault("server.max_concurrent_runs", 4)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.request_timeout", 2*time.Minute)
	v.SetDefault("llm.max_retries", 5)
	v.SetDefault("llm.max_backoff", 30*time.Second)

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.dir", "output")
	v.SetDefault("storage.render_html", false)
	v.SetDefault("storage.azure.container", "diplomas")
	v.SetDefault("storage.azure.connection_string", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("prompt.system", "")
}

// Load reads configuration. path may be empty or point at a missing file, in
// which case defaults and the environment supply every value. Environment
// variables take precedence over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" && cfg.LLM.APIKeyEnv != "" {
		cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.LLM.Provider != "mock" {
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config validation failed: llm.api_key is required for provider %s", c.LLM.Provider)
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("config validation failed: llm.model is required for provider %s", c.LLM.Provider)
		}
	}
	if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
		return errors.New("config validation failed: llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
	}

	switch c.Storage.Backend {
	case "filesystem":
		if c.Storage.Dir == "" {
			return errors.New("config validation failed: storage.dir is required for the filesystem backend")
		}
	case "azure":
		if c.Storage.Azure.Container == "" || c.Storage.Azure.ConnectionString == "" {
			return errors.New("config validation failed: storage.azure.container and connection_string are required for the azure backend")
		}
	}
	return nil
}
