package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Server    ServerConfig    `mapstructure:"server"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	History   HistoryConfig   `mapstructure:"history"`
	Client    ClientConfig    `mapstructure:"client"`
	Log       LogConfig       `mapstructure:"log"`
}

// LLMConfig holds the LLM configuration. Any OpenAI compatible endpoint works;
// the default points at a local Ollama.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model" validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// KnowledgeConfig points at the mission corpus and tunes retrieval.
type KnowledgeConfig struct {
	MissionData     string  `mapstructure:"mission_data" validate:"required"`
	CustomResponses string  `mapstructure:"custom_responses"`
	ContextLimit    int     `mapstructure:"context_limit" validate:"gt=0"`
	MemoryLimit     int     `mapstructure:"memory_limit" validate:"gt=0"`
	MinScore        float64 `mapstructure:"min_score" validate:"gte=0,lte=1"`
}

// HistoryConfig holds the session store configuration.
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ClientConfig holds the chat client configuration.
type ClientConfig struct {
	Endpoint  string        `mapstructure:"endpoint" validate:"required,url"`
	SessionID string        `mapstructure:"session_id" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultMinScore is the /chat similarity cutoff: a mission must carry at
// least half of the relevance the query's terms can reach in the corpus.
const DefaultMinScore = 0.5

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "ollama")
	v.SetDefault("llm.model", "phi")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.system_prompt", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("knowledge.mission_data", "mission_data.json")
	v.SetDefault("knowledge.custom_responses", "custom_responses.json")
	v.SetDefault("knowledge.context_limit", 1000)
	v.SetDefault("knowledge.memory_limit", 600)
	v.SetDefault("knowledge.min_score", DefaultMinScore)

	v.SetDefault("history.db_path", "history.db")

	v.SetDefault("client.endpoint", "http://127.0.0.1:5000")
	v.SetDefault("client.session_id", "user_1")
	v.SetDefault("client.timeout", time.Duration(0))

	v.SetDefault("log.level", "info")
}

// Load loads the configuration from config.yaml (or the file named by
// CONFIG_PATH). A missing default file is not an error; every key has a
// default and can be overridden with an ASTRO_ prefixed variable.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("astro")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}
