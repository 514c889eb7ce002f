// Package config loads service settings from the environment. A .env file in
// the working directory is read first when present; real environment
// variables take precedence over it.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed into its field type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

// ConfigError is returned by Load.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config holds all service settings.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	LogFile         string        `envconfig:"LOG_FILE"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	// Analysis defaults and collaborator deadlines.
	ErosionRisk   float64       `envconfig:"EROSION_RISK" default:"0.3" validate:"gte=0,lte=1"`
	HistoryWindow time.Duration `envconfig:"HISTORY_WINDOW" default:"8760h" validate:"gt=0"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s" validate:"gt=0"`
	StoreTimeout  time.Duration `envconfig:"STORE_TIMEOUT" default:"5s" validate:"gt=0"`
	AdviceTimeout time.Duration `envconfig:"ADVICE_TIMEOUT" default:"60s" validate:"gt=0"`

	// Imagery backend. Empty URL disables it.
	ImageryURL          string        `envconfig:"IMAGERY_URL" validate:"omitempty,url"`
	ImageryAPIKey       string        `envconfig:"IMAGERY_API_KEY"`
	ImageryTimeout      time.Duration `envconfig:"IMAGERY_TIMEOUT" default:"30s" validate:"gt=0"`
	ImageryLookbackDays int           `envconfig:"IMAGERY_LOOKBACK_DAYS" default:"30" validate:"gte=1,lte=365"`
	ImageryCacheSize    int           `envconfig:"IMAGERY_CACHE_SIZE" default:"1000" validate:"gte=0"`
	ImageryCacheTTL     time.Duration `envconfig:"IMAGERY_CACHE_TTL" default:"1h" validate:"gte=0"`

	// Text generation. Empty provider disables it.
	LLMProvider     string  `envconfig:"LLM_PROVIDER" validate:"omitempty,oneof=anthropic openai ollama"`
	LLMModel        string  `envconfig:"LLM_MODEL"`
	AnthropicAPIKey string  `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string  `envconfig:"OPENAI_API_KEY"`
	OllamaHost      string  `envconfig:"OLLAMA_HOST" default:"http://localhost:11434" validate:"omitempty,url"`
	LLMMaxTokens    int     `envconfig:"LLM_MAX_TOKENS" default:"2000" validate:"gte=0"`
	LLMTemperature  float64 `envconfig:"LLM_TEMPERATURE" default:"0.7" validate:"gte=0,lte=2"`

	// Record store. Empty URL disables it.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10" validate:"gte=1"`

	// Kafka batch pipeline.
	KafkaEnabled       bool          `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers       []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaSourceTopic   string        `envconfig:"KAFKA_SOURCE_TOPIC" default:"soil-analysis-requests"`
	KafkaSinkTopic     string        `envconfig:"KAFKA_SINK_TOPIC" default:"soil-analysis-results"`
	KafkaGroupID       string        `envconfig:"KAFKA_GROUP_ID" default:"soilsense"`
	BatchSize          int           `envconfig:"BATCH_SIZE" default:"50" validate:"gte=1,lte=1000"`
	BatchFlushInterval time.Duration `envconfig:"BATCH_FLUSH_INTERVAL" default:"500ms" validate:"gt=0"`
}

// Default model per provider when LLM_MODEL is unset.
var defaultModels = map[string]string{
	"anthropic": "claude-3-5-sonnet-20241022",
	"openai":    "gpt-4o-mini",
	"ollama":    "llama3.1",
}

// ImageryEnabled reports whether an imagery backend is configured.
func (c *Config) ImageryEnabled() bool { return c.ImageryURL != "" }

// AdviceEnabled reports whether a text-generation provider is configured.
func (c *Config) AdviceEnabled() bool { return c.LLMProvider != "" }

// StoreEnabled reports whether a record store is configured.
func (c *Config) StoreEnabled() bool { return c.DatabaseURL != "" }

// Load reads configuration from the environment, applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	if err := cfg.checkDependencies(); err != nil {
		return nil, err
	}

	if cfg.AdviceEnabled() && cfg.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}
	return &cfg, nil
}

// checkDependencies enforces settings that are only required when a
// feature is switched on.
func (c *Config) checkDependencies() error {
	missing := func(name, reason string) error {
		return &ConfigError{Type: ErrMissingEnv, Message: fmt.Sprintf("%s is required when %s", name, reason)}
	}

	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return missing("ANTHROPIC_API_KEY", "LLM_PROVIDER is anthropic")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return missing("OPENAI_API_KEY", "LLM_PROVIDER is openai")
		}
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return missing("KAFKA_BROKERS", "KAFKA_ENABLED is true")
		}
		if c.KafkaSourceTopic == "" {
			return missing("KAFKA_SOURCE_TOPIC", "KAFKA_ENABLED is true")
		}
		if c.KafkaSinkTopic == "" {
			return missing("KAFKA_SINK_TOPIC", "KAFKA_ENABLED is true")
		}
	}
	return nil
}
