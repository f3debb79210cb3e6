package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Tickers     []string       `toml:"tickers" validate:"required,min=1"`
	Server      ServerConfig   `toml:"server"`
	Market      MarketConfig   `toml:"market"`
	News        NewsConfig     `toml:"news"`
	LLM         LLMConfig      `toml:"llm"`
	Claude      ClaudeConfig   `toml:"claude"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Email       EmailConfig    `toml:"email"`
	Webhook     WebhookConfig  `toml:"webhook"`
	Schedule    ScheduleConfig `toml:"schedule"`
	Logging     LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// MarketProvider selects the market data backend.
type MarketProvider string

const (
	// MarketProviderEODHD uses the EODHD end-of-day API
	MarketProviderEODHD MarketProvider = "eodhd"
	// MarketProviderAlpaca uses the Alpaca market-data API
	MarketProviderAlpaca MarketProvider = "alpaca"
)

// MarketConfig contains market-data provider configuration
type MarketConfig struct {
	Provider        MarketProvider `toml:"provider"`         // "eodhd" (default) or "alpaca"
	APIKey          string         `toml:"api_key" validate:"required"`
	APISecret       string         `toml:"api_secret"`       // Alpaca only
	DefaultExchange string         `toml:"default_exchange"` // Exchange for bare symbols (default: "US")
	RequestTimeout  time.Duration  `toml:"request_timeout"`
	RateLimit       int            `toml:"rate_limit"` // Requests per second to the provider
}

// NewsConfig contains market headline configuration
type NewsConfig struct {
	Enabled bool `toml:"enabled"`
	Limit   int  `toml:"limit"` // Max headlines included in the report (default: 3)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "claude" (default) or "gemini"
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // Default: "claude-haiku-4-5-20251001"
	MaxTokens   int     `toml:"max_tokens"` // Default: 4096
	Timeout     string  `toml:"timeout"`    // Duration string (default: "2m")
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`   // Default: "gemini-2.0-flash"
	Timeout     string  `toml:"timeout"` // Duration string (default: "2m")
	Temperature float32 `toml:"temperature"`
}

// EmailConfig contains transactional email delivery configuration.
// The provider (Resend or SendGrid) is detected from the API key prefix.
type EmailConfig struct {
	APIKey        string   `toml:"api_key" validate:"required"`
	From          string   `toml:"from" validate:"required,email"`
	To            []string `toml:"to" validate:"required,min=1,dive,email"`
	SubjectPrefix string   `toml:"subject_prefix"` // Default: "Daily Stock Report"
	BaseURL       string   `toml:"base_url"`       // Override for testing
}

// WebhookConfig contains chat webhook delivery configuration
type WebhookConfig struct {
	URL string `toml:"url" validate:"required,url"`
}

// ScheduleConfig contains the optional in-process schedule for serve mode.
// When Cron is empty, reports are only produced by explicit "specto run"
// invocations (external scheduler).
type ScheduleConfig struct {
	Cron string `toml:"cron"` // Standard 5-field cron expression
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in specto.toml; technical
// parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Market: MarketConfig{
			Provider:        MarketProviderEODHD,
			DefaultExchange: "US",
			RequestTimeout:  30 * time.Second,
			RateLimit:       10,
		},
		News: NewsConfig{
			Enabled: true,
			Limit:   3,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5-20251001",
			MaxTokens:   4096,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Email: EmailConfig{
			SubjectPrefix: "Daily Stock Report",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: SPECTO_ENV, fallback: GO_ENV)
	if env := os.Getenv("SPECTO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Ticker list (comma-separated)
	if tickers := os.Getenv("SPECTO_TICKERS"); tickers != "" {
		var parsed []string
		for _, t := range strings.Split(tickers, ",") {
			if trimmed := strings.TrimSpace(t); trimmed != "" {
				parsed = append(parsed, trimmed)
			}
		}
		if len(parsed) > 0 {
			config.Tickers = parsed
		}
	}

	// Server configuration
	if port := os.Getenv("SPECTO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SPECTO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Market data configuration
	if provider := os.Getenv("SPECTO_MARKET_PROVIDER"); provider != "" {
		config.Market.Provider = MarketProvider(strings.ToLower(provider))
	}
	if apiKey := os.Getenv("SPECTO_MARKET_API_KEY"); apiKey != "" {
		config.Market.APIKey = apiKey
	} else if apiKey := os.Getenv("EODHD_API_TOKEN"); apiKey != "" {
		config.Market.APIKey = apiKey
	}
	if apiSecret := os.Getenv("SPECTO_MARKET_API_SECRET"); apiSecret != "" {
		config.Market.APISecret = apiSecret
	}
	if exchange := os.Getenv("SPECTO_MARKET_DEFAULT_EXCHANGE"); exchange != "" {
		config.Market.DefaultExchange = exchange
	}
	if timeout := os.Getenv("SPECTO_MARKET_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Market.RequestTimeout = d
		}
	}

	// News configuration
	if enabled := os.Getenv("SPECTO_NEWS_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.News.Enabled = e
		}
	}
	if limit := os.Getenv("SPECTO_NEWS_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			config.News.Limit = l
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("SPECTO_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}

	// Claude configuration (standard ANTHROPIC_API_KEY honored, SPECTO_ prefix wins)
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("SPECTO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("SPECTO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("SPECTO_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("SPECTO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("SPECTO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// Email configuration
	if apiKey := os.Getenv("SPECTO_EMAIL_API_KEY"); apiKey != "" {
		config.Email.APIKey = apiKey
	}
	if from := os.Getenv("SPECTO_EMAIL_FROM"); from != "" {
		config.Email.From = from
	}
	if to := os.Getenv("SPECTO_EMAIL_TO"); to != "" {
		var recipients []string
		for _, r := range strings.Split(to, ",") {
			if trimmed := strings.TrimSpace(r); trimmed != "" {
				recipients = append(recipients, trimmed)
			}
		}
		if len(recipients) > 0 {
			config.Email.To = recipients
		}
	}

	// Webhook configuration
	if url := os.Getenv("SPECTO_WEBHOOK_URL"); url != "" {
		config.Webhook.URL = url
	}

	// Schedule configuration
	if cronExpr := os.Getenv("SPECTO_SCHEDULE_CRON"); cronExpr != "" {
		config.Schedule.Cron = cronExpr
	}

	// Logging configuration
	if level := os.Getenv("SPECTO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SPECTO_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks that all required configuration is present before any
// network call is made. Missing required configuration is a fatal startup
// error.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if ok := errors.As(err, &validationErrors); ok && len(validationErrors) > 0 {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("missing or invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Cross-field checks the struct tags cannot express
	switch c.Market.Provider {
	case MarketProviderEODHD:
		// api_key covered by struct tag
	case MarketProviderAlpaca:
		if c.Market.APISecret == "" {
			return fmt.Errorf("market.api_secret is required for the alpaca provider")
		}
	default:
		return fmt.Errorf("unknown market provider %q (expected eodhd or alpaca)", c.Market.Provider)
	}

	switch c.LLM.DefaultProvider {
	case LLMProviderClaude:
		if c.Claude.APIKey == "" {
			return fmt.Errorf("claude.api_key is required (set via ANTHROPIC_API_KEY, SPECTO_CLAUDE_API_KEY, or claude.api_key in config)")
		}
	case LLMProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini.api_key is required (set via SPECTO_GEMINI_API_KEY, GEMINI_API_KEY, or gemini.api_key in config)")
		}
	default:
		return fmt.Errorf("unknown llm provider %q (expected claude or gemini)", c.LLM.DefaultProvider)
	}

	if c.Schedule.Cron != "" {
		if err := ValidateSchedule(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid schedule.cron: %w", err)
		}
	}

	return nil
}

// ValidateSchedule validates a standard 5-field cron expression and ensures
// a minimum 5-minute interval so the data provider is not hammered.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
