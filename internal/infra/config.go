package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string        `env:"APP_ENV" envDefault:"development"`
	Port               string        `env:"PORT" envDefault:"8080"`
	LogLevel           string        `env:"LOG_LEVEL"`
	DefaultLocale      string        `env:"DEFAULT_LOCALE" envDefault:"en"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	StoragePath        string        `env:"STORAGE_PATH" envDefault:"./data"`
	StorageBaseURL     string        `env:"STORAGE_BASE_URL"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	GeoIPDBPath        string        `env:"GEOIP_DB_PATH"`
	FiltersFile        string        `env:"FILTERS_FILE"`
	GeminiAPIKey       string        `env:"GEMINI_API_KEY"`
	GeminiImageModel   string        `env:"GEMINI_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`
	GeminiTextModel    string        `env:"GEMINI_TEXT_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiBaseURL      string        `env:"GEMINI_BASE_URL"`
	PromptProvider     string        `env:"PROMPT_PROVIDER" envDefault:"gemini"`
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIModel        string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIOrg          string        `env:"OPENAI_ORG"`
	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES" envDefault:"15728640"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SessionSweep       time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	HistoryLimit       int           `env:"HISTORY_LIMIT" envDefault:"50"`
	HTTPReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RateLimitPerMin    int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

// Prompt providers accepted by PROMPT_PROVIDER.
const (
	PromptProviderStatic = "static"
	PromptProviderGemini = "gemini"
	PromptProviderOpenAI = "openai"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	c.PromptProvider = strings.ToLower(strings.TrimSpace(c.PromptProvider))
	c.StorageBaseURL = strings.TrimRight(strings.TrimSpace(c.StorageBaseURL), "/")
	if c.StorageBaseURL == "" {
		c.StorageBaseURL = "http://localhost:" + c.Port + "/static"
	}
	origins := c.CORSAllowedOrigins[:0]
	for _, origin := range c.CORSAllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.CORSAllowedOrigins = origins
}

// Validate reports configuration that cannot start the service.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	switch c.PromptProvider {
	case PromptProviderStatic, PromptProviderGemini, PromptProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("PROMPT_PROVIDER %q is not one of static, gemini, openai", c.PromptProvider))
	}
	if c.IsProduction() && strings.TrimSpace(c.GeminiAPIKey) == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required in production"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, errors.New("HISTORY_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV selects production behavior.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
