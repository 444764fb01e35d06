package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the chatfiles service and CLI
type Config struct {
	Server struct {
		Port         int           `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
		BodyLimit    int           `env:"BODY_LIMIT" envDefault:"1048576" validate:"min=1"` // 1MB
	}

	Storage struct {
		Backend     string `env:"STORAGE_BACKEND" envDefault:"dir" validate:"oneof=memory dir sqlite postgres"`
		DataDir     string `env:"DATA_DIR" envDefault:"./data"`
		SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/chatfiles.db"`
		PostgresDSN string `env:"POSTGRES_DSN"`
	}

	Processing struct {
		// Deadline for one extract request; candidates not reached by then are rejected as cancelled
		Timeout time.Duration `env:"PROCESS_TIMEOUT" envDefault:"30s"`
	}

	Cache struct {
		// 0 disables the extraction cache
		ExtractSize int `env:"EXTRACT_CACHE_SIZE" envDefault:"512" validate:"min=0"`
	}

	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50" validate:"gt=0"`
		Burst int     `env:"RATE_LIMIT_BURST" envDefault:"100" validate:"min=1"`
	}

	Security struct {
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," validate:"cors_origins"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
		Format string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	}
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration using struct tags
func Validate(cfg *Config) error {
	validator := validator.New()

	if err := validator.RegisterValidation("cors_origins", validateCORSOrigins); err != nil {
		return fmt.Errorf("failed to register cors_origins validation: %w", err)
	}

	if err := validator.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCORSOrigins validates CORS origins format
func validateCORSOrigins(fl validator.FieldLevel) bool {
	origins := fl.Field().Interface().([]string)
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return false
		}
	}
	return true
}

// validateCustomRules performs additional validation beyond struct tags
func validateCustomRules(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "dir":
		if cfg.Storage.DataDir == "" {
			return fmt.Errorf("data directory cannot be empty")
		}
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
		}
	}

	if cfg.Server.ReadTimeout < time.Millisecond {
		return fmt.Errorf("read timeout must be at least 1ms")
	}
	if cfg.Server.WriteTimeout < time.Millisecond {
		return fmt.Errorf("write timeout must be at least 1ms")
	}
	if cfg.Processing.Timeout < 0 {
		return fmt.Errorf("process timeout cannot be negative")
	}

	return nil
}

// EnsureDirectories creates the directories the selected backend writes to
func (cfg *Config) EnsureDirectories() error {
	var dirs []string
	switch cfg.Storage.Backend {
	case "dir":
		dirs = append(dirs, cfg.Storage.DataDir)
	case "sqlite":
		if dir := dirOf(cfg.Storage.SQLitePath); dir != "" {
			dirs = append(dirs, dir)
		}
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	return nil
}

func dirOf(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i > 0 {
		return p[:i]
	}
	return ""
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
			case "gt":
				messages = append(messages, fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param()))
			case "oneof":
				messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
			case "cors_origins":
				messages = append(messages, fmt.Sprintf("%s contains invalid origin format", e.Field()))
			default:
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
			}
		}
		return fmt.Errorf("validation errors: %s", strings.Join(messages, "; "))
	}
	return err
}
