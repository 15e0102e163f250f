// Package server provides configuration helpers that define runtime defaults,
// environment loading, and validation for the chat relay service.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultPort            = ":8080"
	defaultOrigins         = "http://localhost:8080"
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 256
	defaultLogLevel        = "INFO"
	defaultShutdownTimeout = 10 * time.Second
)

var validate = validator.New()

// Config holds the server configuration settings. Fields tagged with env are
// read from the environment by LoadConfig.
type Config struct {
	Port            string        `env:"SERVER_PORT,default=:8080" validate:"required"`
	RawOrigins      string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=4096" validate:"gt=0"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	StaticDir       string        `env:"STATIC_DIR" validate:"omitempty,dir"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`

	// AllowedOrigins is parsed from RawOrigins. A "*" entry allows any origin.
	AllowedOrigins []string
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() Config {
	return Config{
		Port:            defaultPort,
		RawOrigins:      defaultOrigins,
		AllowedOrigins:  parseOrigins(defaultOrigins),
		MaxMessageSize:  defaultMaxMessageSize,
		SendBufferSize:  defaultSendBufferSize,
		LogLevel:        defaultLogLevel,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// LoadConfig reads the configuration from the environment, after loading an
// optional .env file from the working directory. Non-positive sizes fall
// back to defaults; the result is validated before it is returned.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	cfg.AllowedOrigins = parseOrigins(cfg.RawOrigins)

	cfg = sanitizeConfig(cfg)
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	return cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
