// Package client implements a terminal client for the chat relay.
package client

import (
	"github.com/kelseyhightower/envconfig"
)

// Config configures the terminal client. Flags given to cmd/chatclient
// override these values.
type Config struct {
	ServerURL string `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:8080/ws"`
	// CHAT_NAME joins immediately instead of prompting for a name.
	Name   string `envconfig:"CHAT_NAME"`
	Origin string `envconfig:"CHAT_ORIGIN" default:"http://localhost:8080"`
	// CHAT_COLOURS enables colorized output
	Colours  bool   `envconfig:"CHAT_COLOURS" default:"true"`
	LogLevel string `envconfig:"CHAT_LOG_LEVEL" default:"WARN"`
}

// LoadConfig reads the client configuration from CHAT_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
