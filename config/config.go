// Package config holds the server's tunable parameters: a typed struct, a
// config.json overlay, then environment-variable overrides. The CLI-facing
// flag/viper binding on top of this lives in cmd.go.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// Config holds all configurable server parameters.
type Config struct {
	Bind string `json:"bind"`
	Port int    `json:"port"`

	DatabaseURL string `json:"database_url"`

	CodeLength  int      `json:"code_length"`
	Colors      []string `json:"colors"`
	MaxAttempts int      `json:"max_attempts"`

	BaseRating int `json:"base_rating"`

	MaxLineBytes int `json:"max_line_bytes"`
	MailboxDepth int `json:"mailbox_depth"`
}

// Defaults returns a Config with every field set to this system's default
// values.
func Defaults() *Config {
	return &Config{
		Bind:         "localhost",
		Port:         12345,
		DatabaseURL:  "",
		CodeLength:   4,
		Colors:       []string{"red", "green", "blue", "yellow", "purple", "orange"},
		MaxAttempts:  10,
		BaseRating:   1200,
		MaxLineBytes: 4096,
		MailboxDepth: 16,
	}
}

// Load reads configuration from an optional config.json file, then applies
// environment variable overrides. Fields not set in either source retain
// their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideString(&cfg.Bind, "MATCHSERVER_BIND")
	overrideInt(&cfg.Port, "MATCHSERVER_PORT")
	overrideString(&cfg.DatabaseURL, "MATCHSERVER_DATABASE_URL")
	overrideInt(&cfg.CodeLength, "MATCHSERVER_CODE_LENGTH")
	overrideInt(&cfg.MaxAttempts, "MATCHSERVER_MAX_ATTEMPTS")
	overrideInt(&cfg.BaseRating, "MATCHSERVER_BASE_RATING")
	overrideInt(&cfg.MaxLineBytes, "MATCHSERVER_MAX_LINE_BYTES")
	overrideInt(&cfg.MailboxDepth, "MATCHSERVER_MAILBOX_DEPTH")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
