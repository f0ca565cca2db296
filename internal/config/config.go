package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DiscordToken    string        `env:"DISCORD_TOKEN"`
	Prefixes        []string      `env:"PREFIXES" envDefault:"!" envSeparator:","`
	AllowMention    bool          `env:"ALLOW_MENTION" envDefault:"true"`
	Owners          []string      `env:"OWNERS" envSeparator:","`
	SuperUsers      []string      `env:"SUPER_USERS" envSeparator:","`
	DefaultCooldown time.Duration `env:"DEFAULT_COOLDOWN" envDefault:"0s"`
	BlockBots       bool          `env:"BLOCK_BOTS" envDefault:"true"`
	HandleEdits     bool          `env:"HANDLE_EDITS" envDefault:"false"`
	PromptTimeout   time.Duration `env:"PROMPT_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile         string        `env:"LOG_FILE"`
	CommandsFile    string        `env:"COMMANDS_FILE"`
}

var ErrNoToken = errors.New("DISCORD_TOKEN is not set")

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// RequireToken reports ErrNoToken for transports that need one.
func (c *Config) RequireToken() error {
	if c.DiscordToken == "" {
		return ErrNoToken
	}
	return nil
}
