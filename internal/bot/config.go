package bot

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the process-wide bot configuration. Module-specific
// settings live with their modules; only what the bot core itself needs
// belongs here.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`
}

// LoadConfig reads the bot configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing bot config: %w", err)
	}
	return cfg, nil
}
