package config

import "errors"

// TelegramConfig holds Telegram-specific configuration
type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN" yaml:"bot_token"`
	Enabled  bool   `env:"TELEGRAM_ENABLED" yaml:"enabled" default:"true"`
	Debug    bool   `env:"TELEGRAM_DEBUG" yaml:"debug"`
}

func (c TelegramConfig) Validate() error {
	if c.Enabled && c.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required when telegram is enabled")
	}
	return nil
}
