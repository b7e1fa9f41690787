package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type BotConfig struct {
	WSURL        string        `env:"WS_URL" envDefault:"ws://localhost:3001/ws"`
	SessionID    string        `env:"SESSION_ID,required,notEmpty"`
	DeviceID     string        `env:"DEVICE_ID" envDefault:"tick-bot"`
	Role         string        `env:"ROLE" envDefault:"display"`
	Secret       string        `env:"SECRET"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
