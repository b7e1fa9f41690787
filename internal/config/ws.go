package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type WSConfig struct {
	MaxMessageBytes   int64         `env:"WS_MAX_MESSAGE_BYTES" envDefault:"4096"`
	PingInterval      time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	ReadTimeout       time.Duration `env:"WS_READ_TIMEOUT" envDefault:"60s"`
	MessagesPerSecond float64       `env:"WS_MESSAGES_PER_SECOND" envDefault:"20"`
	MessageBurst      int           `env:"WS_MESSAGE_BURST" envDefault:"40"`
}

func LoadWS() (WSConfig, error) {
	var cfg WSConfig
	err := env.Parse(&cfg)
	return cfg, err
}
