package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// LogConfig drives logging.Init. File is optional; when set the log is also
// written there and moved aside once it grows past MaxMB.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	cfg.Level = strings.ToLower(strings.TrimSpace(cfg.Level))
	if _, err := zerolog.ParseLevel(cfg.Level); err != nil {
		return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.MaxMB < 0 || cfg.SampleEvery < 0 {
		return cfg, fmt.Errorf("LOG_MAX_MB and LOG_SAMPLE_EVERY must not be negative")
	}
	return cfg, nil
}
