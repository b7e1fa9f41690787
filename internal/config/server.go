package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	Port        int      `env:"PORT" envDefault:"3001"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	SessionRetention time.Duration `env:"SESSION_RETENTION" envDefault:"24h"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`

	ServerClock              bool   `env:"SERVER_CLOCK" envDefault:"false"`
	ClaimReconcile           string `env:"CLAIM_RECONCILE" envDefault:"retain"`
	EnforcePrivilegedActions bool   `env:"ENFORCE_PRIVILEGED_ACTIONS" envDefault:"false"`

	SessionDefaultsPath string `env:"SESSION_DEFAULTS_PATH"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	switch cfg.ClaimReconcile {
	case "retain", "release":
	default:
		return cfg, fmt.Errorf("CLAIM_RECONCILE: unknown policy %q", cfg.ClaimReconcile)
	}
	if cfg.SessionRetention <= 0 || cfg.SweepInterval <= 0 {
		return cfg, fmt.Errorf("SESSION_RETENTION and SWEEP_INTERVAL must be positive")
	}
	return cfg, nil
}
