package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"3000"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Region this instance checks from. Empty means the instance picks up
	// every region's status rows; set it when running one instance per region.
	Region string `env:"REGION"`

	PollInterval time.Duration `env:"SCHEDULER_POLL_INTERVAL" envDefault:"5s"`
	Workers      int           `env:"SCHEDULER_WORKERS" envDefault:"10"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"30s"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	LogDir string `env:"LOG_DIR" envDefault:"logs"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
