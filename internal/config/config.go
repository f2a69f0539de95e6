package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
// The scheduler's window tolerances are derived from CheckInterval, so
// changing the tick interval keeps the evaluation math consistent.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/schedule.db"`
	Timezone string `envconfig:"TIMEZONE" default:"Europe/Moscow"` // reference TZ for all class math
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`         // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`        // healthz

	CheckInterval   time.Duration `envconfig:"CHECK_INTERVAL" default:"5m" validate:"min=60000000000"`   // >= 1m
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"6h" validate:"min=60000000000"` // >= 1m
	Retention       time.Duration `envconfig:"RETENTION" default:"48h" validate:"min=86400000000000"`    // >= 24h, must outlive any re-evaluation of a window
	SendTimeout     time.Duration `envconfig:"SEND_TIMEOUT" default:"10s" validate:"min=1000000000"`     // >= 1s
	Workers         int           `envconfig:"WORKERS" default:"8" validate:"gte=1,lte=64"`
}

// Load reads environment variables into Config and validates them.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
