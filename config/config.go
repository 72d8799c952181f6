package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const localFrontendURL = "http://localhost:5173"

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"4000"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE"          envDefault:"false"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret     string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTTTL        time.Duration `env:"JWT_TTL"             envDefault:"168h" validate:"min=1m"`
	ActivationTTL time.Duration `env:"ACTIVATION_TTL"      envDefault:"24h"  validate:"min=1m"`

	FrontendURL      string   `env:"FRONTEND_URL"       envDefault:"http://localhost:5173" validate:"required,url"`
	BackendURL       string   `env:"BACKEND_URL"        envDefault:"http://localhost:4000" validate:"required,url"`
	CORSExtraOrigins []string `env:"CORS_EXTRA_ORIGINS" envSeparator:","`

	EmailDisabled bool   `env:"EMAIL_DISABLED" envDefault:"false"`
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM"`

	AuthRatePerSec float64 `env:"AUTH_RATE_PER_SEC" envDefault:"1"  validate:"gt=0"`
	AuthRateBurst  int     `env:"AUTH_RATE_BURST"   envDefault:"10" validate:"min=1"`

	NotifyConcurrency int           `env:"NOTIFY_CONCURRENCY" envDefault:"4"   validate:"min=1,max=64"`
	NotifyTimeout     time.Duration `env:"NOTIFY_TIMEOUT"     envDefault:"10s" validate:"min=1s"`

	// SweepSchedule is a five-field cron expression for token and rate-limit cleanup.
	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"*/5 * * * *" validate:"required"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.SendsEmail() && (cfg.ResendAPIKey == "" || cfg.EmailFrom == "") {
		return nil, fmt.Errorf("invalid config: RESEND_API_KEY and EMAIL_FROM are required in %s unless EMAIL_DISABLED=true", cfg.Env)
	}

	return cfg, nil
}

// SendsEmail reports whether real delivery is expected for this environment.
func (c *Config) SendsEmail() bool {
	return c.Env != "local" && !c.EmailDisabled
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AllowedOrigins is the CORS allow-list: the frontend, the local dev server
// and any extra origins, deduplicated with trailing slashes removed.
func (c *Config) AllowedOrigins() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range append([]string{c.FrontendURL, localFrontendURL}, c.CORSExtraOrigins...) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}
