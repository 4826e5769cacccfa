// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// DatabaseURL selects Postgres; without it the SQLite file at SQLitePath
	// is used.
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"scheduler.db"`

	// Timezone is the single organizer timezone all wall-clock times use.
	Timezone string `env:"TIMEZONE" envDefault:"Europe/Warsaw"`

	StaticTokens  []string `env:"STATIC_TOKENS" envSeparator:","`
	JWTHMACSecret string   `env:"JWT_HMAC_SECRET"`

	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string        `env:"GOOGLE_REDIRECT_URL"`
	OAuthStateSecret   string        `env:"OAUTH_STATE_SECRET"`
	BusyTimeout        time.Duration `env:"BUSY_TIMEOUT" envDefault:"5s"`
	EventTimeout       time.Duration `env:"EVENT_TIMEOUT" envDefault:"10s"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	BusyCacheTTL  time.Duration `env:"BUSY_CACHE_TTL" envDefault:"60s"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`

	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPFrom     string        `env:"SMTP_FROM"`
	MailInterval time.Duration `env:"MAIL_INTERVAL" envDefault:"1s"`

	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"1"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load parses the environment and resolves the timezone.
func Load() (Config, *time.Location, error) {
	conf, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, nil, err
	}
	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return Config{}, nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	if conf.OTelSampleRatio < 0 || conf.OTelSampleRatio > 1 {
		return Config{}, nil, fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0,1], got %v", conf.OTelSampleRatio)
	}
	if conf.OAuthStateSecret == "" {
		conf.OAuthStateSecret = conf.JWTHMACSecret
	}
	conf.StaticTokens = trimmed(conf.StaticTokens)
	return conf, loc, nil
}

func trimmed(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
