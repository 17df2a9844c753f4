// Package config loads quizd and quiz client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Stores selectable with QUIZ_STORE.
const (
	StoreOxiDB  = "oxidb"
	StoreSQLite = "sqlite"
)

const defaultJWTSecret = "quiz-dev-secret-change-me"

type Config struct {
	Port            int           `env:"PORT" envDefault:"5005"`
	ShutdownTimeout time.Duration `env:"QUIZ_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"QUIZ_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigin      string        `env:"QUIZ_CORS_ORIGIN" envDefault:"*"`

	Store      string `env:"QUIZ_STORE" envDefault:"oxidb"`
	OxiDBAddr  string `env:"OXIDB_ADDR" envDefault:"127.0.0.1:4444"`
	PoolSize   int    `env:"OXIDB_POOL_SIZE" envDefault:"3"`
	SQLitePath string `env:"QUIZ_SQLITE_PATH" envDefault:"quiz.db"`

	StrictConsent bool `env:"QUIZ_STRICT_CONSENT" envDefault:"true"`

	JWTSecret  string        `env:"QUIZ_JWT_SECRET" envDefault:"quiz-dev-secret-change-me"`
	TokenTTL   time.Duration `env:"QUIZ_TOKEN_TTL" envDefault:"12h"`
	AdminEmail string        `env:"QUIZ_ADMIN_EMAIL" envDefault:"admin@quiz.local"`
	AdminPass  string        `env:"QUIZ_ADMIN_PASS"`

	ForwardingEnabled bool          `env:"QUIZ_FORWARDING_ENABLED" envDefault:"true"`
	PartnerTimeout    time.Duration `env:"QUIZ_PARTNER_TIMEOUT" envDefault:"5s"`
	PartnersFile      string        `env:"QUIZ_PARTNERS_FILE"`
	LeadMirrorAPIKey  string        `env:"LEADMIRROR_API_KEY"`
	DAPSubID          string        `env:"DAP_SUBID"`
	DAPSubID2         string        `env:"DAP_SUBID2"`

	LogLevel     string `env:"QUIZ_LOG_LEVEL" envDefault:"info"`
	GelfAddr     string `env:"QUIZ_GELF_ADDR"`
	OtelEndpoint string `env:"QUIZ_OTEL_ENDPOINT"`
}

// Load parses the environment and checks the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Client holds defaults for the terminal quiz. Command-line flags override
// them.
type Client struct {
	ServerURL    string `env:"QUIZ_SERVER_URL" envDefault:"http://localhost:5005"`
	ZipRemoteURL string `env:"QUIZ_ZIP_REMOTE_URL" envDefault:"https://api.zippopotam.us/us/"`
}

// LoadClient parses the terminal quiz settings from the environment.
func LoadClient() (*Client, error) {
	var c Client
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &c, nil
}

// Validate rejects settings quizd cannot start with.
func (c *Config) Validate() error {
	var errs []error
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreOxiDB:
		if c.OxiDBAddr == "" {
			errs = append(errs, errors.New("OXIDB_ADDR is required for the oxidb store"))
		}
		if c.PoolSize < 1 {
			errs = append(errs, errors.New("OXIDB_POOL_SIZE must be at least 1"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("QUIZ_SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("QUIZ_STORE must be %q or %q, got %q", StoreOxiDB, StoreSQLite, c.Store))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("QUIZ_JWT_SECRET must not be empty"))
	}
	if c.PartnerTimeout <= 0 {
		errs = append(errs, errors.New("QUIZ_PARTNER_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AdminEnabled reports whether the admin API should be mounted.
func (c *Config) AdminEnabled() bool {
	return c.AdminEmail != "" && c.AdminPass != ""
}

// InsecureJWTSecret reports whether the development secret is in use.
func (c *Config) InsecureJWTSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}
