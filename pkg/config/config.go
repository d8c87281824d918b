// Package config reads the MEET_* settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/timoknapp/sports-meet/pkg/logger"
)

const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

type Config struct {
	Env          string
	HTTPAddr     string
	StoreDriver  string
	BoltPath     string
	PostgresDSN  string
	JWTSecret    string
	TokenTTL     time.Duration
	PasswordMode string
	CORSOrigins  []string
	Timezone     *time.Location
	LogLevel     string
}

// LoadDotEnv reads .env files into the process environment outside
// production. Variables already set win.
func LoadDotEnv(files ...string) {
	if os.Getenv("MEET_ENV") == "production" {
		return
	}
	if err := godotenv.Load(files...); err != nil {
		logger.Debug("No .env file loaded (this is fine in production): %v", err)
	}
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var problems []error

	ttl, err := time.ParseDuration(FirstNonEmpty(os.Getenv("MEET_TOKEN_TTL"), "12h"))
	if err != nil {
		problems = append(problems, fmt.Errorf("MEET_TOKEN_TTL: %w", err))
	}
	loc := time.Local
	if tz := os.Getenv("MEET_TIMEZONE"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			problems = append(problems, fmt.Errorf("MEET_TIMEZONE: %w", err))
			loc = time.Local
		}
	}

	cfg := Config{
		Env:          os.Getenv("MEET_ENV"),
		HTTPAddr:     FirstNonEmpty(os.Getenv("MEET_HTTP_ADDR"), ":8080"),
		StoreDriver:  strings.ToLower(FirstNonEmpty(os.Getenv("MEET_STORE_DRIVER"), DriverBolt)),
		BoltPath:     FirstNonEmpty(os.Getenv("MEET_BOLT_PATH"), "data/meet.db"),
		PostgresDSN:  os.Getenv("MEET_POSTGRES_DSN"),
		JWTSecret:    os.Getenv("MEET_JWT_SECRET"),
		TokenTTL:     ttl,
		PasswordMode: strings.ToLower(FirstNonEmpty(os.Getenv("MEET_PASSWORD_MODE"), "plain")),
		CORSOrigins:  SplitList(os.Getenv("MEET_CORS_ORIGINS")),
		Timezone:     loc,
		LogLevel:     os.Getenv("MEET_LOG_LEVEL"),
	}
	problems = append(problems, cfg.validate()...)
	if len(problems) > 0 {
		return cfg, errors.Join(problems...)
	}
	return cfg, nil
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func (c Config) validate() []error {
	var problems []error
	switch c.StoreDriver {
	case DriverMemory, DriverBolt:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			problems = append(problems, errors.New("MEET_POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		problems = append(problems, fmt.Errorf("MEET_STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}
	switch c.PasswordMode {
	case "plain", "bcrypt":
	default:
		problems = append(problems, fmt.Errorf("MEET_PASSWORD_MODE: unknown mode %q", c.PasswordMode))
	}
	if c.JWTSecret == "" && c.Production() {
		problems = append(problems, errors.New("MEET_JWT_SECRET is required in production"))
	}
	if c.TokenTTL < 0 {
		problems = append(problems, errors.New("MEET_TOKEN_TTL must not be negative"))
	}
	return problems
}

// Bool reads a boolean variable; "true" and "1" are true.
func Bool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

// Int reads an integer variable, falling back to def when unset or malformed.
func Int(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
