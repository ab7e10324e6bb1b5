// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings are only required when the
// mysql store driver is selected.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	StoreDriver   string // "mysql" or "memory"
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	SeedOnStart   bool   // insert sample businesses when the directory is empty
	AMQPURL       string // broker URL; empty disables visit events
	ConsumeEvents bool   // run the visit activity consumer in-process
	LevelAttempts int    // optimistic retries for the terra level refresh
}

// Load reads an optional .env file and then the process environment.  A
// missing required variable is reported as an error rather than exiting so
// that main decides how to fail.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", envStr("PORT", "8000")),
		StoreDriver:   strings.ToLower(envStr("STORE_DRIVER", "mysql")),
		DBPass:        os.Getenv("DB_PASS"),
		SeedOnStart:   envBool("SEED_ON_START", true),
		AMQPURL:       amqpURL(),
		ConsumeEvents: envBool("CONSUME_EVENTS", false),
		LevelAttempts: envInt("LEVEL_REFRESH_ATTEMPTS", 5),
	}
	switch cfg.StoreDriver {
	case "memory":
	case "mysql":
		var err error
		if cfg.DBUser, err = must("DB_USER"); err != nil {
			return Config{}, err
		}
		if cfg.DBHost, err = must("DB_HOST"); err != nil {
			return Config{}, err
		}
		if cfg.DBName, err = must("DB_NAME"); err != nil {
			return Config{}, err
		}
		cfg.DBPort = envStr("DB_PORT", "3306")
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.LevelAttempts < 1 {
		cfg.LevelAttempts = 1
	}
	return cfg, nil
}

// must retrieves the value of a required environment variable.
func must(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return v, nil
}

// amqpURL honours both RABBITMQ_URL and AMQP_URL.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}
