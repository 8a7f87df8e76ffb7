package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// InsecureJWTSecret is the built-in secret, only accepted in development.
const InsecureJWTSecret = "supersecretkey"

type Config struct {
	Addr           string        `yaml:"addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	APITimeout     time.Duration `yaml:"timeout"`
	DatabasePath   string        `yaml:"database_path"`
	TokenDuration  time.Duration `yaml:"token_duration"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
	Workers        int           `yaml:"workers"`
	Tracker        TrackerConfig `yaml:"tracker"`
	Mail           MailConfig    `yaml:"mail"`
}

// TrackerConfig holds the defaults for per-request tracker settings.
type TrackerConfig struct {
	NoResponseDays int  `yaml:"no_response_days"`
	AutoNoResponse bool `yaml:"auto_no_response"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 1 * time.Hour

	cfg := &Config{
		Addr:           getEnv("JOBTRACK_ADDR", ":8080"),
		JWTSecret:      getEnv("JOBTRACK_JWT_SECRET", InsecureJWTSecret),
		APITimeout:     apiTimeout,
		DatabasePath:   getEnv("JOBTRACK_DATABASE_PATH", "jobtrack.db"),
		TokenDuration:  tokenDuration,
		MigrateOnStart: true,
		Workers:        2,
		Tracker: TrackerConfig{
			NoResponseDays: 14,
			AutoNoResponse: true,
		},
		Mail: MailConfig{
			Host:     os.Getenv("JOBTRACK_MAIL_HOST"),
			Port:     getEnvInt("JOBTRACK_MAIL_PORT", 587),
			Username: os.Getenv("JOBTRACK_MAIL_USERNAME"),
			Password: os.Getenv("JOBTRACK_MAIL_PASSWORD"),
			From:     os.Getenv("JOBTRACK_MAIL_FROM"),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate fills unset defaults and rejects unsafe or impossible values.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must be set")
	}
	if c.JWTSecret == InsecureJWTSecret && os.Getenv("JOBTRACK_ENV") != "development" {
		return errors.New("insecure jwt_secret: set JOBTRACK_JWT_SECRET or run with JOBTRACK_ENV=development")
	}

	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = time.Hour
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "jobtrack.db"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Tracker.NoResponseDays < 0 {
		return fmt.Errorf("tracker.no_response_days must not be negative, got %d", c.Tracker.NoResponseDays)
	}
	if c.Mail.Port <= 0 {
		c.Mail.Port = 587
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}
