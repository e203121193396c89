package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultHealthDataURL = "https://YOUR_DATABASE_URL.firebaseio.com"

type Config struct {
	HealthDataURL   string        `yaml:"health_data_url"`
	AuthToken       string        `yaml:"auth_token"`
	UserID          string        `yaml:"user_id"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`

	Port           string        `yaml:"port"`
	APIKey         string        `yaml:"api_key"`
	JWTSecret      string        `yaml:"jwt_secret"`
	AllowedOrigins string        `yaml:"allowed_origins"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`

	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
}

// Load builds the config from the environment. When HEALTHDATA_CONFIG names
// a YAML file its values are read first and non-empty env vars override
// them.
func Load() (*Config, error) {
	var file Config
	if path := os.Getenv("HEALTHDATA_CONFIG"); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		file = *f
	}

	upstreamTimeout, err := getDuration("UPSTREAM_TIMEOUT", file.UpstreamTimeout)
	if err != nil {
		return nil, err
	}
	rateWindow, err := getDuration("RATE_WINDOW", or(file.RateWindow, time.Minute))
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt("RATE_LIMIT", or(file.RateLimit, 60))
	if err != nil {
		return nil, err
	}

	return &Config{
		HealthDataURL:   getEnv("HEALTHDATA_URL", or(file.HealthDataURL, defaultHealthDataURL)),
		AuthToken:       getEnv("HEALTHDATA_AUTH_TOKEN", file.AuthToken),
		UserID:          getEnv("HEALTHDATA_USER_ID", file.UserID),
		UpstreamTimeout: upstreamTimeout,
		Port:            getEnv("PORT", or(file.Port, "8080")),
		APIKey:          getEnv("API_KEY", file.APIKey),
		JWTSecret:       getEnv("JWT_SECRET", file.JWTSecret),
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", or(file.AllowedOrigins, "*")),
		RateLimit:       rateLimit,
		RateWindow:      rateWindow,
		DBHost:          getEnv("DB_HOST", or(file.DBHost, "localhost")),
		DBPort:          getEnv("DB_PORT", or(file.DBPort, "3306")),
		DBUser:          getEnv("DB_USER", or(file.DBUser, "healthdata")),
		DBPassword:      getEnv("DB_PASSWORD", file.DBPassword),
		DBName:          getEnv("DB_NAME", or(file.DBName, "healthdata")),
	}, nil
}

// LoadFile reads a YAML config file. Durations use Go syntax ("30s").
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks what the gateway cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable must be set")
	}
	if c.HealthDataURL == "" {
		return errors.New("HEALTHDATA_URL must not be empty")
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	return nil
}

func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func or[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
