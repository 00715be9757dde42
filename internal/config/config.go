// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port" env:"PORT"`
	} `yaml:"server"`

	RabbitMQ struct {
		URL string `yaml:"url" env:"RABBITMQ_URL"`
	} `yaml:"rabbitmq"`

	Database struct {
		URL string `yaml:"url" env:"DATABASE_URL"`
	} `yaml:"database"`

	Workers int `yaml:"workers" env:"WORKERS"`

	Auth struct {
		JWTSecret             string        `yaml:"jwt_secret" env:"JWT_SECRET"`
		TokenTTL              time.Duration `yaml:"token_ttl" env:"JWT_EXPIRES_IN"`
		BcryptCost            int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
		DefaultInvitePassword string        `yaml:"default_invite_password" env:"DEFAULT_INVITE_PASSWORD"`
	} `yaml:"auth"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"cors"`

	RateLimit struct {
		RPS   float64 `yaml:"rps" env:"LOGIN_RATE_RPS"`
		Burst int     `yaml:"burst" env:"LOGIN_RATE_BURST"`
	} `yaml:"ratelimit"`

	Log struct {
		Level       string `yaml:"level" env:"LOG_LEVEL"`
		Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
	} `yaml:"log"`
}

// Default returns the configuration used for every key neither the file nor
// the environment sets.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Workers = 4
	cfg.Auth.TokenTTL = 7 * 24 * time.Hour
	cfg.Auth.BcryptCost = 10
	cfg.Auth.DefaultInvitePassword = "password"
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.RateLimit.RPS = 5
	cfg.RateLimit.Burst = 10
	cfg.Log.Level = "info"
	return cfg
}

// LoadConfig reads the YAML file at path (optional when it does not exist),
// then applies environment overrides. A .env file in the working directory
// is loaded first for local development.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return ParseDuration(v)
			},
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid workers %d", c.Workers)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// ParseDuration accepts Go duration syntax ("168h", "30m") and whole days
// ("7d"), the format JWT_EXPIRES_IN is commonly given in.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}
