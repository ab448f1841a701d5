package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys: STYLEMATE_DATABASE_HOST -> database.host
const EnvPrefix = "STYLEMATE_"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	Env       string          `koanf:"env"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	JWT       JWTConfig       `koanf:"jwt"`
	Storage   StorageConfig   `koanf:"storage"`
	Redis     RedisConfig     `koanf:"redis"`
	Weather   WeatherConfig   `koanf:"weather"`
	Sentry    SentryConfig    `koanf:"sentry"`
	Log       LogConfig       `koanf:"log"`
	Mail      MailConfig      `koanf:"mail"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

type ServerConfig struct {
	Port        int      `koanf:"port"`
	CORSOrigins []string `koanf:"cors_origins"`
	FrontendURL string   `koanf:"frontend_url"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.Username, d.Password, d.Host, d.Port, d.Name)
}

type JWTConfig struct {
	Secret     string        `koanf:"secret"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
}

type StorageConfig struct {
	AccountID       string        `koanf:"account_id"`
	AccessKeyID     string        `koanf:"access_key_id"`
	AccessKeySecret string        `koanf:"access_key_secret"`
	Bucket          string        `koanf:"bucket"`
	ReadURLTTL      time.Duration `koanf:"read_url_ttl"`
}

type RedisConfig struct {
	Addr string `koanf:"addr"`
}

type WeatherConfig struct {
	APIKey       string        `koanf:"api_key"`
	BaseURL      string        `koanf:"base_url"`
	CountryCode  string        `koanf:"country_code"`
	Timeout      time.Duration `koanf:"timeout"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	DefaultTemp  float64       `koanf:"default_temp"`
	DefaultState string        `koanf:"default_condition"`
}

type SentryConfig struct {
	DSN     string `koanf:"dsn"`
	Release string `koanf:"release"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type RateLimitConfig struct {
	AuthRequests int           `koanf:"auth_requests"`
	AuthWindow   time.Duration `koanf:"auth_window"`
	APIRequests  int           `koanf:"api_requests"`
	APIWindow    time.Duration `koanf:"api_window"`
}

// Default returns the configuration used before any file or environment
// overrides are applied.
func Default() *Config {
	return &Config{
		Env: "local",
		Server: ServerConfig{
			Port:        8083,
			CORSOrigins: []string{"*"},
			FrontendURL: "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Username:        "stylemate",
			Password:        "stylemate",
			Name:            "stylemate",
			MaxOpenConns:    300,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		JWT: JWTConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Storage: StorageConfig{
			ReadURLTTL: 15 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Weather: WeatherConfig{
			BaseURL:      "https://api.openweathermap.org",
			CountryCode:  "ke",
			Timeout:      10 * time.Second,
			CacheTTL:     10 * time.Minute,
			DefaultTemp:  20,
			DefaultState: "sunny",
		},
		Sentry: SentryConfig{
			Release: "stylemate@1.0.0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Mail: MailConfig{
			Port: 587,
			From: "StyleMate <no-reply@stylemate.app>",
		},
		RateLimit: RateLimitConfig{
			AuthRequests: 5,
			AuthWindow:   15 * time.Minute,
			APIRequests:  100,
			APIWindow:    time.Minute,
		},
	}
}

// Load layers struct defaults, an optional YAML file and STYLEMATE_*
// environment variables, in that order. An empty path falls back to
// CONFIG_PATH.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps STYLEMATE_SECTION_FIELD_NAME to section.field_name. Only the
// first underscore after the prefix separates section from field.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.JWT.Secret == "" && !c.IsTest() {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	if c.Weather.DefaultState == "" {
		errs = append(errs, errors.New("weather.default_condition is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsTest() bool {
	return c.Env == "test"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// WeatherLive reports whether an upstream weather API is configured.
func (c *Config) WeatherLive() bool {
	return c.Weather.APIKey != ""
}
