// Package config loads the portflow server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"gopkg.in/yaml.v3"
)

// Config holds all portflow configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	Auth        AuthConfig        `yaml:"auth"`
	Weather     WeatherConfig     `yaml:"weather"`
	Assistant   AssistantConfig   `yaml:"assistant"`
	Predictions PredictionsConfig `yaml:"predictions"`
	Cache       CacheConfig       `yaml:"cache"`
	Blob        BlobConfig        `yaml:"blob"`
	// TimeZone names the IANA zone used to bucket the resource usage curve.
	TimeZone string `yaml:"time_zone"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     string   `yaml:"read_timeout"`
	WriteTimeout    string   `yaml:"write_timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	MetricsEnabled  bool     `yaml:"metrics_enabled"`
}

// StorageConfig selects the row store backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory, sqlite, postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// AuthConfig configures the identity directory and bearer tokens.
type AuthConfig struct {
	Directory      string `yaml:"directory"` // supabase, local
	Required       bool   `yaml:"required"`
	SupabaseURL    string `yaml:"supabase_url"`
	ServiceRoleKey string `yaml:"service_role_key"`
	JWTSecret      string `yaml:"jwt_secret"`
	TokenTTL       string `yaml:"token_ttl"`
}

// WeatherConfig configures the OpenWeather passthrough.
type WeatherConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	City     string `yaml:"city"`
	CacheTTL string `yaml:"cache_ttl"`
	Timeout  string `yaml:"timeout"`
}

// AssistantConfig configures the chat assistant provider.
type AssistantConfig struct {
	Provider     string `yaml:"provider"` // ollama, gemini
	OllamaURL    string `yaml:"ollama_url"`
	Model        string `yaml:"model"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	Timeout      string `yaml:"timeout"`
}

// PredictionsConfig configures the traffic prediction passthrough.
type PredictionsConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// CacheConfig selects the passthrough response cache.
type CacheConfig struct {
	Driver        string `yaml:"driver"` // memory, redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// BlobConfig selects the export artifact store.
type BlobConfig struct {
	Driver          string `yaml:"driver"` // fs, memory, s3
	Root            string `yaml:"root"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3001",
			ReadTimeout:     "15s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
			AllowedOrigins:  []string{"*"},
			MetricsEnabled:  true,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "portflow.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			Directory: "local",
			TokenTTL:  "12h",
		},
		Weather: WeatherConfig{
			BaseURL:  "https://api.openweathermap.org/data/2.5",
			City:     "nador,Beni Enssar",
			CacheTTL: "10m",
			Timeout:  "10s",
		},
		Assistant: AssistantConfig{
			Provider:  "ollama",
			OllamaURL: "http://localhost:11434",
			Model:     "mistral",
			Timeout:   "120s",
		},
		Predictions: PredictionsConfig{
			BaseURL: "http://127.0.0.1:8001",
			Timeout: "30s",
		},
		Cache: CacheConfig{
			Driver: "memory",
		},
		Blob: BlobConfig{
			Driver: "fs",
			Root:   "exports-data",
		},
		TimeZone: "UTC",
	}
}

// Load reads path over the defaults and then applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnvOverrides applies PORTFLOW_* variables and the legacy names the
// dashboard deployment already exports.
func (c *Config) applyEnvOverrides(lookup lookupFunc) error {
	str := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				*dst = v
			}
		}
	}
	boolean := func(dst *bool, name string) error {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
		return nil
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	str(&c.Server.Addr, "PORTFLOW_ADDR")
	if v, ok := lookup("PORTFLOW_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	str(&c.Storage.Driver, "PORTFLOW_STORAGE_DRIVER")
	str(&c.Storage.SQLitePath, "PORTFLOW_SQLITE_PATH")
	str(&c.Storage.PostgresDSN, "DATABASE_URL", "PORTFLOW_POSTGRES_DSN")

	str(&c.Logging.Level, "PORTFLOW_LOG_LEVEL")
	str(&c.Logging.Format, "PORTFLOW_LOG_FORMAT")

	str(&c.Auth.SupabaseURL, "SUPABASE_URL")
	str(&c.Auth.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	str(&c.Auth.JWTSecret, "SUPABASE_JWT_SECRET", "PORTFLOW_JWT_SECRET")
	str(&c.Auth.Directory, "PORTFLOW_AUTH_DIRECTORY")
	if err := boolean(&c.Auth.Required, "PORTFLOW_AUTH_REQUIRED"); err != nil {
		return err
	}

	str(&c.Weather.APIKey, "OPENWEATHER_API_KEY")
	str(&c.Weather.City, "PORTFLOW_WEATHER_CITY")

	str(&c.Assistant.OllamaURL, "OLLAMA_API_URL")
	str(&c.Assistant.Provider, "PORTFLOW_ASSISTANT_PROVIDER")
	str(&c.Assistant.Model, "PORTFLOW_ASSISTANT_MODEL")
	str(&c.Assistant.GeminiAPIKey, "GEMINI_API_KEY")

	str(&c.Predictions.BaseURL, "PORTFLOW_PREDICTIONS_URL")

	str(&c.Cache.Driver, "PORTFLOW_CACHE_DRIVER")
	str(&c.Cache.RedisAddr, "PORTFLOW_REDIS_ADDR")
	str(&c.Cache.RedisPassword, "PORTFLOW_REDIS_PASSWORD")

	str(&c.Blob.Driver, "PORTFLOW_BLOB_DRIVER")
	str(&c.Blob.Root, "PORTFLOW_BLOB_ROOT")
	str(&c.Blob.Bucket, "PORTFLOW_BLOB_BUCKET")
	str(&c.Blob.Region, "PORTFLOW_BLOB_REGION")
	str(&c.Blob.Endpoint, "PORTFLOW_BLOB_ENDPOINT")

	str(&c.TimeZone, "PORTFLOW_TIME_ZONE")
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks enumerated settings and duration strings.
func (c *Config) Validate() error {
	var problems []string
	check := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		problems = append(problems, fmt.Sprintf("%s must be one of %s (got %q)", field, strings.Join(allowed, ", "), value))
	}
	check("storage.driver", c.Storage.Driver, "memory", "sqlite", "postgres")
	check("logging.format", c.Logging.Format, "json", "console")
	check("auth.directory", c.Auth.Directory, "local", "supabase")
	check("assistant.provider", c.Assistant.Provider, "ollama", "gemini")
	check("cache.driver", c.Cache.Driver, "memory", "redis")
	check("blob.driver", c.Blob.Driver, "fs", "memory", "s3")

	for field, value := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"auth.token_ttl":          c.Auth.TokenTTL,
		"weather.cache_ttl":       c.Weather.CacheTTL,
		"weather.timeout":         c.Weather.Timeout,
		"assistant.timeout":       c.Assistant.Timeout,
		"predictions.timeout":     c.Predictions.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", field, err))
		}
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		problems = append(problems, fmt.Sprintf("time_zone: %v", err))
	}
	if c.Auth.Directory == "supabase" && (c.Auth.SupabaseURL == "" || c.Auth.ServiceRoleKey == "") {
		problems = append(problems, "auth.directory supabase requires supabase_url and service_role_key")
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.required needs a jwt_secret")
	}
	if c.Blob.Driver == "s3" && c.Blob.Bucket == "" {
		problems = append(problems, "blob.driver s3 requires a bucket")
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

func duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ReadTimeout returns the server read timeout.
func (c *Config) ReadTimeout() time.Duration { return duration(c.Server.ReadTimeout, 15*time.Second) }

// WriteTimeout returns the server write timeout.
func (c *Config) WriteTimeout() time.Duration { return duration(c.Server.WriteTimeout, 30*time.Second) }

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

// TokenTTL returns the lifetime of issued access tokens.
func (c *Config) TokenTTL() time.Duration { return duration(c.Auth.TokenTTL, 12*time.Hour) }

// WeatherCacheTTL returns how long weather responses are cached.
func (c *Config) WeatherCacheTTL() time.Duration { return duration(c.Weather.CacheTTL, 10*time.Minute) }

// WeatherTimeout returns the OpenWeather request timeout.
func (c *Config) WeatherTimeout() time.Duration { return duration(c.Weather.Timeout, 10*time.Second) }

// AssistantTimeout returns the chat completion timeout.
func (c *Config) AssistantTimeout() time.Duration {
	return duration(c.Assistant.Timeout, 120*time.Second)
}

// PredictionsTimeout returns the prediction service timeout.
func (c *Config) PredictionsTimeout() time.Duration {
	return duration(c.Predictions.Timeout, 30*time.Second)
}

// Location resolves TimeZone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
