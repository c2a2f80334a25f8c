package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultURL is the public scheduling service endpoint.
const DefaultURL = "https://www.swift.psu.edu/api/v1.2/"

// EnvPrefix prefixes every environment override, e.g. SWIFTAPI_API_URL.
const EnvPrefix = "SWIFTAPI"

var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// Config models swiftapi.yml / swiftapi.toml.
type Config struct {
	API         APIConfig         `yaml:"api" toml:"api"`
	Credentials CredentialsConfig `yaml:"credentials" toml:"credentials"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

type APIConfig struct {
	URL                   string  `yaml:"url" toml:"url"`
	Version               string  `yaml:"version" toml:"version"`
	Method                string  `yaml:"method" toml:"method"`
	TimeoutSeconds        int     `yaml:"timeout_seconds" toml:"timeout_seconds"`
	PollIntervalSeconds   float64 `yaml:"poll_interval_seconds" toml:"poll_interval_seconds"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
}

type CredentialsConfig struct {
	Username     string `yaml:"username" toml:"username"`
	SharedSecret string `yaml:"shared_secret" toml:"shared_secret"`
	StorePath    string `yaml:"store_path" toml:"store_path"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:                   DefaultURL,
			Version:               "1.2",
			Method:                http.MethodPost,
			TimeoutSeconds:        120,
			PollIntervalSeconds:   1,
			RequestTimeoutSeconds: 30,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Timeout is the overall submit deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// PollInterval is the pause between status polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.API.PollIntervalSeconds * float64(time.Second))
}

// RequestTimeout bounds one HTTP exchange.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return errors.New("config.api.url is required")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config.api.url %q is not an absolute url", c.API.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config.api.url scheme must be http or https, got %s", u.Scheme)
	}
	if !versionPattern.MatchString(c.API.Version) {
		return fmt.Errorf("config.api.version must look like <major>.<minor>, got %q", c.API.Version)
	}
	switch strings.ToUpper(c.API.Method) {
	case http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("config.api.method must be GET or POST, got %q", c.API.Method)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("config.api.timeout_seconds must be positive")
	}
	if c.API.PollIntervalSeconds <= 0 {
		return errors.New("config.api.poll_interval_seconds must be positive")
	}
	if c.API.RequestTimeoutSeconds < 0 {
		return errors.New("config.api.request_timeout_seconds must not be negative")
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("config.log.level: %w", err)
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// FromYAML parses and validates config from raw YAML bytes. Keys that are
// absent keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	return finish(cfg)
}

// FromTOML parses and validates config from raw TOML bytes.
func FromTOML(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config toml: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.API.Method = strings.ToUpper(cfg.API.Method)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads config from path, choosing the decoder by extension. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FromTOML(data)
	case ".yml", ".yaml":
		return FromYAML(data)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// Path returns the config file path for a directory.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "swiftapi.yml")
}

// LoadEnvFile loads a .env file into the process environment. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// NewViper returns a viper instance reading SWIFTAPI_* variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyEnv overlays environment overrides onto cfg and revalidates it.
func ApplyEnv(cfg *Config, v *viper.Viper) error {
	if v == nil {
		v = NewViper()
	}
	overlayString(v, "api.url", &cfg.API.URL)
	overlayString(v, "api.version", &cfg.API.Version)
	overlayString(v, "api.method", &cfg.API.Method)
	if v.IsSet("api.timeout_seconds") {
		cfg.API.TimeoutSeconds = v.GetInt("api.timeout_seconds")
	}
	if v.IsSet("api.poll_interval_seconds") {
		cfg.API.PollIntervalSeconds = v.GetFloat64("api.poll_interval_seconds")
	}
	if v.IsSet("api.request_timeout_seconds") {
		cfg.API.RequestTimeoutSeconds = v.GetInt("api.request_timeout_seconds")
	}
	overlayString(v, "credentials.username", &cfg.Credentials.Username)
	overlayString(v, "credentials.shared_secret", &cfg.Credentials.SharedSecret)
	overlayString(v, "credentials.store_path", &cfg.Credentials.StorePath)
	overlayString(v, "log.level", &cfg.Log.Level)
	overlayString(v, "log.format", &cfg.Log.Format)
	cfg.API.Method = strings.ToUpper(cfg.API.Method)
	return cfg.Validate()
}

func overlayString(v *viper.Viper, key string, dst *string) {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		*dst = s
	}
}
