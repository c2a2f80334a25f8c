package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Timeout() != 120*time.Second || cfg.PollInterval() != time.Second {
		t.Fatalf("unexpected default timing %v %v", cfg.Timeout(), cfg.PollInterval())
	}
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("api:\n  url: https://example.org/api\n  method: get\ncredentials:\n  username: alice\n"))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if cfg.API.URL != "https://example.org/api" || cfg.API.Method != "GET" {
		t.Fatalf("unexpected api section %+v", cfg.API)
	}
	if cfg.API.TimeoutSeconds != 120 || cfg.Credentials.Username != "alice" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestFromTOML(t *testing.T) {
	cfg, err := FromTOML([]byte("[api]\npoll_interval_seconds = 0.5\n\n[log]\nlevel = \"debug\"\nformat = \"json\"\n"))
	if err != nil {
		t.Fatalf("FromTOML: %v", err)
	}
	if cfg.PollInterval() != 500*time.Millisecond || cfg.Log.Format != "json" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"empty url":  "api:\n  url: \"\"\n",
		"relative":   "api:\n  url: /api\n",
		"method":     "api:\n  method: PUT\n",
		"version":    "api:\n  version: v1\n",
		"timeout":    "api:\n  timeout_seconds: 0\n",
		"poll":       "api:\n  poll_interval_seconds: -1\n",
		"log level":  "log:\n  level: chatty\n",
		"log format": "log:\n  format: xml\n",
		"bad yaml":   "api: [",
		"scheme":     "api:\n  url: ftp://example.org\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromYAML([]byte(body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.yml"))
	if err != nil || cfg.API.URL != DefaultURL {
		t.Fatalf("missing file should give defaults: %v %v", cfg, err)
	}
	tomlPath := filepath.Join(dir, "swiftapi.toml")
	if err := os.WriteFile(tomlPath, []byte("[credentials]\nusername = \"bob\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = Load(tomlPath)
	if err != nil || cfg.Credentials.Username != "bob" {
		t.Fatalf("toml load: %v %v", cfg, err)
	}
	jsonPath := filepath.Join(dir, "swiftapi.json")
	if err := os.WriteFile(jsonPath, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(jsonPath); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if Path("") != "swiftapi.yml" {
		t.Fatalf("unexpected path %s", Path(""))
	}
}

func TestApplyEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("SWIFTAPI_CREDENTIALS_USERNAME=carol\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SWIFTAPI_CREDENTIALS_USERNAME", "")
	os.Unsetenv("SWIFTAPI_CREDENTIALS_USERNAME")
	if err := LoadEnvFile(envFile); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	t.Setenv("SWIFTAPI_API_METHOD", "get")
	t.Setenv("SWIFTAPI_API_TIMEOUT_SECONDS", "30")

	cfg := Default()
	if err := ApplyEnv(cfg, NewViper()); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Credentials.Username != "carol" || cfg.API.Method != "GET" || cfg.API.TimeoutSeconds != 30 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if err := LoadEnvFile(filepath.Join(dir, "nope.env")); err != nil {
		t.Fatalf("missing env file must be ignored: %v", err)
	}

	t.Setenv("SWIFTAPI_API_METHOD", "DELETE")
	if err := ApplyEnv(Default(), NewViper()); err == nil {
		t.Fatalf("expected invalid override to fail validation")
	}
}
