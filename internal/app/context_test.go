package app

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"swiftapi/internal/config"
	"swiftapi/internal/credentials"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("keyring locked")
}

func (brokenStore) Set(context.Context, string, string) error { return errors.New("keyring locked") }

func TestResolveCredentialsOrder(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	if err := store.Set(ctx, "stored", "from-store"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	user, secret, err := ResolveCredentials(ctx, "", config.Default(), store, nil)
	if err != nil || user != "stored" || secret != "from-store" {
		t.Fatalf("single stored user: %q %q %v", user, secret, err)
	}

	cfg := config.Default()
	cfg.Credentials.Username = "cfguser"
	cfg.Credentials.SharedSecret = "cfgsecret"
	user, secret, err = ResolveCredentials(ctx, "", cfg, store, nil)
	if err != nil || user != "cfguser" || secret != "cfgsecret" {
		t.Fatalf("config: %q %q %v", user, secret, err)
	}
	if s, ok, _ := store.Get(ctx, "cfguser"); !ok || s != "cfgsecret" {
		t.Fatalf("config secret should be saved to the store")
	}

	user, secret, err = ResolveCredentials(ctx, "stored", cfg, store, nil)
	if err != nil || user != "stored" || secret != "from-store" {
		t.Fatalf("override: %q %q %v", user, secret, err)
	}

	_, _, err = ResolveCredentials(ctx, "", config.Default(), credentials.NewMemoryStore(), nil)
	if !errors.Is(err, ErrNoUsername) {
		t.Fatalf("expected ErrNoUsername, got %v", err)
	}
}

func TestResolveCredentialsSwallowsStoreFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cfg := config.Default()
	cfg.Credentials.Username = "alice"
	cfg.Credentials.SharedSecret = "s"
	user, secret, err := ResolveCredentials(context.Background(), "", cfg, brokenStore{}, logrus.NewEntry(logger))
	if err != nil || user != "alice" || secret != "s" {
		t.Fatalf("unexpected result %q %q %v", user, secret, err)
	}
	cfg.Credentials.SharedSecret = ""
	_, secret, err = ResolveCredentials(context.Background(), "", cfg, brokenStore{}, logrus.NewEntry(logger))
	if err != nil || secret != "" {
		t.Fatalf("read failure must be swallowed: %q %v", secret, err)
	}
	if len(hook.AllEntries()) != 2 {
		t.Fatalf("expected two warnings, got %d", len(hook.AllEntries()))
	}
}

func TestOpenStoreAndLogger(t *testing.T) {
	ctx := context.Background()
	s, err := OpenStore(ctx, config.Default())
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := s.(*credentials.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
	cfg := config.Default()
	cfg.Credentials.StorePath = t.TempDir()
	s, err = OpenStore(ctx, cfg)
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	s.(*credentials.SQLiteStore).Close()

	logger, err := NewLogger(config.LogConfig{Level: "debug", Format: "json"})
	if err != nil || logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("logger: %v", err)
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected json formatter")
	}
	if _, err := NewLogger(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
}
