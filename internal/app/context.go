package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"swiftapi/internal/config"
	"swiftapi/internal/credentials"
)

// ErrNoUsername means no username was given and none could be inferred.
var ErrNoUsername = errors.New("username not specified; set credentials.username or SWIFTAPI_CREDENTIALS_USERNAME")

// ResolveCredentials picks the active username and secret. It prefers the
// override, then config, then the only user in the store. A secret from config
// is saved to the store; store failures are logged and otherwise ignored.
// An empty secret is not an error here; submission reports it.
func ResolveCredentials(ctx context.Context, usernameOverride string, cfg *config.Config, store credentials.Store, log *logrus.Entry) (string, string, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	username := usernameOverride
	if username == "" && cfg != nil {
		username = cfg.Credentials.Username
	}
	if username == "" {
		u, err := singleUser(ctx, store)
		if err != nil {
			log.WithError(err).Warn("could not list stored credentials")
		}
		username = u
	}
	if username == "" {
		return "", "", ErrNoUsername
	}

	if cfg != nil && cfg.Credentials.SharedSecret != "" && (usernameOverride == "" || usernameOverride == cfg.Credentials.Username) {
		secret := cfg.Credentials.SharedSecret
		if store != nil {
			if err := store.Set(ctx, username, secret); err != nil {
				log.WithError(err).WithField("username", username).Warn("could not save shared secret")
			}
		}
		return username, secret, nil
	}
	if store == nil {
		return username, "", nil
	}
	secret, ok, err := store.Get(ctx, username)
	if err != nil {
		log.WithError(err).WithField("username", username).Warn("could not read shared secret")
		return username, "", nil
	}
	if !ok {
		return username, "", nil
	}
	return username, secret, nil
}

func singleUser(ctx context.Context, store credentials.Store) (string, error) {
	lister, ok := store.(credentials.Lister)
	if !ok {
		return "", nil
	}
	users, err := lister.Users(ctx)
	if err != nil {
		return "", err
	}
	if len(users) == 1 {
		return users[0], nil
	}
	return "", nil
}

// OpenStore opens the store named by cfg, falling back to memory when no
// store path is configured.
func OpenStore(ctx context.Context, cfg *config.Config) (credentials.Store, error) {
	if cfg == nil || cfg.Credentials.StorePath == "" {
		return credentials.NewMemoryStore(), nil
	}
	s, err := credentials.OpenSQLite(ctx, cfg.Credentials.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return s, nil
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cfg.Level != "" {
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		logger.SetLevel(lvl)
	}
	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
