// Package swiftsdk is a client for the Swift TOO scheduling API.
package swiftsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"swiftapi/internal/app"
	"swiftapi/internal/config"
	"swiftapi/internal/credentials"
	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/events"
	"swiftapi/internal/schema"
)

type (
	Config              = config.Config
	Status              = engine.Status
	State               = engine.State
	Request             = engine.Request
	Submittable         = engine.Submittable
	Transport           = engine.Transport
	HTTPTransport       = engine.HTTPTransport
	TransportError      = engine.TransportError
	Values              = schema.Values
	TimeValue           = domain.TimeValue
	DateRange           = domain.DateRange
	ObsID               = domain.ObsID
	Coordinates         = domain.Coordinates
	CoordinateConverter = domain.CoordinateConverter
	TimestampHolder     = domain.TimestampHolder
	CredentialStore     = credentials.Store
	Event               = events.Event
)

const (
	Unknown    = engine.Unknown
	Queued     = engine.Queued
	Processing = engine.Processing
	Accepted   = engine.Accepted
	Rejected   = engine.Rejected
)

var (
	ErrNoSecret   = engine.ErrNoSecret
	ErrTimeout    = engine.ErrTimeout
	ErrNoUsername = app.ErrNoUsername
)

// Client submits requests to one service endpoint.
type Client struct {
	cfg       *config.Config
	submitter *engine.Submitter
	store     credentials.Store
	logger    *logrus.Entry
	converter domain.CoordinateConverter
	journal   *events.Writer
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, typically with a test double.
func WithTransport(t engine.Transport) Option {
	return func(c *Client) { c.submitter.Transport = t }
}

// WithCredentialStore sets where shared secrets are looked up and saved.
func WithCredentialStore(s credentials.Store) Option {
	return func(c *Client) { c.store = s }
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) { c.logger = l }
}

// WithCoordinateConverter installs the sky-coordinate adapter used by
// Coordinates.SetSky and Coordinates.Sky.
func WithCoordinateConverter(conv domain.CoordinateConverter) Option {
	return func(c *Client) { c.converter = conv }
}

// LoadConfig reads the YAML or TOML file at path, then overlays SWIFTAPI_*
// environment variables, including those from a .env file next to it. An
// empty path means swiftapi.yml in the working directory; a missing file
// leaves the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = config.Path("")
	}
	if err := config.LoadEnvFile(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.ApplyEnv(cfg, config.NewViper()); err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}
	return cfg, nil
}

// New creates a client from cfg. A nil cfg is read with LoadConfig("").
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		loaded, err := LoadConfig("")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg}
	c.submitter = &engine.Submitter{
		URL:          cfg.API.URL,
		Method:       strings.ToUpper(cfg.API.Method),
		Timeout:      cfg.Timeout(),
		PollInterval: cfg.PollInterval(),
		Version:      cfg.API.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		logger, err := app.NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		c.logger = logrus.NewEntry(logger)
	}
	c.submitter.Logger = c.logger
	if c.submitter.Transport == nil {
		c.submitter.Transport = &engine.HTTPTransport{Timeout: cfg.RequestTimeout(), Logger: c.logger}
	}
	if c.store == nil {
		store, err := app.OpenStore(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		c.store = store
	}
	if s, ok := c.store.(*credentials.SQLiteStore); ok {
		c.journal = &events.Writer{DB: s.DB}
	}
	return c, nil
}

// Converter returns the configured sky-coordinate adapter, or nil.
func (c *Client) Converter() domain.CoordinateConverter { return c.converter }

// Close releases the credential store when it holds resources.
func (c *Client) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Submit fills in missing credentials, queues req and waits for the job to
// finish. It reports whether the job was accepted; the reasons for a false
// result are on req's status.
func (c *Client) Submit(ctx context.Context, req engine.Submittable) (bool, error) {
	if err := c.authorize(ctx, req); err != nil {
		return false, err
	}
	ok, err := c.submitter.Submit(ctx, req)
	c.record(ctx, "submit", req)
	return ok, err
}

// Queue fills in missing credentials and sends req once without waiting.
func (c *Client) Queue(ctx context.Context, req engine.Submittable) (bool, error) {
	if err := c.authorize(ctx, req); err != nil {
		return false, err
	}
	ok, err := c.submitter.Queue(ctx, req)
	c.record(ctx, "queue", req)
	return ok, err
}

// Poll refreshes a queued request once and reports whether it is terminal.
func (c *Client) Poll(ctx context.Context, req engine.Submittable) (bool, error) {
	if err := c.authorize(ctx, req); err != nil {
		return false, err
	}
	done, err := c.submitter.PollOnce(ctx, req)
	c.record(ctx, "poll", req)
	return done, err
}

// History lists journaled calls for username, newest first. It is empty
// unless the client uses the SQLite credential store.
func (c *Client) History(ctx context.Context, username string, limit int) ([]Event, error) {
	if c.journal == nil {
		return nil, nil
	}
	return c.journal.List(ctx, username, limit)
}

// record journals the outcome of a call; failures are only logged.
func (c *Client) record(ctx context.Context, evtType string, req engine.Submittable) {
	if c.journal == nil {
		return
	}
	st := req.RequestStatus()
	payload := events.Payload{}
	if len(st.Errors) > 0 {
		payload["errors"] = st.Errors
	}
	if st.TooID != nil {
		payload["too_id"] = *st.TooID
	}
	username, _ := req.Credentials()
	// journal even when the caller's context is done
	ctx = context.WithoutCancel(ctx)
	if err := c.journal.Append(ctx, evtType, req.Schema().Name(), username, st.JobNumber, st.State.String(), payload); err != nil {
		c.logger.WithError(err).Warn("could not journal request")
	}
}

// authorize completes the request's username and secret. A missing username
// is recorded on the status rather than returned.
func (c *Client) authorize(ctx context.Context, req engine.Submittable) error {
	if req.RequestStatus().State.Terminal() {
		return nil
	}
	username, secret := req.Credentials()
	if username != "" && secret != "" {
		if c.store != nil {
			if err := c.store.Set(ctx, username, secret); err != nil {
				c.logger.WithError(err).WithField("username", username).Warn("could not save shared secret")
			}
		}
		return nil
	}
	user, stored, err := app.ResolveCredentials(ctx, username, c.cfg, c.store, c.logger)
	if errors.Is(err, app.ErrNoUsername) {
		req.RequestStatus().AddError(err.Error())
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}
	if secret == "" {
		secret = stored
	}
	req.SetCredentials(user, secret)
	return nil
}

// Construct assigns positional and keyword values to o and applies its
// defaults.
func Construct(o schema.Object, positional []any, kw Values) error {
	return schema.Construct(o, positional, kw)
}

// Print writes o as a two-column table.
func Print(w io.Writer, o schema.Object) { schema.Table(w, o) }

// PrintList writes one row per item.
func PrintList[E schema.Object](w io.Writer, items []E) { schema.ListTable(w, items) }

// Ptr returns a pointer to v, for optional fields.
func Ptr[T any](v T) *T { return &v }
