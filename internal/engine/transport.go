package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Response is what a transport hands back: the raw status and body.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport moves a signed token to the service.
type Transport interface {
	Post(ctx context.Context, endpoint string, form url.Values) (*Response, error)
	Get(ctx context.Context, endpoint string) (*Response, error)
}

// TransportError wraps non-2xx responses.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: status=%d body=%s", e.StatusCode, e.Body)
}

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
	Logger     *logrus.Entry
}

func (t *HTTPTransport) Post(ctx context.Context, endpoint string, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req)
}

func (t *HTTPTransport) Get(ctx context.Context, endpoint string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return t.do(req)
}

func (t *HTTPTransport) do(req *http.Request) (*Response, error) {
	if t.HTTPClient == nil {
		t.HTTPClient = &http.Client{Timeout: t.Timeout}
	}
	if id := RequestID(req.Context()); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	start := time.Now()
	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	t.logger().WithFields(logrus.Fields{
		"method":      req.Method,
		"status_code": resp.StatusCode,
		"elapsed":     time.Since(start).String(),
		"request_id":  RequestID(req.Context()),
	}).Debug("swift api exchange")
	return &Response{StatusCode: resp.StatusCode, Body: b}, nil
}

func (t *HTTPTransport) logger() *logrus.Entry {
	if t.Logger != nil {
		return t.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
