// Package engine drives requests through queue, poll and completion.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

const (
	DefaultTimeout      = 120 * time.Second
	DefaultPollInterval = time.Second
)

var (
	ErrNoSecret = errors.New("shared secret not set")
	ErrTimeout  = errors.New("timed out waiting for job")
)

// Submitter exchanges signed requests with one service endpoint.
type Submitter struct {
	URL          string
	Method       string
	Transport    Transport
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *logrus.Entry

	// Version is the protocol version signed into requests and expected
	// back; empty means schema.Version.
	Version string
}

// New returns a Submitter with default timing and an HTTPTransport.
func New(endpoint string) *Submitter {
	return &Submitter{
		URL:          endpoint,
		Method:       http.MethodPost,
		Transport:    &HTTPTransport{Timeout: 30 * time.Second},
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx with an id sent as X-Request-Id and logged.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func ensureRequestID(ctx context.Context) context.Context {
	if RequestID(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}

func (s *Submitter) logger() *logrus.Entry {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (s *Submitter) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

func (s *Submitter) pollInterval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}
	return DefaultPollInterval
}

func (s *Submitter) entry(ctx context.Context, req Submittable) *logrus.Entry {
	st := req.RequestStatus()
	fields := logrus.Fields{
		"api_name":   req.Schema().Name(),
		"request_id": RequestID(ctx),
		"state":      st.State.String(),
	}
	if st.JobNumber != nil {
		fields["jobnumber"] = *st.JobNumber
	}
	return s.logger().WithFields(fields)
}

// Queue validates req and sends it once. It returns false when the request
// could not be queued; the reason is on req's status. Validation problems and
// a missing secret are recorded without rejecting the request. The error is
// non-nil only for schema skew or context cancellation.
func (s *Submitter) Queue(ctx context.Context, req Submittable) (bool, error) {
	ctx = ensureRequestID(ctx)
	st := req.RequestStatus()
	if st.State.Terminal() {
		return st.State == Accepted, nil
	}
	if d, ok := req.(schema.Defaulter); ok {
		d.Defaults()
	}
	if _, secret := req.Credentials(); secret == "" {
		st.AddError(ErrNoSecret.Error())
		s.entry(ctx, req).Warn("cannot queue request without a shared secret")
		return false, nil
	}
	if err := req.Validate(); err != nil {
		st.AddError(err.Error())
		s.entry(ctx, req).WithError(err).Warn("request failed validation")
		return false, nil
	}
	if err := s.exchange(ctx, req); err != nil {
		return false, err
	}
	s.entry(ctx, req).Info("request queued")
	return st.State != Rejected, nil
}

// PollOnce re-sends req to refresh its status and reports whether it is now
// terminal.
func (s *Submitter) PollOnce(ctx context.Context, req Submittable) (bool, error) {
	ctx = ensureRequestID(ctx)
	st := req.RequestStatus()
	if st.State.Terminal() {
		return true, nil
	}
	if err := s.exchange(ctx, req); err != nil {
		return false, err
	}
	s.entry(ctx, req).Debug("polled job")
	return st.State.Terminal(), nil
}

// Submit queues req and polls until it is terminal or the timeout elapses.
// A terminal request returns its frozen outcome without network activity; a
// request already queued with a job number resumes polling.
func (s *Submitter) Submit(ctx context.Context, req Submittable) (bool, error) {
	st := req.RequestStatus()
	if st.State.Terminal() {
		return st.State == Accepted, nil
	}
	ctx = ensureRequestID(ctx)
	resuming := st.JobNumber != nil && (st.State == Queued || st.State == Processing)
	if !resuming {
		ok, err := s.Queue(ctx, req)
		if err != nil || !ok {
			return false, err
		}
	}
	if st.State.Terminal() {
		return s.finish(ctx, req), nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	limiter := rate.NewLimiter(rate.Every(s.pollInterval()), 1)
	limiter.Allow()
	for {
		if err := limiter.Wait(pollCtx); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return s.timedOut(ctx, req), nil
		}
		terminal, err := s.PollOnce(pollCtx, req)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return s.timedOut(ctx, req), nil
			}
			return false, err
		}
		if terminal {
			return s.finish(ctx, req), nil
		}
	}
}

func (s *Submitter) finish(ctx context.Context, req Submittable) bool {
	st := req.RequestStatus()
	s.entry(ctx, req).Info("job finished")
	return st.State == Accepted
}

func (s *Submitter) timedOut(ctx context.Context, req Submittable) bool {
	st := req.RequestStatus()
	job := "unassigned"
	if st.JobNumber != nil {
		job = fmt.Sprint(*st.JobNumber)
	}
	st.AddError(fmt.Sprintf("%v: job %s still %s after %s", ErrTimeout, job, st.State, s.timeout()))
	s.entry(ctx, req).Warn("timed out waiting for job")
	return false
}

// exchange signs, sends and interprets one round trip. Recoverable failures
// are folded into the status; only schema skew and cancellation return.
func (s *Submitter) exchange(ctx context.Context, req Submittable) error {
	st := req.RequestStatus()
	name := req.Schema().Name()
	username, secret := req.Credentials()

	token, err := envelope.SignVersion(req, secret, s.Version)
	if err != nil {
		st.Reject(err)
		return nil
	}
	resp, err := s.send(ctx, username, token)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.reject(ctx, req, fmt.Errorf("transport: %w", err))
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.reject(ctx, req, &TransportError{StatusCode: resp.StatusCode, Body: string(resp.Body)})
		return nil
	}
	reply, err := envelope.DecodeReply(resp.Body)
	if err != nil {
		s.reject(ctx, req, err)
		return nil
	}
	if err := envelope.ExpectVersion(reply, s.Version); err != nil {
		s.reject(ctx, req, err)
		return nil
	}

	before := st.State
	switch {
	case reply.IsStatus():
		fresh := &Status{}
		if err := schema.LoadFromWire(fresh, reply.Data); err != nil {
			return s.protocolError(ctx, req, err)
		}
		st.merge(fresh)
	case reply.Name == name:
		if err := schema.LoadFromWire(req, reply.Data); err != nil {
			return s.protocolError(ctx, req, err)
		}
		// a full result without a status of its own means the job is done
		if reply.Data["status"] == nil {
			st.advance(Accepted)
		}
	default:
		s.reject(ctx, req, fmt.Errorf("unexpected reply type %s for %s", reply.Name, name))
		return nil
	}
	if before != Accepted && st.State == Accepted {
		if pp, ok := req.(PostProcessor); ok {
			pp.PostProcess()
		}
	}
	return nil
}

func (s *Submitter) send(ctx context.Context, username, token string) (*Response, error) {
	if s.Transport == nil {
		return nil, errors.New("no transport configured")
	}
	if s.Method == http.MethodGet {
		return s.Transport.Get(ctx, s.URL+"?"+url.Values{"jwt": {token}}.Encode())
	}
	return s.Transport.Post(ctx, s.URL, url.Values{"username": {username}, "jwt": {token}})
}

func (s *Submitter) reject(ctx context.Context, req Submittable, err error) {
	req.RequestStatus().Reject(err)
	s.entry(ctx, req).WithError(err).Warn("request rejected")
}

// protocolError rejects on reply fields the client does not know; an
// unknown nested type is returned to the caller instead.
func (s *Submitter) protocolError(ctx context.Context, req Submittable, err error) error {
	if errors.Is(err, schema.ErrUnknownNestedType) {
		req.RequestStatus().AddError(err.Error())
		s.entry(ctx, req).WithError(err).Error("reply contains an unrecognized type")
		return err
	}
	s.reject(ctx, req, err)
	return nil
}
