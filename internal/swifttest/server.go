// Package swifttest runs an in-process scheduling service for tests. It
// verifies signed tokens and answers each request type from scripted
// handlers.
package swifttest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// Response is a scripted reply. Body is JSON-encoded unless it is []byte.
type Response struct {
	Code int
	Body any
}

// Handler answers one verified request.
type Handler func(req *envelope.Reply) Response

// Server is a fake service bound to a shared secret.
type Server struct {
	*httptest.Server
	Secret string

	mu       sync.Mutex
	handlers map[string]Handler
	requests []Request
}

// Request is one verified call as the server saw it.
type Request struct {
	Method    string
	Username  string
	RequestID string
	Envelope  *envelope.Reply
}

type envelopeKey struct{}

// New starts a server that is closed when the test ends.
func New(t testing.TB, secret string) *Server {
	t.Helper()
	s := &Server{Secret: secret, handlers: map[string]Handler{}}
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.authMiddleware)
	router.Post("/", s.serve)
	router.Get("/", s.serve)
	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

// Handle installs the handler for one api_name.
func (s *Server) Handle(apiName string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[apiName] = h
}

// Calls is the number of verified requests received.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of every verified request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.FormValue("jwt"))
		if token == "" {
			respondError(w, http.StatusUnauthorized, "jwt required")
			return
		}
		env, err := envelope.Parse(token, s.Secret)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		ctx := context.WithValue(r.Context(), envelopeKey{}, env)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	env := r.Context().Value(envelopeKey{}).(*envelope.Reply)
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:    r.Method,
		Username:  r.FormValue("username"),
		RequestID: r.Header.Get("X-Request-Id"),
		Envelope:  env,
	})
	h, ok := s.handlers[env.Name]
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no handler for %s", env.Name))
		return
	}
	resp := h(env)
	if resp.Code == 0 {
		resp.Code = http.StatusOK
	}
	if raw, ok := resp.Body.([]byte); ok {
		w.WriteHeader(resp.Code)
		_, _ = w.Write(raw)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	_ = json.NewEncoder(w).Encode(resp.Body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": http.StatusText(status), "message": msg}})
}

// OK wraps a body in a 200 response.
func OK(body any) Response { return Response{Code: http.StatusOK, Body: body} }

// Reply answers with the full result for o.
func Reply(o schema.Object) Response { return OK(schema.ReplyEnvelope(o)) }

// StatusReply answers with a queue-status envelope.
func StatusReply(jobnumber int, state engine.State, errs ...string) Response {
	st := &engine.Status{JobNumber: &jobnumber, State: state, Errors: errs}
	return OK(schema.ReplyEnvelope(st))
}

// WithVersion rewrites the api_version of a response envelope.
func WithVersion(r Response, version string) Response {
	if env, ok := r.Body.(map[string]any); ok {
		out := make(map[string]any, len(env))
		for k, v := range env {
			out[k] = v
		}
		out[schema.VersionKey] = version
		r.Body = out
	}
	return r
}

// Sequence answers with each handler in turn, repeating the last one.
func Sequence(hs ...Handler) Handler {
	var mu sync.Mutex
	i := 0
	return func(req *envelope.Reply) Response {
		mu.Lock()
		h := hs[i]
		if i < len(hs)-1 {
			i++
		}
		mu.Unlock()
		return h(req)
	}
}

// Fixed always returns r.
func Fixed(r Response) Handler {
	return func(*envelope.Reply) Response { return r }
}

// Load decodes a request's data into o, for handlers that echo fields back.
func Load(req *envelope.Reply, o schema.Object) error {
	return schema.LoadFromWire(o, req.Data)
}
