package engine_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
	"swiftapi/internal/swifttest"
)

const secret = "s3cret"

type job struct {
	engine.Request
	Target    string
	Result    string
	processed int
}

var jobSchema = schema.Define("Test_Engine_Job", func() schema.Object { return &job{} }).
	Submitted(
		engine.UsernameField[*job](),
		schema.String("target", func(j *job) *string { return &j.Target }),
		engine.StatusField[*job](),
	).
	Returned(
		engine.StatusField[*job](),
		schema.String("result", func(j *job) *string { return &j.Result }),
	).
	Local(engine.SecretField[*job]()).
	Nested(envelope.StatusType)

func (j *job) Schema() *schema.Schema { return jobSchema }

func (j *job) Validate() error {
	if j.Target == "" {
		return errors.New("target is required")
	}
	return nil
}

func (j *job) PostProcess() { j.processed++ }

func newJob(target string) *job {
	j := &job{Target: target}
	j.SetCredentials("alice", secret)
	return j
}

type testEnv struct {
	Server    *swifttest.Server
	Submitter *engine.Submitter
	Ctx       context.Context
	Logs      *test.Hook
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	srv := swifttest.New(t, secret)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	sub := engine.New(srv.URL)
	sub.PollInterval = 10 * time.Millisecond
	sub.Timeout = 2 * time.Second
	sub.Logger = logrus.NewEntry(logger)
	return testEnv{Server: srv, Submitter: sub, Ctx: context.Background(), Logs: hook}
}

func acceptedResult(result string) swifttest.Handler {
	return func(req *envelope.Reply) swifttest.Response {
		out := &job{}
		if err := swifttest.Load(req, out); err != nil {
			return swifttest.Response{Code: http.StatusBadRequest, Body: err.Error()}
		}
		n := 42
		out.Status.JobNumber = &n
		out.Status.State = engine.Accepted
		out.Result = result
		return swifttest.Reply(out)
	}
}

func TestSubmitQueuePollAccept(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", swifttest.Sequence(
		swifttest.Fixed(swifttest.StatusReply(42, engine.Queued)),
		swifttest.Fixed(swifttest.StatusReply(42, engine.Processing)),
		acceptedResult("done"),
	))
	j := newJob("M31")
	ok, err := env.Submitter.Submit(env.Ctx, j)
	if err != nil || !ok {
		t.Fatalf("submit: ok=%v err=%v errors=%v", ok, err, j.Status.Errors)
	}
	if j.Status.State != engine.Accepted || j.Result != "done" {
		t.Fatalf("unexpected final state %s result %q", j.Status.State, j.Result)
	}
	if j.processed != 1 {
		t.Fatalf("post-process ran %d times", j.processed)
	}
	if env.Server.Calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", env.Server.Calls())
	}
	reqs := env.Server.Requests()
	if reqs[0].Username != "alice" || reqs[0].RequestID == "" {
		t.Fatalf("unexpected first request %+v", reqs[0])
	}
	if reqs[0].RequestID != reqs[2].RequestID {
		t.Fatalf("request id must be stable across polls")
	}
	if _, polled := reqs[1].Envelope.Data["status"]; !polled {
		t.Fatalf("polls must carry the job status")
	}
	if _, first := reqs[0].Envelope.Data["status"]; first {
		t.Fatalf("first queue must not carry an empty status")
	}
}

func TestSubmitTerminalIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", acceptedResult("first"))
	j := newJob("M31")
	if ok, err := env.Submitter.Submit(env.Ctx, j); err != nil || !ok {
		t.Fatalf("submit: %v %v", ok, err)
	}
	calls := env.Server.Calls()
	for i := 0; i < 2; i++ {
		ok, err := env.Submitter.Submit(env.Ctx, j)
		if err != nil || !ok {
			t.Fatalf("repeat submit: %v %v", ok, err)
		}
	}
	if env.Server.Calls() != calls {
		t.Fatalf("terminal submit must not hit the network")
	}

	env.Server.Handle("Test_Engine_Job", swifttest.Fixed(swifttest.Response{Code: http.StatusInternalServerError, Body: []byte("boom")}))
	rejected := newJob("M33")
	if ok, _ := env.Submitter.Submit(env.Ctx, rejected); ok {
		t.Fatalf("expected failure")
	}
	calls = env.Server.Calls()
	first, _ := env.Submitter.Submit(env.Ctx, rejected)
	second, _ := env.Submitter.Submit(env.Ctx, rejected)
	if first || second || env.Server.Calls() != calls {
		t.Fatalf("rejected submit must be frozen")
	}
}

func TestSubmitValidationFailureStaysOffline(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", acceptedResult("never"))
	j := newJob("")
	ok, err := env.Submitter.Submit(env.Ctx, j)
	if err != nil || ok {
		t.Fatalf("expected false,nil got %v,%v", ok, err)
	}
	if env.Server.Calls() != 0 {
		t.Fatalf("validation failure must not contact the service")
	}
	if j.Status.State == engine.Rejected || j.Status.State.Terminal() {
		t.Fatalf("validation must not reject, state %s", j.Status.State)
	}
	if len(j.Status.Errors) == 0 || !strings.Contains(j.Status.Errors[0], "target") {
		t.Fatalf("expected descriptive error, got %v", j.Status.Errors)
	}

	noSecret := &job{Target: "M31"}
	noSecret.SetCredentials("alice", "")
	ok, _ = env.Submitter.Submit(env.Ctx, noSecret)
	if ok || env.Server.Calls() != 0 || noSecret.Status.State != engine.Unknown {
		t.Fatalf("missing secret must fail offline")
	}
}

func TestVersionMismatchRejects(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", swifttest.Fixed(swifttest.WithVersion(swifttest.StatusReply(7, engine.Accepted), "9.9")))
	j := newJob("M31")
	ok, err := env.Submitter.Submit(env.Ctx, j)
	if err != nil || ok {
		t.Fatalf("expected false,nil got %v,%v", ok, err)
	}
	if j.Status.State != engine.Rejected {
		t.Fatalf("expected Rejected, got %s", j.Status.State)
	}
	msg := strings.Join(j.Status.Errors, "; ")
	if !strings.Contains(msg, "9.9") || !strings.Contains(msg, schema.Version) {
		t.Fatalf("error must mention both versions: %s", msg)
	}
	if j.processed != 0 {
		t.Fatalf("post-process must not run on rejection")
	}
}

func TestMalformedAndTransportFailuresReject(t *testing.T) {
	cases := map[string]swifttest.Response{
		"html":        {Code: http.StatusOK, Body: []byte("<html>maintenance</html>")},
		"server":      {Code: http.StatusBadGateway, Body: []byte("bad gateway")},
		"wrong type":  swifttest.OK(map[string]any{"api_name": "Swift_Other", "api_version": schema.Version}),
		"extra field": swifttest.OK(map[string]any{"api_name": "Test_Engine_Job", "api_version": schema.Version, "api_data": map[string]any{"surprise": 1}}),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.Server.Handle("Test_Engine_Job", swifttest.Fixed(resp))
			j := newJob("M31")
			ok, err := env.Submitter.Submit(env.Ctx, j)
			if err != nil || ok {
				t.Fatalf("expected false,nil got %v,%v", ok, err)
			}
			if j.Status.State != engine.Rejected || len(j.Status.Errors) == 0 {
				t.Fatalf("expected Rejected with errors, got %s %v", j.Status.State, j.Status.Errors)
			}
		})
	}
}

func TestStatusReplyUpdatesOnlyStatus(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", swifttest.Fixed(swifttest.StatusReply(99, engine.Processing)))
	j := newJob("M31")
	j.Result = "untouched"
	ok, err := env.Submitter.Queue(env.Ctx, j)
	if err != nil || !ok {
		t.Fatalf("queue: %v %v", ok, err)
	}
	if j.Status.State != engine.Processing || *j.Status.JobNumber != 99 {
		t.Fatalf("status not merged: %+v", j.Status)
	}
	if j.Target != "M31" || j.Result != "untouched" || j.Username != "alice" {
		t.Fatalf("non-status fields changed: %+v", j)
	}
}

func TestUnknownNestedTypeIsHardError(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", swifttest.Fixed(swifttest.OK(map[string]any{
		"api_name":    "Test_Engine_Job",
		"api_version": schema.Version,
		"api_data": map[string]any{
			"result": map[string]any{"api_name": "Swift_Mystery", "api_data": map[string]any{}},
		},
	})))
	j := newJob("M31")
	ok, err := env.Submitter.Submit(env.Ctx, j)
	if ok || !errors.Is(err, schema.ErrUnknownNestedType) {
		t.Fatalf("expected ErrUnknownNestedType, got %v %v", ok, err)
	}
}

func TestSubmitTimeoutLeavesStateAndResumes(t *testing.T) {
	env := newTestEnv(t)
	env.Submitter.Timeout = 60 * time.Millisecond
	env.Server.Handle("Test_Engine_Job", swifttest.Fixed(swifttest.StatusReply(5, engine.Queued)))
	j := newJob("M31")
	ok, err := env.Submitter.Submit(env.Ctx, j)
	if err != nil || ok {
		t.Fatalf("expected timeout false,nil got %v,%v", ok, err)
	}
	if j.Status.State != engine.Queued {
		t.Fatalf("timeout must not change state, got %s", j.Status.State)
	}
	found := false
	for _, e := range j.Status.Errors {
		if strings.Contains(e, engine.ErrTimeout.Error()) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected timeout error, got %v", j.Status.Errors)
	}
	var warned bool
	for _, e := range env.Logs.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "timed out waiting for job" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a timeout warning in the log")
	}

	env.Server.Handle("Test_Engine_Job", acceptedResult("late"))
	env.Submitter.Timeout = 2 * time.Second
	before := env.Server.Calls()
	ok, err = env.Submitter.Submit(env.Ctx, j)
	if err != nil || !ok || j.Result != "late" {
		t.Fatalf("resume: %v %v %q", ok, err, j.Result)
	}
	reqs := env.Server.Requests()[before:]
	if _, polled := reqs[0].Envelope.Data["status"]; !polled {
		t.Fatalf("resume must poll the existing job instead of re-queueing")
	}
}

func TestSubmitHonoursCancellation(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", swifttest.Fixed(swifttest.StatusReply(5, engine.Queued)))
	ctx, cancel := context.WithCancel(env.Ctx)
	j := newJob("M31")
	if ok, err := env.Submitter.Queue(ctx, j); err != nil || !ok {
		t.Fatalf("queue: %v %v", ok, err)
	}
	cancel()
	if _, err := env.Submitter.Submit(ctx, j); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGetMethodSendsTokenInQuery(t *testing.T) {
	env := newTestEnv(t)
	env.Submitter.Method = http.MethodGet
	env.Server.Handle("Test_Engine_Job", acceptedResult("via get"))
	j := newJob("M31")
	if ok, err := env.Submitter.Submit(env.Ctx, j); err != nil || !ok {
		t.Fatalf("submit: %v %v", ok, err)
	}
	if env.Server.Requests()[0].Method != http.MethodGet {
		t.Fatalf("expected GET")
	}
}

func TestStandaloneStatusLookup(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle(envelope.StatusType, func(req *envelope.Reply) swifttest.Response {
		in := &engine.Status{}
		if err := swifttest.Load(req, in); err != nil || in.JobNumber == nil {
			return swifttest.Response{Code: http.StatusBadRequest, Body: []byte("jobnumber required")}
		}
		return swifttest.StatusReply(*in.JobNumber, engine.Accepted)
	})
	n := 1234
	st := &engine.Status{JobNumber: &n}
	st.SetCredentials("alice", secret)
	ok, err := env.Submitter.Submit(env.Ctx, st)
	if err != nil || !ok || st.State != engine.Accepted {
		t.Fatalf("status lookup: %v %v %s %v", ok, err, st.State, st.Errors)
	}

	missing := &engine.Status{}
	missing.SetCredentials("alice", secret)
	if ok, _ := env.Submitter.Submit(env.Ctx, missing); ok {
		t.Fatalf("lookup without jobnumber must fail validation")
	}
}

func TestStateTransitions(t *testing.T) {
	for _, name := range []string{"queued", "Processing", " ACCEPTED "} {
		if _, err := engine.ParseState(name); err != nil {
			t.Fatalf("ParseState(%q): %v", name, err)
		}
	}
	if _, err := engine.ParseState("lost"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
	st := &engine.Status{State: engine.Accepted}
	st.Reject(errors.New("late failure"))
	if st.State != engine.Accepted {
		t.Fatalf("terminal state must be frozen")
	}
}

// withState answers with the full result carrying its own job status.
func withState(state engine.State, result string) swifttest.Handler {
	return func(req *envelope.Reply) swifttest.Response {
		out := &job{}
		if err := swifttest.Load(req, out); err != nil {
			return swifttest.Response{Code: http.StatusBadRequest, Body: err.Error()}
		}
		n := 42
		out.Status.JobNumber = &n
		out.Status.State = state
		out.Result = result
		return swifttest.Reply(out)
	}
}

func TestFullReplyKeepsReportedState(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", swifttest.Sequence(
		withState(engine.Queued, ""),
		withState(engine.Processing, ""),
		withState(engine.Accepted, "done"),
	))
	j := newJob("M31")
	ok, err := env.Submitter.Queue(env.Ctx, j)
	if err != nil || !ok {
		t.Fatalf("queue: ok=%v err=%v", ok, err)
	}
	if j.Status.State != engine.Queued || j.processed != 0 {
		t.Fatalf("after queue: state=%s processed=%d", j.Status.State, j.processed)
	}
	if done, err := env.Submitter.PollOnce(env.Ctx, j); err != nil || done {
		t.Fatalf("first poll: done=%v err=%v", done, err)
	}
	if j.Status.State != engine.Processing || j.processed != 0 {
		t.Fatalf("after poll: state=%s processed=%d", j.Status.State, j.processed)
	}

	ok, err = env.Submitter.Submit(env.Ctx, j)
	if err != nil || !ok {
		t.Fatalf("submit: ok=%v err=%v errors=%v", ok, err, j.Status.Errors)
	}
	if j.Status.State != engine.Accepted || j.Result != "done" || j.processed != 1 {
		t.Fatalf("final: state=%s result=%q processed=%d", j.Status.State, j.Result, j.processed)
	}
	if env.Server.Calls() != 3 {
		t.Fatalf("calls = %d", env.Server.Calls())
	}
}

func TestFullReplyWithoutStatusIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.Server.Handle("Test_Engine_Job", swifttest.Fixed(swifttest.OK(map[string]any{
		schema.NameKey:    "Test_Engine_Job",
		schema.VersionKey: schema.Version,
		schema.DataKey:    map[string]any{"result": "bare"},
	})))
	j := newJob("M31")
	ok, err := env.Submitter.Queue(env.Ctx, j)
	if err != nil || !ok {
		t.Fatalf("queue: ok=%v err=%v errors=%v", ok, err, j.Status.Errors)
	}
	if j.Status.State != engine.Accepted || j.Result != "bare" || j.processed != 1 {
		t.Fatalf("state=%s result=%q processed=%d", j.Status.State, j.Result, j.processed)
	}
}
