package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// State is the lifecycle position of a submitted request.
type State int

const (
	Unknown State = iota
	Queued
	Processing
	Accepted
	Rejected
)

var stateNames = [...]string{"Unknown", "Queued", "Processing", "Accepted", "Rejected"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == Accepted || s == Rejected }

// ParseState reads a state name, ignoring case.
func ParseState(in string) (State, error) {
	for i, name := range stateNames {
		if strings.EqualFold(strings.TrimSpace(in), name) {
			return State(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown state %q", in)
}

func ensureStateTransition(oldState, newState State) error {
	if oldState == newState {
		return nil
	}
	switch oldState {
	case Unknown:
		return nil
	case Queued:
		if newState == Processing || newState.Terminal() {
			return nil
		}
	case Processing:
		if newState.Terminal() {
			return nil
		}
	}
	return fmt.Errorf("invalid state transition %s -> %s", oldState, newState)
}

// Status is the server-side view of one job. It travels nested in every
// request and can also be submitted on its own to look a job up by number.
type Status struct {
	Username     string
	SharedSecret string
	JobNumber    *int
	State        State
	TooID        *int
	Errors       []string
	Warnings     []string
	Timestamp    time.Time
	Began        time.Time
	Completed    time.Time
}

var statusSchema = schema.Define(envelope.StatusType, func() schema.Object { return &Status{} }).
	Submitted(
		schema.String("username", func(s *Status) *string { return &s.Username }),
		schema.Int("jobnumber", func(s *Status) **int { return &s.JobNumber }),
	).
	Returned(
		schema.Func("status",
			func(s *Status) any {
				if s.State == Unknown {
					return nil
				}
				return s.State.String()
			},
			func(s *Status, v any) error {
				name, err := schema.AsString(v)
				if err != nil {
					return err
				}
				st, err := ParseState(name)
				if err != nil {
					return err
				}
				s.State = st
				return nil
			}).Raw(),
		schema.Int("too_id", func(s *Status) **int { return &s.TooID }),
		schema.Int("jobnumber", func(s *Status) **int { return &s.JobNumber }),
		schema.List("errors", func(s *Status) *[]string { return &s.Errors }, schema.AsString),
		schema.List("warnings", func(s *Status) *[]string { return &s.Warnings }, schema.AsString),
		schema.Time("timestamp", func(s *Status) *time.Time { return &s.Timestamp }),
		schema.Time("began", func(s *Status) *time.Time { return &s.Began }),
		schema.Time("completed", func(s *Status) *time.Time { return &s.Completed }),
	).
	Local(
		schema.String("shared_secret", func(s *Status) *string { return &s.SharedSecret }),
	)

func (s *Status) Schema() *schema.Schema { return statusSchema }

func (s *Status) RequestStatus() *Status { return s }

func (s *Status) Credentials() (string, string) { return s.Username, s.SharedSecret }

func (s *Status) SetCredentials(username, secret string) {
	s.Username = username
	s.SharedSecret = secret
}

func (s *Status) Validate() error {
	if s.JobNumber == nil {
		return errors.New("jobnumber is required to look up a job")
	}
	return nil
}

// Empty reports whether the server has never seen this job.
func (s *Status) Empty() bool {
	return s.JobNumber == nil && s.State == Unknown
}

// AddError records an error once.
func (s *Status) AddError(msg string) {
	if !slices.Contains(s.Errors, msg) {
		s.Errors = append(s.Errors, msg)
	}
}

func (s *Status) AddWarning(msg string) {
	if !slices.Contains(s.Warnings, msg) {
		s.Warnings = append(s.Warnings, msg)
	}
}

// Reject records err and moves to Rejected unless already terminal.
func (s *Status) Reject(err error) {
	s.AddError(err.Error())
	if !s.State.Terminal() {
		s.State = Rejected
	}
}

func (s *Status) advance(to State) {
	if ensureStateTransition(s.State, to) == nil {
		s.State = to
	}
}

// merge folds a server-reported status into s. A terminal status is frozen.
func (s *Status) merge(in *Status) {
	if in == nil || in == s || s.State.Terminal() {
		return
	}
	if in.JobNumber != nil {
		n := *in.JobNumber
		s.JobNumber = &n
	}
	if in.TooID != nil {
		n := *in.TooID
		s.TooID = &n
	}
	for _, e := range in.Errors {
		s.AddError(e)
	}
	for _, w := range in.Warnings {
		s.AddWarning(w)
	}
	if !in.Timestamp.IsZero() {
		s.Timestamp = in.Timestamp
	}
	if !in.Began.IsZero() {
		s.Began = in.Began
	}
	if !in.Completed.IsZero() {
		s.Completed = in.Completed
	}
	s.advance(in.State)
}
