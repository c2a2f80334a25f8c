package swiftsdk

import (
	"errors"
	"fmt"
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// SAA lists South Atlantic Anomaly passages in a time range. With BAT set the
// BAT-specific SAA boundary is used.
type SAA struct {
	engine.Request

	Range domain.DateRange
	BAT   *bool

	Entries []*SAAEntry
}

// SAAEntry is one passage, in spacecraft time.
type SAAEntry struct {
	Begin domain.TimeValue
	End   domain.TimeValue
}

// Length returns the passage duration.
func (e *SAAEntry) Length() time.Duration {
	d, _ := e.End.Sub(e.Begin)
	return d
}

var saaEntrySchema = schema.Define("Swift_SAA_Entry", func() schema.Object { return &SAAEntry{} }).
	Returned(
		schema.TimeVal("begin", func(e *SAAEntry) *domain.TimeValue { return &e.Begin }),
		schema.TimeVal("end", func(e *SAAEntry) *domain.TimeValue { return &e.End }),
	).
	Nested(schema.TimeValueType)

func (e *SAAEntry) Schema() *schema.Schema { return saaEntrySchema }

var saaSchema = schema.Define("Swift_SAA", func() schema.Object { return &SAA{} }).
	Submitted(
		engine.UsernameField[*SAA](),
		beginField[*SAA](),
		endField[*SAA](),
		schema.Bool("bat", func(s *SAA) **bool { return &s.BAT }),
		engine.StatusField[*SAA](),
	).
	Returned(
		schema.List("entries", func(s *SAA) *[]*SAAEntry { return &s.Entries }, schema.As[*SAAEntry]),
	).
	Local(
		engine.SecretField[*SAA](),
		lengthField[*SAA](),
	).
	Nested(envelope.StatusType, "Swift_SAA_Entry")

func (s *SAA) Schema() *schema.Schema { return saaSchema }

func (s *SAA) dateRange() *domain.DateRange { return &s.Range }

func (s *SAA) Validate() error {
	if _, ok := s.Range.Begin(); !ok {
		return errors.New("begin is required")
	}
	if _, ok := s.Range.End(); !ok {
		return errors.New("end or length is required")
	}
	return s.Range.Validate()
}

// Active reports whether t falls inside a returned passage. Both are compared
// in spacecraft time.
func (s *SAA) Active(t domain.TimeValue) bool {
	for _, e := range s.Entries {
		after, err := t.Sub(e.Begin)
		if err != nil {
			continue
		}
		before, err := e.End.Sub(t)
		if err != nil {
			continue
		}
		if after >= 0 && before > 0 {
			return true
		}
	}
	return false
}

func (s *SAA) CollectTimestamps() []domain.TimeValue {
	out := make([]domain.TimeValue, 0, 2*len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Begin, e.End)
	}
	return out
}

func (s *SAA) ReplaceTimestamps(values []domain.TimeValue) error {
	if len(values) != 2*len(s.Entries) {
		return fmt.Errorf("got %d timestamps for %d passages", len(values), len(s.Entries))
	}
	for i, e := range s.Entries {
		e.Begin, e.End = values[2*i], values[2*i+1]
	}
	return nil
}
