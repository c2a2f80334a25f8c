package swiftsdk

import (
	"errors"
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

const (
	// DefaultVisLength is the visibility span computed when none is given.
	DefaultVisLength = 7 * 24 * time.Hour
	// DefaultHiResVisLength applies to high-resolution calculations, which
	// are much slower server side.
	DefaultHiResVisLength = 24 * time.Hour
)

// VisQuery asks when a sky position is observable by Swift.
type VisQuery struct {
	engine.Request

	Coords domain.Coordinates
	Range  domain.DateRange
	HiRes  *bool

	Windows []*VisWindow

	// defaulted is the length Defaults last filled in.
	defaulted time.Duration
}

// VisWindow is one interval during which the target is visible.
type VisWindow struct {
	Begin time.Time
	End   time.Time
}

func (w *VisWindow) Length() time.Duration { return w.End.Sub(w.Begin) }

var visWindowSchema = schema.Define("Swift_VisWindow", func() schema.Object { return &VisWindow{} }).
	Returned(
		schema.Time("begin", func(w *VisWindow) *time.Time { return &w.Begin }),
		schema.Time("end", func(w *VisWindow) *time.Time { return &w.End }),
		schema.Func("length",
			func(w *VisWindow) any {
				if w.Begin.IsZero() || w.End.IsZero() {
					return nil
				}
				return w.Length()
			},
			// derived from begin and end
			func(*VisWindow, any) error { return nil }),
	)

func (w *VisWindow) Schema() *schema.Schema { return visWindowSchema }

var visQuerySchema = schema.Define("Swift_VisQuery", func() schema.Object { return &VisQuery{} }).
	Submitted(
		engine.UsernameField[*VisQuery](),
		raField[*VisQuery](),
		decField[*VisQuery](),
		beginField[*VisQuery](),
		lengthField[*VisQuery](),
		schema.Bool("hires", func(q *VisQuery) **bool { return &q.HiRes }),
		engine.StatusField[*VisQuery](),
	).
	Returned(
		schema.List("windows", func(q *VisQuery) *[]*VisWindow { return &q.Windows }, schema.As[*VisWindow]),
	).
	Local(engine.SecretField[*VisQuery]()).
	Nested(envelope.StatusType, "Swift_VisWindow")

func (q *VisQuery) Schema() *schema.Schema { return visQuerySchema }

func (q *VisQuery) coordinates() *domain.Coordinates { return &q.Coords }

func (q *VisQuery) dateRange() *domain.DateRange { return &q.Range }

// Defaults sets the span to a week, or a day for high-resolution runs. A
// length it filled in earlier is re-derived, so toggling hires after
// construction still picks the matching span.
func (q *VisQuery) Defaults() {
	if l, ok := q.Range.Length(); ok && (q.defaulted == 0 || l != q.defaulted) {
		return
	}
	want := DefaultVisLength
	if q.HiRes != nil && *q.HiRes {
		want = DefaultHiResVisLength
	}
	q.Range.SetLength(want)
	q.defaulted = want
}

func (q *VisQuery) Validate() error {
	if !q.Coords.IsSet() {
		return errors.New("ra and dec are required")
	}
	if d, ok := q.Range.Length(); ok && d <= 0 {
		return errors.New("length must be positive")
	}
	return nil
}

// Visible reports whether t falls inside any returned window.
func (q *VisQuery) Visible(t time.Time) bool {
	for _, w := range q.Windows {
		if !t.Before(w.Begin) && t.Before(w.End) {
			return true
		}
	}
	return false
}
