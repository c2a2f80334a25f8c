package swiftsdk

import (
	"errors"
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// Calendar fetches the observing calendar of an accepted TOO or target.
type Calendar struct {
	engine.Request

	TooID    *int
	Coords   domain.Coordinates
	Radius   *float64
	TargetID *int

	Entries []*CalendarEntry
}

// CalendarEntry is one scheduled visit.
type CalendarEntry struct {
	Start    time.Time
	Stop     time.Time
	XRTMode  *int
	UVOTMode *int
	BATMode  *int
	Duration *float64
	AsFlown  *float64
	Merit    *float64
	TargetID *int
}

// Flown reports whether any of the visit has been observed.
func (e *CalendarEntry) Flown() bool { return e.AsFlown != nil && *e.AsFlown > 0 }

var calendarEntrySchema = schema.Define("Swift_Calendar_Entry", func() schema.Object { return &CalendarEntry{} }).
	Returned(
		schema.Time("start", func(e *CalendarEntry) *time.Time { return &e.Start }),
		schema.Time("stop", func(e *CalendarEntry) *time.Time { return &e.Stop }),
		schema.Int("xrt_mode", func(e *CalendarEntry) **int { return &e.XRTMode }),
		uvotModeField("uvot_mode", func(e *CalendarEntry) **int { return &e.UVOTMode }),
		schema.Int("bat_mode", func(e *CalendarEntry) **int { return &e.BATMode }),
		schema.Float("duration", func(e *CalendarEntry) **float64 { return &e.Duration }),
		schema.Float("asflown", func(e *CalendarEntry) **float64 { return &e.AsFlown }),
		schema.Float("merit", func(e *CalendarEntry) **float64 { return &e.Merit }),
		schema.Int("targetid", func(e *CalendarEntry) **int { return &e.TargetID }),
	)

func (e *CalendarEntry) Schema() *schema.Schema { return calendarEntrySchema }

var calendarSchema = schema.Define("Swift_Calendar", func() schema.Object { return &Calendar{} }).
	Submitted(
		engine.UsernameField[*Calendar](),
		schema.Int("too_id", func(c *Calendar) **int { return &c.TooID }),
		raField[*Calendar](),
		decField[*Calendar](),
		schema.Float("radius", func(c *Calendar) **float64 { return &c.Radius }),
		schema.Int("targetid", func(c *Calendar) **int { return &c.TargetID }),
		engine.StatusField[*Calendar](),
	).
	Returned(
		schema.List("entries", func(c *Calendar) *[]*CalendarEntry { return &c.Entries }, schema.As[*CalendarEntry]),
	).
	Local(engine.SecretField[*Calendar]()).
	Nested(envelope.StatusType, "Swift_Calendar_Entry")

func (c *Calendar) Schema() *schema.Schema { return calendarSchema }

func (c *Calendar) coordinates() *domain.Coordinates { return &c.Coords }

func (c *Calendar) Validate() error {
	if c.TooID == nil && c.TargetID == nil && !c.Coords.IsSet() {
		return errors.New("one of too_id, targetid or ra/dec is required")
	}
	return nil
}
