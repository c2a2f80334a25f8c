package swiftsdk

import (
	"fmt"
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// DefaultGUANOLimit caps the number of GUANO entries returned.
const DefaultGUANOLimit = 1000

// GUANO queries BAT event-data dumps triggered by the Gamma-ray Urgent
// Archiver for Novel Opportunities.
type GUANO struct {
	engine.Request

	Range        domain.DateRange
	TriggerTime  time.Time
	TriggerType  string
	Limit        *int
	Successful   *bool
	Subthreshold *bool

	Entries []*GUANOEntry
}

// GUANOEntry is one dump and the trigger that caused it.
type GUANOEntry struct {
	TriggerType string
	TriggerTime domain.TimeValue
	Offset      *float64
	Duration    *float64
	QuadsAway   *int
	ObsID       *domain.ObsID
	RA          *float64
	Dec         *float64
	Data        *GUANOData
}

// GUANOData describes the event data that reached the ground.
type GUANOData struct {
	Subthreshold *bool
	Filenames    []string
	ACS          string
	Begin        time.Time
	End          time.Time
	Exposure     *float64
	GTI          *GUANOGTI
}

// GUANOGTI is the good time interval of a dump.
type GUANOGTI struct {
	Filename string
	ACS      string
	Begin    domain.TimeValue
	End      domain.TimeValue
	Exposure *float64
}

var guanoGTISchema = schema.Define("Swift_GUANO_GTI_Data", func() schema.Object { return &GUANOGTI{} }).
	Returned(
		schema.String("filename", func(g *GUANOGTI) *string { return &g.Filename }),
		schema.String("acs", func(g *GUANOGTI) *string { return &g.ACS }),
		schema.TimeVal("begin", func(g *GUANOGTI) *domain.TimeValue { return &g.Begin }),
		schema.TimeVal("end", func(g *GUANOGTI) *domain.TimeValue { return &g.End }),
		schema.Float("exposure", func(g *GUANOGTI) **float64 { return &g.Exposure }),
	).
	Nested(schema.TimeValueType)

func (g *GUANOGTI) Schema() *schema.Schema { return guanoGTISchema }

var guanoDataSchema = schema.Define("Swift_GUANO_Data", func() schema.Object { return &GUANOData{} }).
	Returned(
		schema.Bool("subthresh", func(d *GUANOData) **bool { return &d.Subthreshold }),
		schema.List("filenames", func(d *GUANOData) *[]string { return &d.Filenames }, schema.AsString),
		schema.String("acs", func(d *GUANOData) *string { return &d.ACS }),
		schema.Time("begin", func(d *GUANOData) *time.Time { return &d.Begin }),
		schema.Time("end", func(d *GUANOData) *time.Time { return &d.End }),
		schema.Float("exposure", func(d *GUANOData) **float64 { return &d.Exposure }),
		schema.Nested("gti", func(d *GUANOData) **GUANOGTI { return &d.GTI }),
	).
	Nested("Swift_GUANO_GTI_Data")

func (d *GUANOData) Schema() *schema.Schema { return guanoDataSchema }

var guanoEntrySchema = schema.Define("Swift_GUANO_Entry", func() schema.Object { return &GUANOEntry{} }).
	Returned(
		schema.String("triggertype", func(e *GUANOEntry) *string { return &e.TriggerType }),
		schema.TimeVal("triggertime", func(e *GUANOEntry) *domain.TimeValue { return &e.TriggerTime }),
		schema.Float("offset", func(e *GUANOEntry) **float64 { return &e.Offset }),
		schema.Float("duration", func(e *GUANOEntry) **float64 { return &e.Duration }),
		schema.Int("quadsaway", func(e *GUANOEntry) **int { return &e.QuadsAway }),
		obsIDField("obsnum", func(e *GUANOEntry) **domain.ObsID { return &e.ObsID }),
		schema.Float("ra", func(e *GUANOEntry) **float64 { return &e.RA }),
		schema.Float("dec", func(e *GUANOEntry) **float64 { return &e.Dec }),
		schema.Nested("data", func(e *GUANOEntry) **GUANOData { return &e.Data }),
	).
	Nested(schema.TimeValueType, "Swift_GUANO_Data")

func (e *GUANOEntry) Schema() *schema.Schema { return guanoEntrySchema }

// Window returns the span of data dumped around the trigger.
func (e *GUANOEntry) Window() (begin, end domain.TimeValue, ok bool) {
	if e.TriggerTime.IsZero() || e.Offset == nil || e.Duration == nil {
		return domain.TimeValue{}, domain.TimeValue{}, false
	}
	begin = e.TriggerTime.Add(seconds(*e.Offset - *e.Duration/2))
	end = begin.Add(seconds(*e.Duration))
	return begin, end, true
}

var guanoSchema = schema.Define("Swift_GUANO", func() schema.Object { return &GUANO{} }).
	Submitted(
		engine.UsernameField[*GUANO](),
		beginField[*GUANO](),
		endField[*GUANO](),
		schema.Time("triggertime", func(g *GUANO) *time.Time { return &g.TriggerTime }),
		schema.String("triggertype", func(g *GUANO) *string { return &g.TriggerType }),
		schema.Int("limit", func(g *GUANO) **int { return &g.Limit }),
		schema.Bool("successful", func(g *GUANO) **bool { return &g.Successful }),
		schema.Bool("subthreshold", func(g *GUANO) **bool { return &g.Subthreshold }),
		engine.StatusField[*GUANO](),
	).
	Returned(
		schema.List("entries", func(g *GUANO) *[]*GUANOEntry { return &g.Entries }, schema.As[*GUANOEntry]),
	).
	Local(
		engine.SecretField[*GUANO](),
		lengthField[*GUANO](),
	).
	Nested(envelope.StatusType, "Swift_GUANO_Entry")

func (g *GUANO) Schema() *schema.Schema { return guanoSchema }

func (g *GUANO) dateRange() *domain.DateRange { return &g.Range }

func (g *GUANO) Defaults() {
	if g.Limit == nil {
		g.Limit = Ptr(DefaultGUANOLimit)
	}
}

func (g *GUANO) Validate() error {
	if g.Limit != nil && *g.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", *g.Limit)
	}
	return g.Range.Validate()
}

// CollectTimestamps returns every entry's trigger time followed by the GTI
// bounds of the entries that have them.
func (g *GUANO) CollectTimestamps() []domain.TimeValue {
	var out []domain.TimeValue
	for _, e := range g.Entries {
		out = append(out, e.TriggerTime)
	}
	for _, gti := range g.gtis() {
		out = append(out, gti.Begin, gti.End)
	}
	return out
}

func (g *GUANO) ReplaceTimestamps(values []domain.TimeValue) error {
	gtis := g.gtis()
	if want := len(g.Entries) + 2*len(gtis); len(values) != want {
		return fmt.Errorf("got %d timestamps, want %d", len(values), want)
	}
	for i, e := range g.Entries {
		e.TriggerTime = values[i]
	}
	values = values[len(g.Entries):]
	for i, gti := range gtis {
		gti.Begin, gti.End = values[2*i], values[2*i+1]
	}
	return nil
}

func (g *GUANO) gtis() []*GUANOGTI {
	var out []*GUANOGTI
	for _, e := range g.Entries {
		if e.Data != nil && e.Data.GTI != nil {
			out = append(out, e.Data.GTI)
		}
	}
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
