package swiftsdk

import (
	"errors"
	"fmt"
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/schema"
)

// DefaultRadius is the search radius in degrees used when a position is
// given without one: the XRT field of view, 11.8 arcminutes.
const DefaultRadius = 11.8 / 60

// pointingQuery holds the search terms shared by the as-flown and planned
// timeline queries.
type pointingQuery struct {
	engine.Request

	Range    domain.DateRange
	Coords   domain.Coordinates
	Radius   *float64
	TargetID *int
	Segment  *int
	ObsID    *domain.ObsID
}

func (q *pointingQuery) dateRange() *domain.DateRange { return &q.Range }

func (q *pointingQuery) coordinates() *domain.Coordinates { return &q.Coords }

func (q *pointingQuery) query() *pointingQuery { return q }

func (q *pointingQuery) Defaults() {
	if q.Radius == nil {
		q.Radius = Ptr(DefaultRadius)
	}
}

func (q *pointingQuery) Validate() error {
	if !q.Range.IsSet() && !q.Coords.IsSet() && q.TargetID == nil && q.ObsID == nil {
		return errors.New("one of begin, end, ra/dec, targetid or obsid is required")
	}
	if err := q.Range.Validate(); err != nil {
		return err
	}
	if q.Radius != nil && *q.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %g", *q.Radius)
	}
	if q.ObsID != nil {
		return q.ObsID.Validate()
	}
	return nil
}

type pointingRequest interface {
	engine.Submittable
	dateRange() *domain.DateRange
	coordinates() *domain.Coordinates
	query() *pointingQuery
}

func pointingQueryFields[T pointingRequest]() []schema.Field {
	return []schema.Field{
		engine.UsernameField[T](),
		beginField[T](),
		endField[T](),
		raField[T](),
		decField[T](),
		schema.Float("radius", func(o T) **float64 { return &o.query().Radius }),
		schema.Int("targetid", func(o T) **int { return &o.query().TargetID }),
		schema.Int("seg", func(o T) **int { return &o.query().Segment }),
		obsIDField("obsid", func(o T) **domain.ObsID { return &o.query().ObsID }),
		engine.StatusField[T](),
	}
}

func pointingLocalFields[T pointingRequest]() []schema.Field {
	return []schema.Field{
		engine.SecretField[T](),
		lengthField[T](),
		obsIDField("obsnum", func(o T) **domain.ObsID { return &o.query().ObsID }),
	}
}

// Pointing is one spacecraft pointing from a timeline.
type Pointing struct {
	Begin      time.Time
	End        time.Time
	TargetName string
	RA         *float64
	Dec        *float64
	Roll       *float64
	TargetID   *int
	Segment    *int
	ObsID      *domain.ObsID
	XRTMode    *int
	UVOTMode   *int
	BATMode    *int
	FOM        *float64
	Comment    string
}

func (p *Pointing) pointing() *Pointing { return p }

// Exposure is the time on target.
func (p *Pointing) Exposure() time.Duration { return p.End.Sub(p.Begin) }

type pointingEntry interface {
	schema.Object
	pointing() *Pointing
}

func pointingEntryFields[T pointingEntry]() []schema.Field {
	return []schema.Field{
		schema.Time("begin", func(o T) *time.Time { return &o.pointing().Begin }),
		schema.Time("end", func(o T) *time.Time { return &o.pointing().End }),
		schema.String("targname", func(o T) *string { return &o.pointing().TargetName }),
		schema.Float("ra", func(o T) **float64 { return &o.pointing().RA }),
		schema.Float("dec", func(o T) **float64 { return &o.pointing().Dec }),
		schema.Float("roll", func(o T) **float64 { return &o.pointing().Roll }),
		schema.Int("targetid", func(o T) **int { return &o.pointing().TargetID }),
		schema.Int("seg", func(o T) **int { return &o.pointing().Segment }),
		obsIDField("obsnum", func(o T) **domain.ObsID { return &o.pointing().ObsID }),
		schema.Int("xrtmode", func(o T) **int { return &o.pointing().XRTMode }),
		uvotModeField("uvotmode", func(o T) **int { return &o.pointing().UVOTMode }),
		schema.Int("batmode", func(o T) **int { return &o.pointing().BATMode }),
		schema.Float("fom", func(o T) **float64 { return &o.pointing().FOM }),
		schema.String("comment", func(o T) *string { return &o.pointing().Comment }),
	}
}

// Observation groups the pointings that share an observation id.
type Observation[E pointingEntry] struct {
	ObsID   domain.ObsID
	Entries []E
}

func (o *Observation[E]) Begin() time.Time {
	if len(o.Entries) == 0 {
		return time.Time{}
	}
	return o.Entries[0].pointing().Begin
}

func (o *Observation[E]) End() time.Time {
	if len(o.Entries) == 0 {
		return time.Time{}
	}
	return o.Entries[len(o.Entries)-1].pointing().End
}

// Exposure sums the time on target over all pointings.
func (o *Observation[E]) Exposure() time.Duration {
	var total time.Duration
	for _, e := range o.Entries {
		total += e.pointing().Exposure()
	}
	return total
}

func (o *Observation[E]) TargetName() string {
	if len(o.Entries) == 0 {
		return ""
	}
	return o.Entries[0].pointing().TargetName
}

// groupObservations buckets entries by obsid in first-seen order. Entries
// without an obsid are skipped.
func groupObservations[E pointingEntry](entries []E) []*Observation[E] {
	var out []*Observation[E]
	index := map[domain.ObsID]*Observation[E]{}
	for _, e := range entries {
		id := e.pointing().ObsID
		if id == nil {
			continue
		}
		obs, ok := index[*id]
		if !ok {
			obs = &Observation[E]{ObsID: *id}
			index[*id] = obs
			out = append(out, obs)
		}
		obs.Entries = append(obs.Entries, e)
	}
	return out
}

func findObservation[E pointingEntry](obs []*Observation[E], id string) (*Observation[E], bool) {
	want, err := domain.ObsIDFrom(id)
	if err != nil {
		return nil, false
	}
	for _, o := range obs {
		if o.ObsID == want {
			return o, true
		}
	}
	return nil, false
}
