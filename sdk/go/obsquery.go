package swiftsdk

import (
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// ObsQuery searches the as-flown science timeline (AFST).
type ObsQuery struct {
	pointingQuery

	Entries      []*ObsEntry
	Observations []*Observation[*ObsEntry]
}

// ObsEntry is one as-flown pointing.
type ObsEntry struct {
	Pointing

	Settle    time.Time
	RAObject  *float64
	DecObject *float64
	TimeTarg  *float64
	TimeObs   *float64
}

// SlewTime is the time between the start of the slew and settling on target.
func (e *ObsEntry) SlewTime() time.Duration {
	if e.Settle.IsZero() {
		return 0
	}
	return e.Settle.Sub(e.Begin)
}

var obsEntrySchema = schema.Define("Swift_AFST_Entry", func() schema.Object { return &ObsEntry{} }).
	Returned(pointingEntryFields[*ObsEntry]()...).
	Returned(
		schema.Time("settle", func(e *ObsEntry) *time.Time { return &e.Settle }),
		schema.Float("ra_object", func(e *ObsEntry) **float64 { return &e.RAObject }),
		schema.Float("dec_object", func(e *ObsEntry) **float64 { return &e.DecObject }),
		schema.Float("timetarg", func(e *ObsEntry) **float64 { return &e.TimeTarg }),
		schema.Float("timeobs", func(e *ObsEntry) **float64 { return &e.TimeObs }),
	).
	Lenient()

func (e *ObsEntry) Schema() *schema.Schema { return obsEntrySchema }

var obsQuerySchema = schema.Define("Swift_AFST", func() schema.Object { return &ObsQuery{} }).
	Submitted(pointingQueryFields[*ObsQuery]()...).
	Returned(
		schema.List("entries", func(q *ObsQuery) *[]*ObsEntry { return &q.Entries }, schema.As[*ObsEntry]),
	).
	Local(pointingLocalFields[*ObsQuery]()...).
	Nested(envelope.StatusType, "Swift_AFST_Entry").
	Lenient()

func (q *ObsQuery) Schema() *schema.Schema { return obsQuerySchema }

// PostProcess groups the returned pointings by observation id.
func (q *ObsQuery) PostProcess() {
	q.Observations = groupObservations(q.Entries)
}

// Observation returns the group for one observation id.
func (q *ObsQuery) Observation(obsid string) (*Observation[*ObsEntry], bool) {
	return findObservation(q.Observations, obsid)
}

// ObsIDs lists the observation ids in the result, in timeline order.
func (q *ObsQuery) ObsIDs() []domain.ObsID {
	out := make([]domain.ObsID, 0, len(q.Observations))
	for _, o := range q.Observations {
		out = append(out, o.ObsID)
	}
	return out
}
