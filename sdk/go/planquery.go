package swiftsdk

import (
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// PlanQuery searches the pre-planned science timeline (PPST).
type PlanQuery struct {
	pointingQuery

	Entries      []*PlanEntry
	Observations []*Observation[*PlanEntry]
}

// PlanEntry is one planned pointing.
type PlanEntry struct {
	Pointing
}

var planEntrySchema = schema.Define("Swift_PPST_Entry", func() schema.Object { return &PlanEntry{} }).
	Returned(pointingEntryFields[*PlanEntry]()...).
	Lenient()

func (e *PlanEntry) Schema() *schema.Schema { return planEntrySchema }

var planQuerySchema = schema.Define("Swift_PPST", func() schema.Object { return &PlanQuery{} }).
	Submitted(pointingQueryFields[*PlanQuery]()...).
	Returned(
		schema.List("entries", func(q *PlanQuery) *[]*PlanEntry { return &q.Entries }, schema.As[*PlanEntry]),
	).
	Local(pointingLocalFields[*PlanQuery]()...).
	Nested(envelope.StatusType, "Swift_PPST_Entry").
	Lenient()

func (q *PlanQuery) Schema() *schema.Schema { return planQuerySchema }

func (q *PlanQuery) PostProcess() {
	q.Observations = groupObservations(q.Entries)
}

func (q *PlanQuery) Observation(obsid string) (*Observation[*PlanEntry], bool) {
	return findObservation(q.Observations, obsid)
}
