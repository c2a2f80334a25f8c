package swiftsdk

import (
	"fmt"
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// DefaultTOORequestsLimit caps the number of requests returned.
const DefaultTOORequestsLimit = 10

// TOORequests lists previously submitted TOO requests.
type TOORequests struct {
	engine.Request

	Limit  *int
	Year   *int
	Detail *bool
	TooID  *int
	Range  domain.DateRange
	Coords domain.Coordinates
	Radius *float64

	Entries []*TOO
}

var tooRequestsSchema = schema.Define("Swift_TOO_Requests", func() schema.Object { return &TOORequests{} }).
	Submitted(
		engine.UsernameField[*TOORequests](),
		schema.Int("limit", func(r *TOORequests) **int { return &r.Limit }),
		schema.Int("year", func(r *TOORequests) **int { return &r.Year }),
		schema.Bool("detail", func(r *TOORequests) **bool { return &r.Detail }),
		schema.Int("too_id", func(r *TOORequests) **int { return &r.TooID }),
		beginField[*TOORequests](),
		endField[*TOORequests](),
		raField[*TOORequests](),
		decField[*TOORequests](),
		schema.Float("radius", func(r *TOORequests) **float64 { return &r.Radius }),
		engine.StatusField[*TOORequests](),
	).
	Returned(
		schema.List("entries", func(r *TOORequests) *[]*TOO { return &r.Entries }, schema.As[*TOO]),
	).
	Local(engine.SecretField[*TOORequests]()).
	Nested(envelope.StatusType, "Swift_TOO")

func (r *TOORequests) Schema() *schema.Schema { return tooRequestsSchema }

func (r *TOORequests) dateRange() *domain.DateRange { return &r.Range }

func (r *TOORequests) coordinates() *domain.Coordinates { return &r.Coords }

func (r *TOORequests) Defaults() {
	if r.Limit == nil {
		r.Limit = Ptr(DefaultTOORequestsLimit)
	}
	if r.Coords.IsSet() && r.Radius == nil {
		r.Radius = Ptr(DefaultRadius)
	}
}

func (r *TOORequests) Validate() error {
	if r.Limit != nil && *r.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", *r.Limit)
	}
	if r.Year != nil && (*r.Year < 2004 || *r.Year > time.Now().Year()) {
		return fmt.Errorf("year %d is outside the mission", *r.Year)
	}
	return r.Range.Validate()
}

// ByID returns the listed request with the given TOO id.
func (r *TOORequests) ByID(id int) (*TOO, bool) {
	for _, t := range r.Entries {
		if t.TooID != nil && *t.TooID == id {
			return t, true
		}
	}
	return nil, false
}
