package swiftsdk

import (
	"errors"
	"strings"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// Resolve looks up the position of a named astronomical object.
type Resolve struct {
	engine.Request

	Name string

	Coords   domain.Coordinates
	Resolver string
}

var resolveSchema = schema.Define("Swift_Resolve", func() schema.Object { return &Resolve{} }).
	Submitted(
		engine.UsernameField[*Resolve](),
		schema.String("name", func(r *Resolve) *string { return &r.Name }),
		engine.StatusField[*Resolve](),
	).
	Returned(
		raField[*Resolve](),
		decField[*Resolve](),
		schema.String("resolver", func(r *Resolve) *string { return &r.Resolver }),
	).
	Local(engine.SecretField[*Resolve]()).
	Nested(envelope.StatusType)

func (r *Resolve) Schema() *schema.Schema { return resolveSchema }

func (r *Resolve) coordinates() *domain.Coordinates { return &r.Coords }

func (r *Resolve) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}
