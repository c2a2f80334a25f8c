package swiftsdk

import (
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/schema"
)

// ranged types keep begin, end and length in a DateRange.
type ranged interface {
	schema.Object
	dateRange() *domain.DateRange
}

func beginField[T ranged]() schema.Field {
	return schema.Func("begin",
		func(o T) any {
			if t, ok := o.dateRange().Begin(); ok {
				return t
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				return nil
			}
			t, err := schema.AsTime(v)
			if err != nil {
				return err
			}
			o.dateRange().SetBegin(t)
			return nil
		})
}

func endField[T ranged]() schema.Field {
	return schema.Func("end",
		func(o T) any {
			if t, ok := o.dateRange().End(); ok {
				return t
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				return nil
			}
			t, err := schema.AsTime(v)
			if err != nil {
				return err
			}
			o.dateRange().SetEnd(t)
			return nil
		})
}

// lengthField reads numbers as seconds, like every duration on the wire.
func lengthField[T ranged]() schema.Field {
	return schema.Func("length",
		func(o T) any {
			if d, ok := o.dateRange().Length(); ok {
				return d
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				return nil
			}
			d, err := schema.AsDuration(v)
			if err != nil {
				return err
			}
			o.dateRange().SetLength(d)
			return nil
		})
}

// positioned types keep a sky position.
type positioned interface {
	schema.Object
	coordinates() *domain.Coordinates
}

func raField[T positioned]() schema.Field {
	return schema.Func("ra",
		func(o T) any {
			if c := o.coordinates(); c.RA != nil {
				return *c.RA
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				o.coordinates().RA = nil
				return nil
			}
			f, err := schema.AsFloat(v)
			if err != nil {
				return err
			}
			return o.coordinates().SetRA(f)
		})
}

func decField[T positioned]() schema.Field {
	return schema.Func("dec",
		func(o T) any {
			if c := o.coordinates(); c.Dec != nil {
				return *c.Dec
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				o.coordinates().Dec = nil
				return nil
			}
			f, err := schema.AsFloat(v)
			if err != nil {
				return err
			}
			return o.coordinates().SetDec(f)
		})
}

// obsIDField keeps inbound strings verbatim so leading zeros survive.
func obsIDField[T schema.Object](name string, p func(T) **domain.ObsID) schema.Field {
	return schema.Func(name,
		func(o T) any {
			if id := *p(o); id != nil {
				return id.String()
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				*p(o) = nil
				return nil
			}
			id, err := domain.ObsIDFrom(v)
			if err != nil {
				return err
			}
			*p(o) = &id
			return nil
		}).Raw()
}

func timeValues[T schema.Object](name string, p func(T) *[]domain.TimeValue) schema.Field {
	return schema.List(name, p, schema.AsTimeValue)
}

func times[T schema.Object](name string, p func(T) *[]time.Time) schema.Field {
	return schema.List(name, p, schema.AsTime)
}
