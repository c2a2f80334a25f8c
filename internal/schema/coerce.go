package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"swiftapi/internal/domain"
)

func invalid(v any, want string) error {
	return fmt.Errorf("cannot use %v (%T) as %s: %w", v, v, want, ErrInvalidValue)
}

// AsString accepts strings, Stringers and numbers.
func AsString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case time.Time:
		return FormatTime(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", invalid(v, "string")
}

func AsFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, invalid(v, "float")
		}
		return f, nil
	}
	return 0, invalid(v, "float")
}

func AsInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, invalid(v, "int")
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, invalid(v, "int")
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, invalid(v, "int")
		}
		return n, nil
	}
	return 0, invalid(v, "int")
}

func AsBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, invalid(v, "bool")
		}
		return b, nil
	}
	return false, invalid(v, "bool")
}

// AsTime accepts instants, dates, TimeValues (native base) and any string the
// codec classifies as a date or timestamp.
func AsTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case domain.Date:
		return x.Time(), nil
	case domain.TimeValue:
		return x.Time(), nil
	case string:
		switch d := DecodeString(x).(type) {
		case time.Time:
			return d, nil
		case domain.Date:
			return d.Time(), nil
		}
	}
	return time.Time{}, invalid(v, "time")
}

// AsDuration accepts durations, numbers of seconds, clock strings and Go
// duration strings.
func AsDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case float64, int, int64, json.Number:
		s, err := AsFloat(x)
		if err != nil {
			return 0, err
		}
		return time.Duration(math.Round(s * float64(time.Second))), nil
	case string:
		switch d := DecodeString(x).(type) {
		case time.Duration:
			return d, nil
		case float64, int:
			return AsDuration(d)
		}
		if d, err := time.ParseDuration(x); err == nil {
			return d, nil
		}
	}
	return 0, invalid(v, "duration")
}

// As is the element conversion for lists of nested objects.
func As[E any](v any) (E, error) {
	e, ok := v.(E)
	if !ok {
		var zero E
		return zero, invalid(v, fmt.Sprintf("%T", zero))
	}
	return e, nil
}
