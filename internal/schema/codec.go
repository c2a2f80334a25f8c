package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"swiftapi/internal/domain"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05.999999999"
	isoLocalLayout = "2006-01-02T15:04:05"
)

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2}(?:\.\d+)?)$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)?$`)
	isoPattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?$`)
	floatPattern    = regexp.MustCompile(`^[+-]?(?:\d+\.\d*|\.\d+|\d+(?:\.\d*)?[eE][+-]?\d+)$`)
	intPattern      = regexp.MustCompile(`^[+-]?\d+$`)
)

// FormatTime renders an instant in the wire datetime form. Fractional seconds
// appear only when non-zero and keep their full precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

// FormatClock renders a duration as H:MM:SS with an optional fraction.
func FormatClock(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	frac := d - s*time.Second
	out := fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	if frac > 0 {
		out += strings.TrimRight(fmt.Sprintf(".%09d", frac), "0")
	}
	return out
}

// DecodeString classifies a wire scalar. It never fails: strings that match
// none of the known shapes come back unchanged.
func DecodeString(s string) any {
	if s == "" {
		return s
	}
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		secs, err := strconv.ParseFloat(m[3], 64)
		if err == nil && mins < 60 && secs < 60 {
			return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + fracSeconds(m[3])
		}
	}
	if datePattern.MatchString(s) {
		if d, err := domain.ParseDate(s); err == nil {
			return d
		}
	}
	if dateTimePattern.MatchString(s) {
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
			return t
		}
	}
	if isoPattern.MatchString(s) {
		if t, ok := parseISO(s); ok {
			return t
		}
	}
	if floatPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if intPattern.MatchString(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return s
}

// fracSeconds parses "SS.ffff" exactly, without going through float64.
func fracSeconds(s string) time.Duration {
	whole, frac, _ := strings.Cut(s, ".")
	secs, _ := strconv.Atoi(whole)
	d := time.Duration(secs) * time.Second
	if frac == "" {
		return d
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	ns, _ := strconv.Atoi(frac)
	return d + time.Duration(ns)
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05Z0700", isoLocalLayout, "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Decode turns an untyped inbound value into its typed form. Tagged mappings
// are handed to Resolve with the allowed nested type names; the only error
// source is nested resolution.
func Decode(v any, allowed []string) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case string:
		return DecodeString(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil && n >= math.MinInt && n <= math.MaxInt {
			return int(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return x.String(), nil
		}
		return f, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			d, err := Decode(e, allowed)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case map[string]any:
		if _, ok := x[NameKey]; ok {
			return Resolve(x, allowed)
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			d, err := Decode(e, allowed)
			if err != nil {
				return nil, err
			}
			out[k] = d
		}
		return out, nil
	default:
		return v, nil
	}
}

// Encode renders a value for the wire. Nested objects carry only their
// submitted fields.
func Encode(v any) any {
	return encode(v, false)
}

func encode(v any, full bool) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Object:
		return envelope(x, full)
	case domain.TimeValue:
		return encodeTimeValue(x)
	case time.Time:
		return FormatTime(x)
	case domain.Date:
		return x.String()
	case time.Duration:
		return x.Seconds()
	case string, bool, int, int64, float64, json.Number:
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encode(e, full)
		}
		return out
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = encode(rv.Index(i).Interface(), full)
		}
		return out
	}
	return v
}
