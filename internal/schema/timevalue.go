package schema

import (
	"fmt"
	"time"

	"swiftapi/internal/domain"
)

// TimeValueType is the tag under which domain.TimeValue travels.
const TimeValueType = "Swift_DateTime"

func encodeTimeValue(v domain.TimeValue) map[string]any {
	data := map[string]any{"isutc": v.IsUTC()}
	if utcf, ok := v.UTCF(); ok {
		data["utcf"] = utcf
	}
	if met, ok := v.MET(); ok {
		data["met"] = met
	} else {
		data["utctime"] = FormatTime(v.Time())
	}
	return map[string]any{NameKey: TimeValueType, VersionKey: Version, DataKey: data}
}

// timeValueFromData builds a TimeValue directly from tagged data; it has no
// meaningful zero value to load into.
func timeValueFromData(data map[string]any) (domain.TimeValue, error) {
	var utcf *float64
	if raw, ok := data["utcf"]; ok && raw != nil {
		f, err := AsFloat(raw)
		if err != nil {
			return domain.TimeValue{}, fmt.Errorf("utcf: %w", err)
		}
		utcf = &f
	}
	isUTC := false
	if raw, ok := data["isutc"]; ok && raw != nil {
		b, err := AsBool(raw)
		if err != nil {
			return domain.TimeValue{}, fmt.Errorf("isutc: %w", err)
		}
		isUTC = b
	}
	if raw, ok := data["met"]; ok && raw != nil {
		met, err := AsFloat(raw)
		if err != nil {
			return domain.TimeValue{}, fmt.Errorf("met: %w", err)
		}
		return domain.FromMET(met, utcf, isUTC), nil
	}
	for _, key := range []string{"utctime", "swifttime"} {
		raw, ok := data[key]
		if !ok || raw == nil {
			continue
		}
		t, err := AsTime(raw)
		if err != nil {
			return domain.TimeValue{}, fmt.Errorf("%s: %w", key, err)
		}
		v := domain.NewSwiftTime(t)
		if key == "utctime" {
			v = domain.NewUTCTime(t)
		}
		if utcf != nil {
			v = v.WithUTCF(*utcf)
		}
		return v, nil
	}
	return domain.TimeValue{}, fmt.Errorf("%s requires met, utctime or swifttime", TimeValueType)
}

// AsTimeValue coerces a value into a TimeValue. Bare instants are taken to be
// in the spacecraft base and bare numbers are read as MET seconds.
func AsTimeValue(v any) (domain.TimeValue, error) {
	switch x := v.(type) {
	case domain.TimeValue:
		return x, nil
	case time.Time:
		return domain.NewSwiftTime(x), nil
	case domain.Date:
		return domain.NewSwiftTime(x.Time()), nil
	case float64, int, int64:
		met, err := AsFloat(x)
		if err != nil {
			return domain.TimeValue{}, err
		}
		return domain.FromMET(met, nil, false), nil
	case string:
		if d := DecodeString(x); d != any(x) {
			return AsTimeValue(d)
		}
	}
	return domain.TimeValue{}, fmt.Errorf("cannot use %T as %s: %w", v, TimeValueType, ErrInvalidValue)
}
