package domain

import (
	"math"
	"time"
)

// METEpoch is the zero point of the Swift mission elapsed time clock,
// expressed in the spacecraft (Swift) time base.
var METEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

const displayLayout = "2006-01-02 15:04:05.999999999"

// TimeValue is an instant natively expressed either in the spacecraft clock
// base or in UTC, together with the UTC correction factor (UTCF) relating the
// two when it is known. UTC = Swift time + UTCF.
//
// The projection into the other base is only available once the UTCF is
// known; before that the accessors report ok=false rather than a zero value.
type TimeValue struct {
	t     time.Time
	isUTC bool
	utcf  *float64
}

// NewSwiftTime returns a value natively in the spacecraft time base.
func NewSwiftTime(t time.Time) TimeValue {
	return TimeValue{t: naive(t)}
}

// NewUTCTime returns a value natively in UTC.
func NewUTCTime(t time.Time) TimeValue {
	return TimeValue{t: naive(t), isUTC: true}
}

// FromMET builds a value from a mission elapsed time in seconds. When isUTC is
// set and utcf is known the value is re-based onto UTC; without a utcf the
// value stays in the spacecraft base because UTC cannot be derived.
func FromMET(met float64, utcf *float64, isUTC bool) TimeValue {
	v := TimeValue{t: METEpoch.Add(seconds(met))}
	if utcf == nil {
		return v
	}
	f := *utcf
	v.utcf = &f
	if isUTC {
		v.t = v.t.Add(seconds(f))
		v.isUTC = true
	}
	return v
}

func (v TimeValue) IsZero() bool { return v.t.IsZero() }

// IsUTC reports whether UTC is the native base.
func (v TimeValue) IsUTC() bool { return v.isUTC }

// Time returns the instant in its native base.
func (v TimeValue) Time() time.Time { return v.t }

// UTCF returns the correction factor in seconds if known.
func (v TimeValue) UTCF() (float64, bool) {
	if v.utcf == nil {
		return 0, false
	}
	return *v.utcf, true
}

// WithUTCF returns a copy carrying the given correction factor. The native
// base and instant are unchanged.
func (v TimeValue) WithUTCF(utcf float64) TimeValue {
	v.utcf = &utcf
	return v
}

// SwiftTime returns the instant in the spacecraft time base.
func (v TimeValue) SwiftTime() (time.Time, bool) {
	if !v.isUTC {
		return v.t, true
	}
	if v.utcf == nil {
		return time.Time{}, false
	}
	return v.t.Add(-seconds(*v.utcf)), true
}

// UTCTime returns the instant in UTC.
func (v TimeValue) UTCTime() (time.Time, bool) {
	if v.isUTC {
		return v.t, true
	}
	if v.utcf == nil {
		return time.Time{}, false
	}
	return v.t.Add(seconds(*v.utcf)), true
}

// MET returns the mission elapsed time in seconds.
func (v TimeValue) MET() (float64, bool) {
	st, ok := v.SwiftTime()
	if !ok {
		return 0, false
	}
	return st.Sub(METEpoch).Seconds(), true
}

// Add shifts the value by d in its native base.
func (v TimeValue) Add(d time.Duration) TimeValue {
	v.t = v.t.Add(d)
	return v
}

// Sub returns v-o. Operands in different bases are compared in whichever base
// both can be projected into; if neither projection exists ErrBaseMismatch is
// returned.
func (v TimeValue) Sub(o TimeValue) (time.Duration, error) {
	if v.isUTC == o.isUTC {
		return v.t.Sub(o.t), nil
	}
	if a, ok := v.SwiftTime(); ok {
		if b, ok := o.SwiftTime(); ok {
			return a.Sub(b), nil
		}
	}
	if a, ok := v.UTCTime(); ok {
		if b, ok := o.UTCTime(); ok {
			return a.Sub(b), nil
		}
	}
	return 0, ErrBaseMismatch
}

// Equal reports whether both values have the same instant, base and UTCF.
func (v TimeValue) Equal(o TimeValue) bool {
	if v.isUTC != o.isUTC || !v.t.Equal(o.t) {
		return false
	}
	a, aok := v.UTCF()
	b, bok := o.UTCF()
	return aok == bok && a == b
}

func (v TimeValue) String() string {
	if v.IsZero() {
		return ""
	}
	s := v.t.Format(displayLayout)
	if v.isUTC {
		return s + " UTC"
	}
	return s + " Swift"
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

func naive(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
