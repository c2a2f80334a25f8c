package domain

import (
	"errors"
	"testing"
	"time"
)

func TestObsIDTextAndSpacecraftForms(t *testing.T) {
	o, err := ParseObsID("00012345012")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.Target != 12345 || o.Segment != 12 {
		t.Fatalf("unexpected decomposition %+v", o)
	}
	if o.String() != "00012345012" {
		t.Fatalf("round trip mismatch: %s", o.String())
	}
	sc := o.Spacecraft()
	if sc != 12345+(12<<24) {
		t.Fatalf("unexpected spacecraft form %d", sc)
	}
	if FromSpacecraft(sc) != o {
		t.Fatalf("spacecraft decode mismatch: %+v", FromSpacecraft(sc))
	}
	viaInt, err := ObsIDFrom(sc)
	if err != nil || viaInt != o {
		t.Fatalf("ObsIDFrom(spacecraft) = %+v, %v", viaInt, err)
	}
	short, err := ObsIDFrom(12345012)
	if err != nil || short != o {
		t.Fatalf("ObsIDFrom(short int) = %+v, %v", short, err)
	}
}

func TestObsIDRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "123456789012", "12-45"} {
		if _, err := ParseObsID(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
	if err := (ObsID{Target: 1, Segment: 1000}).Validate(); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestDateRangeRecomputes(t *testing.T) {
	begin := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var r DateRange
	r.SetBegin(begin)
	r.SetLength(48 * time.Hour)
	end, ok := r.End()
	if !ok || !end.Equal(begin.Add(48*time.Hour)) {
		t.Fatalf("end not recomputed from length: %v %v", end, ok)
	}
	newEnd := begin.Add(5 * time.Hour)
	r.SetEnd(newEnd)
	l, ok := r.Length()
	if !ok || l != 5*time.Hour {
		t.Fatalf("length not recomputed from end: %v %v", l, ok)
	}
	r.SetBegin(begin.Add(time.Hour))
	end, _ = r.End()
	if !end.Equal(newEnd.Add(time.Hour)) {
		t.Fatalf("begin should move end by length, got %v", end)
	}
}

func TestDateRangeEndThenLength(t *testing.T) {
	end := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	var r DateRange
	r.SetEnd(end)
	if _, ok := r.Begin(); ok {
		t.Fatalf("begin should be unknown")
	}
	r.SetLength(24 * time.Hour)
	begin, ok := r.Begin()
	if !ok || !begin.Equal(end.Add(-24*time.Hour)) {
		t.Fatalf("begin not derived: %v %v", begin, ok)
	}
	bad := NewDateRange(end, end.Add(-time.Hour))
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected inverted range to fail validation")
	}
}

func TestTimeValueProjection(t *testing.T) {
	swift := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	v := NewSwiftTime(swift)
	if _, ok := v.UTCTime(); ok {
		t.Fatalf("utc projection must be absent without utcf")
	}
	met, ok := v.MET()
	if !ok || met != swift.Sub(METEpoch).Seconds() {
		t.Fatalf("unexpected met %v %v", met, ok)
	}
	v = v.WithUTCF(-2.5)
	utc, ok := v.UTCTime()
	if !ok || !utc.Equal(swift.Add(-2500*time.Millisecond)) {
		t.Fatalf("unexpected utc %v %v", utc, ok)
	}

	f := -2.5
	rebased := FromMET(met, &f, true)
	if !rebased.IsUTC() || !rebased.Time().Equal(utc) {
		t.Fatalf("FromMET utc mismatch: %v", rebased)
	}
	st, ok := rebased.SwiftTime()
	if !ok || !st.Equal(swift) {
		t.Fatalf("swift projection mismatch: %v", st)
	}
	if noUTCF := FromMET(met, nil, true); noUTCF.IsUTC() {
		t.Fatalf("without utcf the value must stay in the swift base")
	}
}

func TestTimeValueSubAcrossBases(t *testing.T) {
	base := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	a := NewSwiftTime(base.Add(time.Minute))
	b := NewUTCTime(base)
	if _, err := a.Sub(b); !errors.Is(err, ErrBaseMismatch) {
		t.Fatalf("expected ErrBaseMismatch, got %v", err)
	}
	b = b.WithUTCF(0)
	d, err := a.Sub(b)
	if err != nil || d != time.Minute {
		t.Fatalf("sub = %v, %v", d, err)
	}
	same, err := a.Sub(NewSwiftTime(base))
	if err != nil || same != time.Minute {
		t.Fatalf("same-base sub = %v, %v", same, err)
	}
}

func TestCoordinatesRange(t *testing.T) {
	var c Coordinates
	if err := c.Set(360, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ra range error, got %v", err)
	}
	if err := c.Set(10, -91); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected dec range error, got %v", err)
	}
	if err := c.Set(10, -20); err != nil {
		t.Fatalf("set: %v", err)
	}
	ra, dec, ok := c.Get()
	if !ok || ra != 10 || dec != -20 {
		t.Fatalf("get = %v %v %v", ra, dec, ok)
	}
}

type galactic struct{ l, b float64 }

type shiftConverter struct{}

func (shiftConverter) ToEquatorial(sky any) (float64, float64, error) {
	g, ok := sky.(galactic)
	if !ok {
		return 0, 0, errors.New("unsupported frame")
	}
	return g.l + 1, g.b - 1, nil
}

func (shiftConverter) FromEquatorial(ra, dec float64) (any, error) {
	return galactic{l: ra - 1, b: dec + 1}, nil
}

func TestCoordinatesSky(t *testing.T) {
	var c Coordinates
	if err := c.SetSky(shiftConverter{}, galactic{l: 20, b: 30}); err != nil {
		t.Fatalf("SetSky: %v", err)
	}
	if *c.RA != 21 || *c.Dec != 29 {
		t.Fatalf("unexpected coordinates %v %v", *c.RA, *c.Dec)
	}
	sky, err := c.Sky(shiftConverter{})
	if err != nil || sky.(galactic) != (galactic{l: 20, b: 30}) {
		t.Fatalf("Sky = %v, %v", sky, err)
	}
	if err := c.SetSky(nil, galactic{}); err == nil {
		t.Fatalf("expected error without converter")
	}
}

func TestDateParse(t *testing.T) {
	d, err := ParseDate("2022-02-03")
	if err != nil || d.String() != "2022-02-03" {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	if _, err := ParseDate("2022-13-03"); err == nil {
		t.Fatalf("expected error")
	}
}
