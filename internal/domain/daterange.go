package domain

import (
	"fmt"
	"time"
)

// DateRange holds a begin, an end and the length between them. Any two
// determine the third; the most recently set pair is authoritative.
type DateRange struct {
	begin  *time.Time
	end    *time.Time
	length *time.Duration
}

// NewDateRange returns a range spanning begin to end.
func NewDateRange(begin, end time.Time) DateRange {
	var r DateRange
	r.SetBegin(begin)
	r.SetEnd(end)
	return r
}

func (r *DateRange) Begin() (time.Time, bool) { return deref(r.begin) }

func (r *DateRange) End() (time.Time, bool) { return deref(r.end) }

func (r *DateRange) Length() (time.Duration, bool) {
	if r.length == nil {
		return 0, false
	}
	return *r.length, true
}

// SetBegin sets the start. A known length moves the end; otherwise a known
// end determines the length.
func (r *DateRange) SetBegin(t time.Time) {
	t = naive(t)
	r.begin = &t
	switch {
	case r.length != nil:
		end := t.Add(*r.length)
		r.end = &end
	case r.end != nil:
		l := r.end.Sub(t)
		r.length = &l
	}
}

// SetEnd sets the end. A known begin determines the length; otherwise a
// known length determines the begin.
func (r *DateRange) SetEnd(t time.Time) {
	t = naive(t)
	r.end = &t
	switch {
	case r.begin != nil:
		l := t.Sub(*r.begin)
		r.length = &l
	case r.length != nil:
		begin := t.Add(-*r.length)
		r.begin = &begin
	}
}

// SetLength sets the length. A known begin moves the end; otherwise a known
// end determines the begin.
func (r *DateRange) SetLength(d time.Duration) {
	r.length = &d
	switch {
	case r.begin != nil:
		end := r.begin.Add(d)
		r.end = &end
	case r.end != nil:
		begin := r.end.Add(-d)
		r.begin = &begin
	}
}

// IsSet reports whether any of the three values is present.
func (r *DateRange) IsSet() bool {
	return r.begin != nil || r.end != nil || r.length != nil
}

// Validate rejects ranges whose end precedes their begin.
func (r *DateRange) Validate() error {
	if r.begin != nil && r.end != nil && r.end.Before(*r.begin) {
		return fmt.Errorf("end %s is before begin %s", r.end.Format(displayLayout), r.begin.Format(displayLayout))
	}
	return nil
}

func deref(t *time.Time) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}
