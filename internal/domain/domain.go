package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBaseMismatch is returned by TimeValue arithmetic when the two operands
	// are expressed in different time bases and neither carries a UTCF.
	ErrBaseMismatch = errors.New("time bases differ and no utcf is known")
	// ErrOutOfRange reports a coordinate or identifier outside its legal range.
	ErrOutOfRange = errors.New("value out of range")
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the UTC calendar day containing t.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// TimestampHolder is implemented by results that carry mission-clock
// timestamps which can be corrected in bulk. ReplaceTimestamps receives the
// values in the order CollectTimestamps produced them.
type TimestampHolder interface {
	CollectTimestamps() []TimeValue
	ReplaceTimestamps([]TimeValue) error
}
