package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	maxTargetID      = 99999999
	maxSegment       = 999
	spacecraftTarget = 0xFFFFFF
	spacecraftShift  = 24
)

// ObsID identifies one pointing as a target identifier plus a segment. The
// textual form is the 8-digit target followed by the 3-digit segment; the
// spacecraft form packs the segment above the low 24 bits of the target.
type ObsID struct {
	Target  int
	Segment int
}

// ParseObsID parses the textual form. Leading zeros may be omitted.
func ParseObsID(s string) (ObsID, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 11 {
		return ObsID{}, fmt.Errorf("invalid obsid %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ObsID{}, fmt.Errorf("invalid obsid %q", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return ObsID{}, fmt.Errorf("invalid obsid %q: %w", s, err)
	}
	return ObsID{Target: n / 1000, Segment: n % 1000}, nil
}

// FromSpacecraft decodes the spacecraft integer form.
func FromSpacecraft(n int) ObsID {
	return ObsID{Target: n & spacecraftTarget, Segment: n >> spacecraftShift}
}

// ObsIDFrom accepts an ObsID, its textual form, or an integer. Integers larger
// than 0xFFFFFF are read as the spacecraft form; smaller ones as the textual
// form with leading zeros dropped.
func ObsIDFrom(v any) (ObsID, error) {
	switch x := v.(type) {
	case ObsID:
		return x, x.Validate()
	case *ObsID:
		if x == nil {
			return ObsID{}, fmt.Errorf("nil obsid")
		}
		return *x, x.Validate()
	case string:
		return ParseObsID(x)
	case int:
		return obsIDFromInt(x)
	case int64:
		return obsIDFromInt(int(x))
	case float64:
		if x != math.Trunc(x) {
			return ObsID{}, fmt.Errorf("invalid obsid %v", x)
		}
		return obsIDFromInt(int(x))
	default:
		return ObsID{}, fmt.Errorf("cannot use %T as obsid", v)
	}
}

func obsIDFromInt(n int) (ObsID, error) {
	if n < 0 {
		return ObsID{}, fmt.Errorf("invalid obsid %d", n)
	}
	if n > spacecraftTarget {
		return FromSpacecraft(n), nil
	}
	return ObsID{Target: n / 1000, Segment: n % 1000}, nil
}

// Spacecraft returns the packed integer form.
func (o ObsID) Spacecraft() int {
	return o.Target + o.Segment<<spacecraftShift
}

func (o ObsID) Validate() error {
	if o.Target < 0 || o.Target > maxTargetID {
		return fmt.Errorf("target id %d: %w", o.Target, ErrOutOfRange)
	}
	if o.Segment < 0 || o.Segment > maxSegment {
		return fmt.Errorf("segment %d: %w", o.Segment, ErrOutOfRange)
	}
	return nil
}

func (o ObsID) String() string {
	return fmt.Sprintf("%08d%03d", o.Target, o.Segment)
}
