package swiftsdk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// UVOTMode looks up the filter sequence behind a UVOT mode code.
type UVOTMode struct {
	engine.Request

	Mode    *int
	Entries []*UVOTModeEntry
}

// UVOTModeEntry is one filter of a UVOT mode.
type UVOTModeEntry struct {
	Mode        *int
	FilterNum   *int
	MinExposure *float64
	FilterName  string
	FilterPos   *int
	FilterSeqID *int
	EventMode   *int
	FieldOfView *float64
	Binning     *int
	MaxExposure *float64
	Weight      *int
	Special     string
	Comment     string
}

var uvotModeEntrySchema = schema.Define("Swift_UVOTMode_Entry", func() schema.Object { return &UVOTModeEntry{} }).
	Returned(
		uvotModeField("uvotmode", func(e *UVOTModeEntry) **int { return &e.Mode }),
		schema.Int("filter_num", func(e *UVOTModeEntry) **int { return &e.FilterNum }),
		schema.Float("min_exposure", func(e *UVOTModeEntry) **float64 { return &e.MinExposure }),
		schema.String("filter_name", func(e *UVOTModeEntry) *string { return &e.FilterName }),
		schema.Int("filter_pos", func(e *UVOTModeEntry) **int { return &e.FilterPos }),
		schema.Int("filter_seqid", func(e *UVOTModeEntry) **int { return &e.FilterSeqID }),
		schema.Int("eventmode", func(e *UVOTModeEntry) **int { return &e.EventMode }),
		schema.Float("field_of_view", func(e *UVOTModeEntry) **float64 { return &e.FieldOfView }),
		schema.Int("binning", func(e *UVOTModeEntry) **int { return &e.Binning }),
		schema.Float("max_exposure", func(e *UVOTModeEntry) **float64 { return &e.MaxExposure }),
		schema.Int("weight", func(e *UVOTModeEntry) **int { return &e.Weight }),
		schema.String("special", func(e *UVOTModeEntry) *string { return &e.Special }),
		schema.String("comment", func(e *UVOTModeEntry) *string { return &e.Comment }),
	)

func (e *UVOTModeEntry) Schema() *schema.Schema { return uvotModeEntrySchema }

var uvotModeSchema = schema.Define("Swift_UVOTMode", func() schema.Object { return &UVOTMode{} }).
	Submitted(
		engine.UsernameField[*UVOTMode](),
		uvotModeField("uvotmode", func(u *UVOTMode) **int { return &u.Mode }),
		engine.StatusField[*UVOTMode](),
	).
	Returned(
		engine.StatusField[*UVOTMode](),
		schema.List("entries", func(u *UVOTMode) *[]*UVOTModeEntry { return &u.Entries }, schema.As[*UVOTModeEntry]),
	).
	Local(engine.SecretField[*UVOTMode]()).
	Nested(envelope.StatusType, "Swift_UVOTMode_Entry")

func (u *UVOTMode) Schema() *schema.Schema { return uvotModeSchema }

func (u *UVOTMode) Validate() error {
	if u.Mode == nil {
		return errors.New("uvotmode is required")
	}
	if *u.Mode < 0 || *u.Mode > 0xFFFF {
		return fmt.Errorf("uvotmode %#x is out of range", *u.Mode)
	}
	return nil
}

// Hex renders the mode the way operators write it, e.g. 0x30ed.
func (u *UVOTMode) Hex() string {
	if u.Mode == nil {
		return ""
	}
	return FormatUVOTMode(*u.Mode)
}

// FormatUVOTMode renders a mode code in hex.
func FormatUVOTMode(mode int) string { return fmt.Sprintf("0x%04x", mode) }

// ParseUVOTMode reads a mode written in hex ("0x30ed") or decimal.
func ParseUVOTMode(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	var (
		n   int64
		err error
	)
	if strings.HasPrefix(s, "0x") {
		n, err = strconv.ParseInt(s[2:], 16, 32)
	} else {
		n, err = strconv.ParseInt(s, 10, 32)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid uvot mode %q", s)
	}
	return int(n), nil
}

// uvotModeField accepts an integer code or its hex string form.
func uvotModeField[T schema.Object](name string, p func(T) **int) schema.Field {
	return schema.Func(name,
		func(o T) any {
			if m := *p(o); m != nil {
				return *m
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				*p(o) = nil
				return nil
			}
			if s, ok := v.(string); ok {
				n, err := ParseUVOTMode(s)
				if err != nil {
					return err
				}
				*p(o) = &n
				return nil
			}
			n, err := schema.AsInt(v)
			if err != nil {
				return err
			}
			*p(o) = &n
			return nil
		}).Raw()
}
