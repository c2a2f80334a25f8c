package swiftsdk

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// Instruments that can be requested as the prime instrument of a TOO.
var Instruments = []string{"XRT", "UVOT", "BAT"}

// ObsTypes are the accepted values of TOO.ObsType.
var ObsTypes = []string{"Spectroscopy", "Light Curve", "Position", "Timing"}

// XRTModes maps XRT mode names to their numeric codes.
var XRTModes = map[string]int{
	"Auto":    0,
	"Null":    1,
	"ShortIM": 2,
	"LongIM":  3,
	"PUPD":    4,
	"LRPD":    5,
	"WT":      6,
	"PC":      7,
	"Raw":     8,
	"Bias":    9,
}

// TOO is a Target of Opportunity request.
type TOO struct {
	engine.Request

	SourceName          string
	Coords              domain.Coordinates
	PosErr              *float64
	Instrument          string
	Urgency             *int
	SourceType          string
	OptMag              *float64
	OptFilt             string
	XRTCountrate        *float64
	BATCountrate        *float64
	OtherBrightness     string
	GRBDetector         string
	GRBTriggerTime      time.Time
	ImmediateObjective  string
	ScienceJust         string
	Exposure            *int
	ExpTimeJust         string
	ExpTimePerVisit     *int
	NumOfVisits         *int
	MonitoringFreq      string
	Proposal            *bool
	ProposalID          string
	ProposalPI          string
	ProposalTriggerJust string
	XRTMode             *int
	UVOTMode            *int
	UVOTJust            string
	SlewInPlace         *bool
	Tiling              *bool
	NumberOfTiles       *int
	ExposureTimePerTile *int
	TilingJust          string
	ObsN                string
	ObsType             string
	Debug               *bool
	ValidateOnly        *bool

	// TooID is assigned by the server once the request is accepted.
	TooID *int
}

var tooSchema = schema.Define("Swift_TOO", func() schema.Object { return &TOO{} }).
	Submitted(
		engine.UsernameField[*TOO](),
		schema.String("source_name", func(t *TOO) *string { return &t.SourceName }),
		raField[*TOO](),
		decField[*TOO](),
		schema.Float("poserr", func(t *TOO) **float64 { return &t.PosErr }),
		schema.String("instrument", func(t *TOO) *string { return &t.Instrument }),
		schema.Int("urgency", func(t *TOO) **int { return &t.Urgency }),
		schema.String("source_type", func(t *TOO) *string { return &t.SourceType }),
		schema.Float("opt_mag", func(t *TOO) **float64 { return &t.OptMag }),
		schema.String("opt_filt", func(t *TOO) *string { return &t.OptFilt }),
		schema.Float("xrt_countrate", func(t *TOO) **float64 { return &t.XRTCountrate }),
		schema.Float("bat_countrate", func(t *TOO) **float64 { return &t.BATCountrate }),
		schema.String("other_brightness", func(t *TOO) *string { return &t.OtherBrightness }),
		schema.String("grb_detector", func(t *TOO) *string { return &t.GRBDetector }),
		schema.Time("grb_triggertime", func(t *TOO) *time.Time { return &t.GRBTriggerTime }),
		schema.String("immediate_objective", func(t *TOO) *string { return &t.ImmediateObjective }),
		schema.String("science_just", func(t *TOO) *string { return &t.ScienceJust }),
		schema.Int("exposure", func(t *TOO) **int { return &t.Exposure }),
		schema.String("exp_time_just", func(t *TOO) *string { return &t.ExpTimeJust }),
		schema.Int("exp_time_per_visit", func(t *TOO) **int { return &t.ExpTimePerVisit }),
		schema.Int("num_of_visits", func(t *TOO) **int { return &t.NumOfVisits }),
		schema.String("monitoring_freq", func(t *TOO) *string { return &t.MonitoringFreq }),
		schema.Bool("proposal", func(t *TOO) **bool { return &t.Proposal }),
		schema.String("proposal_id", func(t *TOO) *string { return &t.ProposalID }),
		schema.String("proposal_pi", func(t *TOO) *string { return &t.ProposalPI }),
		schema.String("proposal_trigger_just", func(t *TOO) *string { return &t.ProposalTriggerJust }),
		xrtModeField(),
		uvotModeField("uvot_mode", func(t *TOO) **int { return &t.UVOTMode }),
		schema.String("uvot_just", func(t *TOO) *string { return &t.UVOTJust }),
		schema.Bool("slew_in_place", func(t *TOO) **bool { return &t.SlewInPlace }),
		schema.Bool("tiling", func(t *TOO) **bool { return &t.Tiling }),
		schema.Int("number_of_tiles", func(t *TOO) **int { return &t.NumberOfTiles }),
		schema.Int("exposure_time_per_tile", func(t *TOO) **int { return &t.ExposureTimePerTile }),
		schema.String("tiling_justification", func(t *TOO) *string { return &t.TilingJust }),
		schema.String("obs_n", func(t *TOO) *string { return &t.ObsN }),
		schema.String("obs_type", func(t *TOO) *string { return &t.ObsType }),
		schema.Bool("debug", func(t *TOO) **bool { return &t.Debug }),
		schema.Bool("validate_only", func(t *TOO) **bool { return &t.ValidateOnly }),
		engine.StatusField[*TOO](),
	).
	Returned(
		engine.StatusField[*TOO](),
		schema.Int("too_id", func(t *TOO) **int { return &t.TooID }),
	).
	Local(engine.SecretField[*TOO]()).
	Nested(envelope.StatusType)

func (t *TOO) Schema() *schema.Schema { return tooSchema }

func (t *TOO) coordinates() *domain.Coordinates { return &t.Coords }

// Defaults fills the instrument, urgency, visit count and modes the
// scheduling team assumes when none are given.
func (t *TOO) Defaults() {
	if t.Instrument == "" {
		t.Instrument = "XRT"
	}
	if t.Urgency == nil {
		t.Urgency = Ptr(3)
	}
	if t.NumOfVisits == nil {
		t.NumOfVisits = Ptr(1)
	}
	if t.XRTMode == nil {
		t.XRTMode = Ptr(XRTModes["PC"])
	}
	if t.UVOTMode == nil {
		t.UVOTMode = Ptr(0x9999)
	}
	if t.ObsType == "" {
		t.ObsType = "Light Curve"
	}
}

func (t *TOO) Validate() error {
	var problems []string
	missing := func(field string) { problems = append(problems, field+" is required") }
	if strings.TrimSpace(t.SourceName) == "" {
		missing("source_name")
	}
	if !t.Coords.IsSet() {
		missing("ra and dec")
	}
	if t.Exposure == nil || *t.Exposure <= 0 {
		problems = append(problems, "exposure must be a positive number of seconds")
	}
	if strings.TrimSpace(t.ScienceJust) == "" {
		missing("science_just")
	}
	if t.Urgency != nil && (*t.Urgency < 1 || *t.Urgency > 4) {
		problems = append(problems, fmt.Sprintf("urgency must be between 1 and 4, got %d", *t.Urgency))
	}
	if t.Instrument != "" && !slices.Contains(Instruments, t.Instrument) {
		problems = append(problems, fmt.Sprintf("instrument must be one of %s, got %q", strings.Join(Instruments, ", "), t.Instrument))
	}
	if t.ObsType != "" && !slices.Contains(ObsTypes, t.ObsType) {
		problems = append(problems, fmt.Sprintf("obs_type must be one of %s, got %q", strings.Join(ObsTypes, ", "), t.ObsType))
	}
	if t.NumOfVisits != nil && *t.NumOfVisits > 1 && t.MonitoringFreq == "" && t.ExpTimePerVisit == nil {
		problems = append(problems, "monitoring_freq or exp_time_per_visit is required when num_of_visits > 1")
	}
	if t.Proposal != nil && *t.Proposal {
		if t.ProposalID == "" {
			missing("proposal_id")
		}
		if t.ProposalPI == "" {
			missing("proposal_pi")
		}
		if t.ProposalTriggerJust == "" {
			missing("proposal_trigger_just")
		}
	}
	if t.Tiling != nil && *t.Tiling && t.NumberOfTiles == nil && t.ExposureTimePerTile == nil {
		problems = append(problems, "number_of_tiles or exposure_time_per_tile is required when tiling")
	}
	if t.GRBDetector != "" && t.GRBTriggerTime.IsZero() {
		missing("grb_triggertime")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// xrtModeField accepts a mode code or one of the XRTModes names.
func xrtModeField() schema.Field {
	return schema.Func("xrt_mode",
		func(t *TOO) any {
			if t.XRTMode != nil {
				return *t.XRTMode
			}
			return nil
		},
		func(t *TOO, v any) error {
			if v == nil {
				t.XRTMode = nil
				return nil
			}
			if s, ok := v.(string); ok {
				for name, code := range XRTModes {
					if strings.EqualFold(name, strings.TrimSpace(s)) {
						t.XRTMode = Ptr(code)
						return nil
					}
				}
			}
			n, err := schema.AsInt(v)
			if err != nil {
				return fmt.Errorf("unknown xrt mode %v", v)
			}
			t.XRTMode = &n
			return nil
		})
}

