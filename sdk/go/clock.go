package swiftsdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"swiftapi/internal/domain"
	"swiftapi/internal/engine"
	"swiftapi/internal/envelope"
	"swiftapi/internal/schema"
)

// Clock converts between mission elapsed time, spacecraft time and UTC. The
// service answers with one TimeValue per input, carrying its UTCF.
type Clock struct {
	engine.Request

	MET       []float64
	SwiftTime []time.Time
	UTCTime   []time.Time

	Entries []domain.TimeValue
}

var clockSchema = schema.Define("Swift_Clock", func() schema.Object { return &Clock{} }).
	Submitted(
		engine.UsernameField[*Clock](),
		schema.List("met", func(c *Clock) *[]float64 { return &c.MET }, schema.AsFloat),
		times("swifttime", func(c *Clock) *[]time.Time { return &c.SwiftTime }),
		times("utctime", func(c *Clock) *[]time.Time { return &c.UTCTime }),
		engine.StatusField[*Clock](),
	).
	Returned(
		timeValues("entries", func(c *Clock) *[]domain.TimeValue { return &c.Entries }),
	).
	Local(engine.SecretField[*Clock]()).
	Nested(envelope.StatusType, schema.TimeValueType)

func (c *Clock) Schema() *schema.Schema { return clockSchema }

func (c *Clock) Validate() error {
	given := 0
	for _, n := range []int{len(c.MET), len(c.SwiftTime), len(c.UTCTime)} {
		if n > 0 {
			given++
		}
	}
	switch given {
	case 0:
		return errors.New("one of met, swifttime or utctime is required")
	case 1:
		return nil
	default:
		return errors.New("only one of met, swifttime or utctime may be given")
	}
}

// CollectTimestamps and ReplaceTimestamps let a Clock result feed another
// correction.
func (c *Clock) CollectTimestamps() []domain.TimeValue {
	return append([]domain.TimeValue(nil), c.Entries...)
}

func (c *Clock) ReplaceTimestamps(values []domain.TimeValue) error {
	if len(values) != len(c.Entries) {
		return fmt.Errorf("got %d timestamps for %d entries", len(values), len(c.Entries))
	}
	copy(c.Entries, values)
	return nil
}

// ClockCorrect fetches the UTCF of every timestamp in holder and writes the
// corrected values back. Spacecraft-based values are looked up by MET and
// UTC-based ones by UTC, one request per base.
func ClockCorrect(ctx context.Context, client *Client, holder domain.TimestampHolder) error {
	stamps := holder.CollectTimestamps()
	if len(stamps) == 0 {
		return nil
	}
	var swiftIdx, utcIdx []int
	met := &Clock{}
	utc := &Clock{}
	for i, ts := range stamps {
		if ts.IsZero() {
			continue
		}
		if ts.IsUTC() {
			utc.UTCTime = append(utc.UTCTime, ts.Time())
			utcIdx = append(utcIdx, i)
			continue
		}
		m, ok := ts.MET()
		if !ok {
			return fmt.Errorf("timestamp %d has no mission elapsed time", i)
		}
		met.MET = append(met.MET, m)
		swiftIdx = append(swiftIdx, i)
	}

	out := append([]domain.TimeValue(nil), stamps...)
	for _, batch := range []struct {
		clock *Clock
		idx   []int
	}{{met, swiftIdx}, {utc, utcIdx}} {
		if len(batch.idx) == 0 {
			continue
		}
		ok, err := client.Submit(ctx, batch.clock)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("clock correction failed: %s", strings.Join(batch.clock.Status.Errors, "; "))
		}
		if len(batch.clock.Entries) != len(batch.idx) {
			return fmt.Errorf("clock correction returned %d values for %d timestamps", len(batch.clock.Entries), len(batch.idx))
		}
		for k, i := range batch.idx {
			utcf, ok := batch.clock.Entries[k].UTCF()
			if !ok {
				return fmt.Errorf("clock correction for %s carried no utcf", stamps[i])
			}
			out[i] = stamps[i].WithUTCF(utcf)
		}
	}
	return holder.ReplaceTimestamps(out)
}
