package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftapi/internal/domain"
)

type probeEntry struct {
	Label string
	When  time.Time
}

var probeEntrySchema = Define("Test_Probe_Entry", func() Object { return &probeEntry{} }).
	Submitted(
		String("label", func(e *probeEntry) *string { return &e.Label }),
		Time("when", func(e *probeEntry) *time.Time { return &e.When }),
	)

func (e *probeEntry) Schema() *Schema { return probeEntrySchema }

type probe struct {
	Username string
	Name     string
	RA       *float64
	Count    *int
	Hires    *bool
	Begin    time.Time
	Length   time.Duration
	Stamp    domain.TimeValue
	Tags     []string
	Secret   string
	Entries  []*probeEntry
	Note     string
}

var probeSchema = Define("Test_Probe", func() Object { return &probe{} }).
	Submitted(
		String("username", func(p *probe) *string { return &p.Username }),
		String("name", func(p *probe) *string { return &p.Name }),
		Float("ra", func(p *probe) **float64 { return &p.RA }),
		Int("count", func(p *probe) **int { return &p.Count }),
		Bool("hires", func(p *probe) **bool { return &p.Hires }),
		Time("begin", func(p *probe) *time.Time { return &p.Begin }),
		Duration("length", func(p *probe) *time.Duration { return &p.Length }),
		TimeVal("stamp", func(p *probe) *domain.TimeValue { return &p.Stamp }),
		List("tags", func(p *probe) *[]string { return &p.Tags }, AsString),
	).
	Returned(
		List("entries", func(p *probe) *[]*probeEntry { return &p.Entries }, As[*probeEntry]),
		String("note", func(p *probe) *string { return &p.Note }),
		String("name", func(p *probe) *string { return &p.Name }),
	).
	Local(
		String("shared_secret", func(p *probe) *string { return &p.Secret }),
	).
	Nested("Test_Probe_Entry", TimeValueType)

func (p *probe) Schema() *Schema { return probeSchema }

func (p *probe) Defaults() {
	if p.Count == nil {
		n := 1
		p.Count = &n
	}
}

func TestDecodeStringClassification(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"12:00:00.25", 12*time.Hour + 250*time.Millisecond},
		{"2024-02-29", domain.Date{Year: 2024, Month: time.February, Day: 29}},
		{"2024-02-29 10:11:12", time.Date(2024, 2, 29, 10, 11, 12, 0, time.UTC)},
		{"2024-02-29 10:11:12.123456789", time.Date(2024, 2, 29, 10, 11, 12, 123456789, time.UTC)},
		{"2024-02-29T10:11:12+02:00", time.Date(2024, 2, 29, 8, 11, 12, 0, time.UTC)},
		{"2024-02-29T10:11:12", time.Date(2024, 2, 29, 10, 11, 12, 0, time.UTC)},
		{"3.5", 3.5},
		{"1e3", 1000.0},
		{"42", 42},
		{"-7", -7},
		{"GRB 230101A", "GRB 230101A"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := DecodeString(tc.in)
			if gt, ok := got.(time.Time); ok {
				want, ok := tc.want.(time.Time)
				if !ok || !gt.Equal(want) {
					t.Fatalf("DecodeString(%q) = %v, want %v", tc.in, got, tc.want)
				}
				return
			}
			if got != tc.want {
				t.Fatalf("DecodeString(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	values := []any{
		domain.Date{Year: 2023, Month: time.May, Day: 7},
		time.Date(2023, 5, 7, 1, 2, 3, 0, time.UTC),
		time.Date(2023, 5, 7, 1, 2, 3, 500000000, time.UTC),
		time.Date(2023, 5, 7, 1, 2, 3, 123456789, time.UTC),
		42,
		2.75,
		"plain text",
	}
	for _, v := range values {
		enc := Encode(v)
		s, ok := enc.(string)
		if !ok {
			raw, err := json.Marshal(enc)
			require.NoError(t, err)
			s = string(raw)
		}
		got := DecodeString(s)
		if tv, ok := v.(time.Time); ok {
			require.True(t, tv.Equal(got.(time.Time)), "time %v -> %q -> %v", v, s, got)
			continue
		}
		assert.Equal(t, v, got, "value %v encoded as %q", v, s)
	}
	for _, d := range []time.Duration{90 * time.Minute, 26*time.Hour + 5*time.Second, 3*time.Second + 125*time.Millisecond} {
		assert.Equal(t, d, DecodeString(FormatClock(d)))
	}
}

func TestFormatTimeOmitsZeroFraction(t *testing.T) {
	assert.Equal(t, "2020-01-02 03:04:05", FormatTime(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, "2020-01-02 03:04:05.1", FormatTime(time.Date(2020, 1, 2, 3, 4, 5, 100000000, time.UTC)))
	assert.Equal(t, "2020-01-02 03:04:05.000001", FormatTime(time.Date(2020, 1, 2, 3, 4, 5, 1000, time.UTC)))
}

func TestDecodeFalsyPassThrough(t *testing.T) {
	for _, v := range []any{nil, "", false} {
		got, err := Decode(v, nil)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestConstructPositionalAndKeyword(t *testing.T) {
	p := &probe{}
	err := Construct(p, []any{"M31", 10.5}, Values{"hires": true, "shared_secret": "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "M31", p.Name)
	require.NotNil(t, p.RA)
	assert.Equal(t, 10.5, *p.RA)
	require.NotNil(t, p.Hires)
	assert.True(t, *p.Hires)
	assert.Equal(t, "s3cret", p.Secret)
	require.NotNil(t, p.Count, "defaults must run after construction")
	assert.Equal(t, 1, *p.Count)
}

func TestConstructRejectsUnexpectedField(t *testing.T) {
	p := &probe{}
	err := Construct(p, nil, Values{"name": "ok", "colour": "blue"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedField))
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "colour", fe.Field)
	assert.Empty(t, p.Name, "nothing may be assigned when a key is rejected")

	err = Construct(p, nil, Values{"note": "returned only"})
	assert.True(t, errors.Is(err, ErrUnexpectedField))

	err = Construct(p, []any{"a"}, Values{"name": "b"})
	assert.True(t, errors.Is(err, ErrUnexpectedField))
}

func TestWireRoundTrip(t *testing.T) {
	ra := 123.25
	count := 4
	hires := false
	p := &probe{
		Username: "alice",
		Name:     "007",
		RA:       &ra,
		Count:    &count,
		Hires:    &hires,
		Begin:    time.Date(2022, 8, 1, 6, 30, 0, 0, time.UTC),
		Length:   90 * time.Minute,
		Stamp:    domain.NewSwiftTime(time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC)).WithUTCF(-3),
		Tags:     []string{"a", "b"},
		Secret:   "never sent",
	}
	wire := ToWireData(p)
	assert.NotContains(t, wire, "shared_secret")
	assert.NotContains(t, wire, "note")
	assert.NotContains(t, wire, "entries")

	raw, err := json.Marshal(wire)
	require.NoError(t, err)
	var back map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&back))

	q := &probe{}
	require.NoError(t, LoadFromWire(q, back))
	assert.Equal(t, p.Username, q.Username)
	assert.Equal(t, "007", q.Name, "string fields keep leading zeros")
	assert.Equal(t, *p.RA, *q.RA)
	assert.Equal(t, *p.Count, *q.Count)
	require.NotNil(t, q.Hires)
	assert.False(t, *q.Hires)
	assert.True(t, p.Begin.Equal(q.Begin))
	assert.Equal(t, p.Length, q.Length)
	assert.True(t, p.Stamp.Equal(q.Stamp), "stamp %v != %v", p.Stamp, q.Stamp)
	assert.Equal(t, p.Tags, q.Tags)
	assert.Empty(t, q.Secret)
}

func TestReplyDataCarriesNestedEntries(t *testing.T) {
	p := &probe{
		Name: "x",
		Note: "done",
		Entries: []*probeEntry{
			{Label: "first", When: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
			{Label: "second"},
		},
	}
	env := ReplyEnvelope(p)
	assert.Equal(t, "Test_Probe", env[NameKey])
	assert.Equal(t, Version, env[VersionKey])

	raw, err := json.Marshal(env[DataKey])
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))

	q := &probe{}
	require.NoError(t, LoadFromWire(q, back))
	require.Len(t, q.Entries, 2)
	assert.Equal(t, "first", q.Entries[0].Label)
	assert.True(t, q.Entries[0].When.Equal(p.Entries[0].When))
	assert.Equal(t, "done", q.Note)
}

func TestLoadFromWireAbsentLeavesFieldUntouched(t *testing.T) {
	p := &probe{Name: "keep", Note: "old"}
	require.NoError(t, LoadFromWire(p, map[string]any{"name": nil, "note": "new"}))
	assert.Equal(t, "keep", p.Name)
	assert.Equal(t, "new", p.Note)
}

func TestLoadFromWireUnknownField(t *testing.T) {
	p := &probe{}
	err := LoadFromWire(p, map[string]any{"mystery": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))

	err = LoadFromWire(p, map[string]any{"shared_secret": "x"})
	assert.True(t, errors.Is(err, ErrUnknownField), "local fields are never accepted from replies")
}

type lenientProbe struct{ Name string }

var lenientProbeSchema = Define("Test_Lenient_Probe", func() Object { return &lenientProbe{} }).
	Submitted(String("name", func(p *lenientProbe) *string { return &p.Name })).
	Lenient()

func (p *lenientProbe) Schema() *Schema { return lenientProbeSchema }

func TestLenientSchemaDropsUnknownKeys(t *testing.T) {
	p := &lenientProbe{}
	require.NoError(t, LoadFromWire(p, map[string]any{"name": "ok", "internal_col": 5}))
	assert.Equal(t, "ok", p.Name)
}

func TestResolveRejectsUnlistedType(t *testing.T) {
	tagged := map[string]any{NameKey: "Test_Probe_Entry", VersionKey: Version, DataKey: map[string]any{"label": "x"}}
	_, err := Resolve(tagged, []string{"Something_Else"})
	assert.True(t, errors.Is(err, ErrUnknownNestedType))

	got, err := Resolve(tagged, []string{"Test_Probe_Entry"})
	require.NoError(t, err)
	assert.Equal(t, "x", got.(*probeEntry).Label)

	p := &probe{}
	err = LoadFromWire(p, map[string]any{"entries": []any{map[string]any{NameKey: "Nope", DataKey: map[string]any{}}}})
	assert.True(t, errors.Is(err, ErrUnknownNestedType))
}

func TestResolveTimeValueFactory(t *testing.T) {
	utcf := -4.0
	tagged := map[string]any{NameKey: TimeValueType, DataKey: map[string]any{"met": json.Number("100"), "utcf": utcf, "isutc": true}}
	got, err := Resolve(tagged, []string{TimeValueType})
	require.NoError(t, err)
	tv := got.(domain.TimeValue)
	assert.True(t, tv.IsUTC())
	assert.True(t, tv.Time().Equal(domain.METEpoch.Add(96*time.Second)))

	noMET := domain.NewUTCTime(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	env := Encode(noMET).(map[string]any)
	payload := env[DataKey].(map[string]any)
	assert.NotContains(t, payload, "met")
	back, err := Resolve(env, []string{TimeValueType})
	require.NoError(t, err)
	assert.True(t, noMET.Equal(back.(domain.TimeValue)))
}

func TestTableRendersPresentFields(t *testing.T) {
	var buf bytes.Buffer
	Table(&buf, &probe{Username: "alice", Name: "M31", Secret: "x"})
	out := buf.String()
	assert.Contains(t, out, "M31")
	assert.False(t, strings.Contains(out, "alice"), "username is hidden")
	assert.False(t, strings.Contains(out, "shared_secret"))

	buf.Reset()
	ListTable(&buf, []*probeEntry{{Label: "a"}, {Label: "b", When: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}})
	assert.Contains(t, buf.String(), "2020-01-01 00:00:00")
}
