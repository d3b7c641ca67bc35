package schema_test

import (
	"strings"
	"testing"

	"github.com/xtxerr/minidas/internal/schema"
	"github.com/xtxerr/minidas/internal/trace"
)

const supportedVersion = 1

func validSchema(channels int) *schema.Schema {
	lats := make([]float64, channels)
	lons := make([]float64, channels)
	elevs := make([]float64, channels)
	for i := range lats {
		lats[i] = 48.858222 + float64(i)*0.01/float64(channels)
		lons[i] = 2.2945
	}
	return &schema.Schema{
		FormatVersion:     supportedVersion,
		DataUnit:          "rad",
		StartTimeNs:       1664355600000000000,
		SamplingRate:      1000.0,
		GaugeLength:       10.2,
		ScaleFactor:       567890.1234,
		UnitsAfterScaling: "ue/s",
		Latitudes:         lats,
		Longitudes:        lons,
		Elevations:        elevs,
	}
}

func TestValidate_Valid(t *testing.T) {
	s := validSchema(300)
	m, err := trace.New(trace.Float32, 300, 100)
	if err != nil {
		t.Fatalf("new matrix: %v", err)
	}

	v := schema.Validate(s, m, supportedVersion)
	if v.HasViolations() {
		t.Fatalf("unexpected violations: %v", v.Items)
	}
	if !schema.IsValid(s, m, supportedVersion) {
		t.Errorf("IsValid disagrees with Validate")
	}
}

func TestValidate_GeometryMismatch(t *testing.T) {
	s := validSchema(300)
	s.Longitudes = s.Longitudes[:299]
	m, _ := trace.New(trace.Float32, 300, 100)

	v := schema.Validate(s, m, supportedVersion)
	if len(v.Items) != 1 {
		t.Fatalf("expected exactly 1 violation, got %d: %v", len(v.Items), v.Items)
	}
	if !strings.Contains(v.Items[0], "latitudes/longitudes") {
		t.Errorf("violation does not name the mismatched fields: %q", v.Items[0])
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	s := validSchema(300)
	s.FormatVersion = 99
	s.DataUnit = "furlongs"
	s.UnitsAfterScaling = "parsecs"
	s.Elevations = s.Elevations[:10]
	m, _ := trace.New(trace.Float32, 300, 100)

	v := schema.Validate(s, m, supportedVersion)
	if len(v.Items) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(v.Items), v.Items)
	}
	// Fixed order: version first, geometry next, units last.
	if !strings.Contains(v.Items[0], "format_version") {
		t.Errorf("first violation is %q, want version check first", v.Items[0])
	}
	if !strings.Contains(v.Items[len(v.Items)-1], "units_after_scaling") {
		t.Errorf("last violation is %q, want unit check last", v.Items[len(v.Items)-1])
	}
}

func TestValidate_ChannelCountMismatch(t *testing.T) {
	s := validSchema(300)
	m, _ := trace.New(trace.Int16, 299, 100)

	v := schema.Validate(s, m, supportedVersion)
	if len(v.Items) != 1 || !strings.Contains(v.Items[0], "channels") {
		t.Fatalf("expected one channel-count violation, got %v", v.Items)
	}
}

func TestComputeEndTime(t *testing.T) {
	s := validSchema(10)
	s.StartTimeNs = 1_000_000_000
	s.SamplingRate = 1000.0
	s.ComputeEndTime(10000)

	// 10000 samples at 1 kHz = 10 s.
	want := uint64(1_000_000_000 + 10_000_000_000)
	if s.EndTimeNs != want {
		t.Errorf("EndTimeNs = %d, want %d", s.EndTimeNs, want)
	}
	if s.EndTime() < s.StartTime() {
		t.Errorf("end time before start time")
	}
}

func TestUnitSets(t *testing.T) {
	for _, u := range []string{"rad", "m/m", "nm/m/2"} {
		if !schema.ValidDataUnit(u) {
			t.Errorf("data unit %q rejected", u)
		}
	}
	if schema.ValidDataUnit("RAD") {
		t.Errorf("unit membership must be exact, not case-folded")
	}
	if !schema.ValidScaledUnit("ue/m") {
		t.Errorf("scaled unit ue/m rejected")
	}
}
