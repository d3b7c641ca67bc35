package container

import (
	"fmt"
	"math"
	"strings"

	"github.com/xtxerr/minidas/internal/trace"
)

// Compare performs a deep semantic equality check between two
// containers, the acceptance test for any conversion pipeline feeding
// this format. Every field is compared independently and every
// mismatch reported, so one pass yields the full diagnostic. Unit
// strings compare case-insensitively; geometry arrays exactly; trace
// values within traceTol of each other.
//
// The returned error covers trace data that could not be read, not
// inequality.
func Compare(a, b *Container, traceTol float64) ([]string, error) {
	var mismatches []string
	add := func(format string, args ...interface{}) {
		mismatches = append(mismatches, fmt.Sprintf(format, args...))
	}

	sa, sb := a.Schema(), b.Schema()

	if sa.FormatVersion != sb.FormatVersion {
		add("format_version: %d != %d", sa.FormatVersion, sb.FormatVersion)
	}
	if !strings.EqualFold(sa.DataUnit, sb.DataUnit) {
		add("data_unit: %q != %q", sa.DataUnit, sb.DataUnit)
	}
	if !strings.EqualFold(sa.UnitsAfterScaling, sb.UnitsAfterScaling) {
		add("units_after_scaling: %q != %q", sa.UnitsAfterScaling, sb.UnitsAfterScaling)
	}
	if sa.StartTimeNs != sb.StartTimeNs {
		add("start_time_ns: %d != %d", sa.StartTimeNs, sb.StartTimeNs)
	}
	if sa.SamplingRate != sb.SamplingRate {
		add("sampling_rate: %g != %g", sa.SamplingRate, sb.SamplingRate)
	}
	if sa.GaugeLength != sb.GaugeLength {
		add("gauge_length: %g != %g", sa.GaugeLength, sb.GaugeLength)
	}
	if sa.ScaleFactor != sb.ScaleFactor {
		add("scale_factor: %g != %g", sa.ScaleFactor, sb.ScaleFactor)
	}

	if !floatsEqual(sa.Latitudes, sb.Latitudes) {
		add("latitudes: arrays differ")
	}
	if !floatsEqual(sa.Longitudes, sb.Longitudes) {
		add("longitudes: arrays differ")
	}
	if !floatsEqual(sa.Elevations, sb.Elevations) {
		add("elevations: arrays differ")
	}

	ma, err := a.Data()
	if err != nil {
		return mismatches, err
	}
	mb, err := b.Data()
	if err != nil {
		return mismatches, err
	}
	if diff, err := trace.MaxAbsDiff(ma, mb); err != nil {
		add("traces: %v", err)
	} else if math.IsNaN(diff) || diff > traceTol {
		add("traces: max abs difference %g exceeds tolerance %g", diff, traceTol)
	}

	return mismatches, nil
}

// Equal is the boolean convenience over Compare.
func Equal(a, b *Container, traceTol float64) (bool, []string, error) {
	mismatches, err := Compare(a, b, traceTol)
	if err != nil {
		return false, mismatches, err
	}
	return len(mismatches) == 0, mismatches, nil
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
