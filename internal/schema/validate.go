package schema

import (
	"fmt"

	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/trace"
)

// Shaped is the slice of a trace matrix that validation needs. It lets
// an opened container validate from its data-section header without
// loading the samples. *trace.Matrix satisfies it.
type Shaped interface {
	DType() trace.DType
	Channels() int
}

// Validate checks every invariant over the schema and the trace matrix
// and returns the complete list of violations. The check is total: it
// never stops at the first failure, so one pass yields the full
// diagnostic. An empty result means the pair is valid.
//
// Check order is fixed: version equality, geometry lengths, dtype
// membership, unit membership.
func Validate(s *Schema, m Shaped, supportedVersion int) *errors.Violations {
	v := &errors.Violations{}

	if s.FormatVersion != supportedVersion {
		v.Add("format_version", fmt.Sprintf("is %d, supported version is %d",
			s.FormatVersion, supportedVersion))
	}

	nLat, nLon, nElev := len(s.Latitudes), len(s.Longitudes), len(s.Elevations)
	if nLat != nLon {
		v.Add("latitudes/longitudes", fmt.Sprintf("lengths differ: %d != %d", nLat, nLon))
	}
	if nLat != nElev {
		v.Add("latitudes/elevations", fmt.Sprintf("lengths differ: %d != %d", nLat, nElev))
	}
	if m != nil && nLat != m.Channels() {
		v.Add("latitudes", fmt.Sprintf("%d positions for %d channels", nLat, m.Channels()))
	}

	if m != nil && !m.DType().Valid() {
		v.Add("traces", fmt.Sprintf("dtype code %d not in {int16, int32, float32}", m.DType()))
	}

	if !ValidDataUnit(s.DataUnit) {
		v.Add("data_unit", fmt.Sprintf("%q not in %v", s.DataUnit, DataUnits()))
	}
	if !ValidScaledUnit(s.UnitsAfterScaling) {
		v.Add("units_after_scaling", fmt.Sprintf("%q not in %v", s.UnitsAfterScaling, ScaledUnits()))
	}

	return v
}

// IsValid is the boolean convenience over Validate. The itemized
// report stays available through Validate for callers that need it.
func IsValid(s *Schema, m Shaped, supportedVersion int) bool {
	return !Validate(s, m, supportedVersion).HasViolations()
}
