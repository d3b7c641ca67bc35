// Package schema defines the fixed set of required container header
// fields and the invariants over them.
package schema

import (
	"math"
	"time"
)

// FormatID is the format-identity marker distinguishing this container
// family from other recordings. It is stored verbatim in the file and
// checked on open.
const FormatID = "miniDAS"

// Schema holds the required top-level fields of a container. Geometry
// slices must all have the channel-axis length of the trace matrix.
//
// EndTimeNs is always derived from StartTimeNs, SamplingRate and the
// sample count; it is never supplied independently and a persisted
// value is never trusted on read.
type Schema struct {
	FormatVersion     int
	DataUnit          string
	StartTimeNs       uint64
	EndTimeNs         uint64
	SamplingRate      float64
	GaugeLength       float64
	ScaleFactor       float64
	UnitsAfterScaling string
	Latitudes         []float64
	Longitudes        []float64
	Elevations        []float64
}

// DeltaT returns the sample spacing in seconds.
func (s *Schema) DeltaT() float64 {
	return 1.0 / s.SamplingRate
}

// StartTime returns the start time in seconds from the UNIX epoch.
func (s *Schema) StartTime() float64 {
	return float64(s.StartTimeNs) / 1e9
}

// EndTime returns the end time in seconds from the UNIX epoch.
func (s *Schema) EndTime() float64 {
	return float64(s.EndTimeNs) / 1e9
}

// StartDateTime returns the start time as a UTC time.Time.
func (s *Schema) StartDateTime() time.Time {
	return time.Unix(0, int64(s.StartTimeNs)).UTC()
}

// EndDateTime returns the end time as a UTC time.Time.
func (s *Schema) EndDateTime() time.Time {
	return time.Unix(0, int64(s.EndTimeNs)).UTC()
}

// NChannels returns the geometry channel count.
func (s *Schema) NChannels() int {
	return len(s.Latitudes)
}

// ComputeEndTime derives and stores the end time for a recording of
// nSamples samples: start + round(nSamples * deltaT * 1e9).
func (s *Schema) ComputeEndTime(nSamples int) {
	s.EndTimeNs = s.StartTimeNs + uint64(math.Round(float64(nSamples)*s.DeltaT()*1e9))
}

// Clone returns a deep copy.
func (s *Schema) Clone() *Schema {
	c := *s
	c.Latitudes = append([]float64(nil), s.Latitudes...)
	c.Longitudes = append([]float64(nil), s.Longitudes...)
	c.Elevations = append([]float64(nil), s.Elevations...)
	return &c
}
