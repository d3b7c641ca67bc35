package container

import (
	"math"

	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/trace"
)

// ChannelRange selects channels [From, To). A nil range means the full
// channel axis.
type ChannelRange struct {
	From int
	To   int
}

// Slice returns the samples between two absolute times (seconds since
// the UNIX epoch) for the selected channels, reading only the chunks
// it needs when the container is file-backed.
//
// Index arithmetic, preserved bit-for-bit from the format's existing
// consumers: the start index is floor((start - schema.start_time)/dt);
// the end index is floor((end - schema.END_time)/dt), an offset from
// the END of the recording that resolves to n_samples plus that
// (non-positive, for in-range requests) value. Do not symmetrize.
//
// start > end fails with ErrInvalidRange. Indices outside the
// recording fail with ErrIndexOutOfBounds; there is no clamping.
func (c *Container) Slice(startTime, endTime float64, chRange *ChannelRange) (*trace.Matrix, error) {
	if startTime > endTime {
		return nil, errors.Wrapf(errors.ErrInvalidRange,
			"start %.9fs after end %.9fs", startTime, endTime)
	}

	rate := c.schema.SamplingRate
	startIdx := floorIndex((startTime-c.schema.StartTime())*rate, timeBias(startTime, rate))
	endIdx := c.nSamples + floorIndex((endTime-c.schema.EndTime())*rate, timeBias(endTime, rate))

	ch0, ch1 := 0, c.nChannels
	if chRange != nil {
		ch0, ch1 = chRange.From, chRange.To
	}

	if startIdx < 0 || endIdx > c.nSamples || startIdx > endIdx {
		return nil, errors.Wrapf(errors.ErrIndexOutOfBounds,
			"time window resolves to samples [%d, %d) of %d", startIdx, endIdx, c.nSamples)
	}
	if ch0 < 0 || ch1 > c.nChannels || ch0 > ch1 {
		return nil, errors.Wrapf(errors.ErrIndexOutOfBounds,
			"channel range [%d, %d) of %d", ch0, ch1, c.nChannels)
	}

	if c.data != nil {
		return c.data.Window(ch0, ch1, startIdx, endIdx)
	}
	return c.r.ReadWindow(ch0, ch1, startIdx, endIdx)
}

// Trim returns a new in-memory container covering only the requested
// time window and channels. The schema moves with the cut: start time,
// end time and the geometry arrays all describe the trimmed recording.
// Free-form metadata is carried over unchanged.
func (c *Container) Trim(startTime, endTime float64, chRange *ChannelRange) (*Container, error) {
	m, err := c.Slice(startTime, endTime, chRange)
	if err != nil {
		return nil, err
	}

	ch0 := 0
	if chRange != nil {
		ch0 = chRange.From
	}
	nch := m.AxisLen(trace.AxisChannel)

	rate := c.schema.SamplingRate
	startIdx := floorIndex((startTime-c.schema.StartTime())*rate, timeBias(startTime, rate))

	// Slice succeeded above, so startIdx is within the recording and
	// the shift is non-negative.
	s := c.schema.Clone()
	s.StartTimeNs += uint64(math.Round(float64(startIdx) / rate * 1e9))
	if len(s.Latitudes) >= ch0+nch {
		s.Latitudes = append([]float64(nil), s.Latitudes[ch0:ch0+nch]...)
	}
	if len(s.Longitudes) >= ch0+nch {
		s.Longitudes = append([]float64(nil), s.Longitudes[ch0:ch0+nch]...)
	}
	if len(s.Elevations) >= ch0+nch {
		s.Elevations = append([]float64(nil), s.Elevations[ch0:ch0+nch]...)
	}

	return New(m, s, c.meta)
}

// floorIndex floors a sample offset after adding a bias that absorbs
// the float rounding noise of second-to-sample conversion for
// sample-aligned times.
func floorIndex(x, bias float64) int {
	return int(math.Floor(x + bias + 1e-9))
}

// timeBias bounds, in samples, the rounding error of an absolute
// float64 time near t. Epoch-scale seconds resolve to ~2.4e-7s, so
// both the caller's time and the schema start/end time sit up to half
// an ulp from the instant they name; one ulp of t covers the pair.
// Times that far from a sample boundary are indistinguishable from
// aligned at float64 resolution, so pulling them up never misplaces a
// genuinely interior time.
func timeBias(t, rate float64) float64 {
	a := math.Abs(t)
	return (math.Nextafter(a, math.MaxFloat64) - a) * rate
}
