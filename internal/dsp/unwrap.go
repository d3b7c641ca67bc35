// Package dsp implements the signal conditioning applied to raw
// interferometric phase measurements before they reach the container
// boundary: phase unwrapping and unit scaling.
package dsp

import (
	"math"

	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/trace"
)

// DefaultWrapStep is the canonical phase wrap period.
const DefaultWrapStep = 2 * math.Pi

// Unwrap corrects phase-wrap discontinuities along the given axis.
//
// The input is treated as angles sampled on a circle of circumference
// wrapStep: values are rescaled by 2*pi/wrapStep, run through the
// canonical 2*pi unwrap (cumulative jump correction wherever a
// consecutive difference exceeds pi in magnitude), and rescaled back.
// The jump arithmetic runs in float64; the result is cast to the input
// dtype only at the end.
//
// A length-1 axis is a no-op. Non-finite samples pass through
// unchanged and contribute no jump correction.
func Unwrap(m *trace.Matrix, wrapStep float64, axis trace.Axis) (*trace.Matrix, error) {
	if wrapStep <= 0 || math.IsNaN(wrapStep) || math.IsInf(wrapStep, 0) {
		return nil, errors.NewInvalidParameter("wrapStep", wrapStep, "must be a positive finite number")
	}
	if axis != trace.AxisChannel && axis != trace.AxisTime {
		return nil, errors.NewInvalidParameter("axis", axis, "must be the channel or time axis")
	}

	out := m.Clone()
	if m.AxisLen(axis) <= 1 {
		return out, nil
	}

	scale := DefaultWrapStep / wrapStep
	if axis == trace.AxisTime {
		for ch := 0; ch < m.Channels(); ch++ {
			unwrapLine(m, out, scale, func(k int) (int, int) { return ch, k }, m.Samples())
		}
	} else {
		for t := 0; t < m.Samples(); t++ {
			unwrapLine(m, out, scale, func(k int) (int, int) { return k, t }, m.Channels())
		}
	}
	return out, nil
}

// unwrapLine unwraps one line of n samples addressed through idx.
func unwrapLine(in, out *trace.Matrix, scale float64, idx func(k int) (ch, t int), n int) {
	carry := 0.0
	ch, t := idx(0)
	prev := in.At(ch, t) * scale

	for k := 1; k < n; k++ {
		ch, t = idx(k)
		cur := in.At(ch, t) * scale

		d := cur - prev
		if isFinite(d) {
			carry += jumpCorrection(d)
		}
		if isFinite(cur) {
			out.Set(ch, t, (cur+carry)/scale)
		}
		prev = cur
	}
}

// jumpCorrection returns the multiple of 2*pi that cancels a wrap jump
// in the consecutive difference d, or 0 when |d| does not exceed pi.
func jumpCorrection(d float64) float64 {
	if math.Abs(d) <= math.Pi {
		return 0
	}
	// Map d into (-pi, pi] and take the complement. Handles jumps of
	// several whole periods in one step.
	ddmod := math.Mod(d+math.Pi, 2*math.Pi)
	if ddmod < 0 {
		ddmod += 2 * math.Pi
	}
	ddmod -= math.Pi
	if ddmod == -math.Pi && d > 0 {
		ddmod = math.Pi
	}
	return ddmod - d
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
