package dsp

import (
	"math"
	"testing"

	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/trace"
)

// wrap maps v into [0, step).
func wrap(v, step float64) float64 {
	w := math.Mod(v, step)
	if w < 0 {
		w += step
	}
	return w
}

// rampMatrix builds a single-channel matrix holding a monotonic ramp
// and its wrapped counterpart.
func rampMatrix(t *testing.T, n int, slope, step float64) (ramp []float64, m *trace.Matrix) {
	t.Helper()

	ramp = make([]float64, n)
	wrapped := make([]float32, n)
	for i := 0; i < n; i++ {
		ramp[i] = slope * float64(i)
		wrapped[i] = float32(wrap(ramp[i], step))
	}
	m, err := trace.NewFloat32(1, n, wrapped)
	if err != nil {
		t.Fatalf("new matrix: %v", err)
	}
	return ramp, m
}

func TestUnwrap_RecoversRamp(t *testing.T) {
	// Phase advances 2*pi every 10 samples, so the wrapped signal
	// jumps by a full period every 10 samples along the time axis.
	const n = 100
	slope := 2 * math.Pi / 10
	ramp, m := rampMatrix(t, n, slope, 2*math.Pi)

	out, err := Unwrap(m, 2*math.Pi, trace.AxisTime)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}

	for i := 0; i < n; i++ {
		got := out.At(0, i)
		if math.Abs(got-ramp[i]) > 1e-4 {
			t.Fatalf("sample %d: got %g, want %g", i, got, ramp[i])
		}
	}
}

func TestUnwrap_Idempotent(t *testing.T) {
	const n = 100
	slope := 2 * math.Pi / 10
	_, m := rampMatrix(t, n, slope, 2*math.Pi)

	once, err := Unwrap(m, 2*math.Pi, trace.AxisTime)
	if err != nil {
		t.Fatalf("first unwrap: %v", err)
	}
	twice, err := Unwrap(once, 2*math.Pi, trace.AxisTime)
	if err != nil {
		t.Fatalf("second unwrap: %v", err)
	}

	diff, err := trace.MaxAbsDiff(once, twice)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if diff != 0 {
		t.Errorf("second unwrap changed the signal, max diff %g", diff)
	}
}

func TestUnwrap_CustomWrapStep(t *testing.T) {
	// Same ramp, wrapped with a non-2*pi period (an interrogator
	// spatial unwrap range).
	const n, step = 80, 3.5
	slope := step / 7
	ramp, wrappedVals := make([]float64, n), make([]float32, n)
	for i := 0; i < n; i++ {
		ramp[i] = slope * float64(i)
		wrappedVals[i] = float32(wrap(ramp[i], step))
	}
	m, _ := trace.NewFloat32(1, n, wrappedVals)

	out, err := Unwrap(m, step, trace.AxisTime)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	for i := 0; i < n; i++ {
		if math.Abs(out.At(0, i)-ramp[i]) > 1e-4 {
			t.Fatalf("sample %d: got %g, want %g", i, out.At(0, i), ramp[i])
		}
	}
}

func TestUnwrap_ChannelAxis(t *testing.T) {
	// Transpose of the time-axis case: the ramp runs across channels.
	const n = 50
	slope := 2 * math.Pi / 10
	vals := make([]float32, n)
	ramp := make([]float64, n)
	for i := 0; i < n; i++ {
		ramp[i] = slope * float64(i)
		vals[i] = float32(wrap(ramp[i], 2*math.Pi))
	}
	m, _ := trace.NewFloat32(n, 1, vals)

	out, err := Unwrap(m, 2*math.Pi, trace.AxisChannel)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	for i := 0; i < n; i++ {
		if math.Abs(out.At(i, 0)-ramp[i]) > 1e-4 {
			t.Fatalf("channel %d: got %g, want %g", i, out.At(i, 0), ramp[i])
		}
	}
}

func TestUnwrap_SingleSampleNoop(t *testing.T) {
	m, _ := trace.NewFloat32(3, 1, []float32{1, 2, 3})
	out, err := Unwrap(m, 2*math.Pi, trace.AxisTime)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if d, _ := trace.MaxAbsDiff(m, out); d != 0 {
		t.Errorf("length-1 axis modified the signal")
	}
}

func TestUnwrap_InvalidWrapStep(t *testing.T) {
	m, _ := trace.NewFloat32(1, 4, []float32{0, 1, 2, 3})
	for _, step := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := Unwrap(m, step, trace.AxisTime); !errors.Is(err, errors.ErrInvalidParameter) {
			t.Errorf("wrapStep %v: expected ErrInvalidParameter, got %v", step, err)
		}
	}
}

func TestUnwrap_NonFinitePropagates(t *testing.T) {
	vals := []float32{0, 1, float32(math.NaN()), 2, 3}
	m, _ := trace.NewFloat32(1, len(vals), vals)

	out, err := Unwrap(m, 2*math.Pi, trace.AxisTime)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if !math.IsNaN(out.At(0, 2)) {
		t.Errorf("NaN sample did not propagate")
	}
	// Small neighboring differences are no jumps; the finite samples
	// must come through unchanged.
	for _, i := range []int{0, 1, 3, 4} {
		if out.At(0, i) != float64(vals[i]) {
			t.Errorf("sample %d changed: got %g, want %g", i, out.At(0, i), vals[i])
		}
	}
}

func TestUnwrap_KeepsDType(t *testing.T) {
	m, _ := trace.NewInt32(1, 4, []int32{0, 3, 6, 9})
	out, err := Unwrap(m, 2*math.Pi, trace.AxisTime)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if out.DType() != trace.Int32 {
		t.Errorf("dtype changed to %v", out.DType())
	}
}

func TestScale_PromotesAndMultiplies(t *testing.T) {
	m, _ := trace.NewInt16(1, 3, []int16{1, -2, 3})
	out := Scale(m, 2.5)

	if out.DType() != trace.Float32 {
		t.Fatalf("dtype = %v, want float32", out.DType())
	}
	want := []float64{2.5, -5, 7.5}
	for i, w := range want {
		if out.At(0, i) != w {
			t.Errorf("sample %d: got %g, want %g", i, out.At(0, i), w)
		}
	}
}

func TestScale_FactorOneIsIdentity(t *testing.T) {
	m, _ := trace.NewFloat32(1, 3, []float32{1.5, -2.25, 0})
	out := Scale(m, 1.0)
	if d, _ := trace.MaxAbsDiff(m, out); d != 0 {
		t.Errorf("factor 1.0 changed values, max diff %g", d)
	}
}
