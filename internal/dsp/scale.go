package dsp

import (
	"github.com/xtxerr/minidas/internal/trace"
)

// Scale multiplies every sample by factor and returns the result as a
// new matrix. Integer inputs are promoted to float32; float32 input
// stays float32. The caller is responsible for retagging the unit
// fields (see container.ApplyScaling, which does both in one step).
func Scale(m *trace.Matrix, factor float64) *trace.Matrix {
	out, _ := trace.New(trace.Float32, m.Channels(), m.Samples())
	for ch := 0; ch < m.Channels(); ch++ {
		for t := 0; t < m.Samples(); t++ {
			out.Set(ch, t, m.At(ch, t)*factor)
		}
	}
	return out
}
