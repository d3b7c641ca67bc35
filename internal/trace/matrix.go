// Package trace holds the in-memory representation of a DAS recording:
// a rectangular matrix of samples with a restricted set of data types.
//
// Axis convention: axis 0 enumerates channels, axis 1 enumerates time
// samples (channel-major storage). This ordering is part of the
// container format identity and must not be inferred from shape.
package trace

import (
	"math"

	"github.com/xtxerr/minidas/internal/errors"
)

// DType identifies the sample type of a Matrix. Only the three types of
// the persistence allow-list exist; anything else is invalid.
type DType uint8

const (
	Int16   DType = 1
	Int32   DType = 2
	Float32 DType = 3
)

// Valid reports whether d is a member of the allow-list.
func (d DType) Valid() bool {
	switch d {
	case Int16, Int32, Float32:
		return true
	}
	return false
}

// SampleSize returns the encoded size of one sample in bytes.
func (d DType) SampleSize() int {
	switch d {
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	}
	return 0
}

// String returns the canonical name of the data type.
func (d DType) String() string {
	switch d {
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	}
	return "invalid"
}

// ParseDType parses a canonical dtype name.
func ParseDType(s string) (DType, error) {
	switch s {
	case "int16":
		return Int16, nil
	case "int32":
		return Int32, nil
	case "float32":
		return Float32, nil
	}
	return 0, errors.Wrapf(errors.ErrInvalidDType, "dtype %q", s)
}

// Axis selects a Matrix axis.
type Axis int

const (
	AxisChannel Axis = 0
	AxisTime    Axis = 1
)

// Matrix is a 2-D rectangular array of samples in channel-major order:
// sample (ch, t) lives at index ch*samples+t of the backing slice.
// Exactly one of the backing slices is non-nil, selected by dtype.
type Matrix struct {
	dtype    DType
	channels int
	samples  int

	i16 []int16
	i32 []int32
	f32 []float32
}

// New creates a zero-filled matrix of the given shape and type.
func New(dtype DType, channels, samples int) (*Matrix, error) {
	if !dtype.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidDType, "dtype code %d", dtype)
	}
	if channels < 0 || samples < 0 {
		return nil, errors.Wrapf(errors.ErrShapeMismatch, "negative shape (%d, %d)", channels, samples)
	}

	m := &Matrix{dtype: dtype, channels: channels, samples: samples}
	n := channels * samples
	switch dtype {
	case Int16:
		m.i16 = make([]int16, n)
	case Int32:
		m.i32 = make([]int32, n)
	case Float32:
		m.f32 = make([]float32, n)
	}
	return m, nil
}

// NewInt16 creates a matrix over an existing int16 slice. The slice is
// used directly, not copied; its length must equal channels*samples.
func NewInt16(channels, samples int, data []int16) (*Matrix, error) {
	if err := checkShape(channels, samples, len(data)); err != nil {
		return nil, err
	}
	return &Matrix{dtype: Int16, channels: channels, samples: samples, i16: data}, nil
}

// NewInt32 creates a matrix over an existing int32 slice.
func NewInt32(channels, samples int, data []int32) (*Matrix, error) {
	if err := checkShape(channels, samples, len(data)); err != nil {
		return nil, err
	}
	return &Matrix{dtype: Int32, channels: channels, samples: samples, i32: data}, nil
}

// NewFloat32 creates a matrix over an existing float32 slice.
func NewFloat32(channels, samples int, data []float32) (*Matrix, error) {
	if err := checkShape(channels, samples, len(data)); err != nil {
		return nil, err
	}
	return &Matrix{dtype: Float32, channels: channels, samples: samples, f32: data}, nil
}

func checkShape(channels, samples, n int) error {
	if channels < 0 || samples < 0 {
		return errors.Wrapf(errors.ErrShapeMismatch, "negative shape (%d, %d)", channels, samples)
	}
	if channels*samples != n {
		return errors.Wrapf(errors.ErrShapeMismatch,
			"shape (%d, %d) needs %d samples, slice has %d", channels, samples, channels*samples, n)
	}
	return nil
}

// DType returns the sample type.
func (m *Matrix) DType() DType { return m.dtype }

// Channels returns the length of the channel axis.
func (m *Matrix) Channels() int { return m.channels }

// Samples returns the length of the time axis.
func (m *Matrix) Samples() int { return m.samples }

// AxisLen returns the length of the given axis.
func (m *Matrix) AxisLen(axis Axis) int {
	if axis == AxisChannel {
		return m.channels
	}
	return m.samples
}

// At returns the sample at (ch, t) as float64.
func (m *Matrix) At(ch, t int) float64 {
	i := ch*m.samples + t
	switch m.dtype {
	case Int16:
		return float64(m.i16[i])
	case Int32:
		return float64(m.i32[i])
	default:
		return float64(m.f32[i])
	}
}

// Set stores v at (ch, t), converting to the matrix dtype. Integer
// types truncate toward zero, matching a numpy astype cast.
func (m *Matrix) Set(ch, t int, v float64) {
	i := ch*m.samples + t
	switch m.dtype {
	case Int16:
		m.i16[i] = int16(v)
	case Int32:
		m.i32[i] = int32(v)
	default:
		m.f32[i] = float32(v)
	}
}

// Int16s returns the backing slice of an Int16 matrix, nil otherwise.
func (m *Matrix) Int16s() []int16 { return m.i16 }

// Int32s returns the backing slice of an Int32 matrix, nil otherwise.
func (m *Matrix) Int32s() []int32 { return m.i32 }

// Float32s returns the backing slice of a Float32 matrix, nil otherwise.
func (m *Matrix) Float32s() []float32 { return m.f32 }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{dtype: m.dtype, channels: m.channels, samples: m.samples}
	switch m.dtype {
	case Int16:
		c.i16 = append([]int16(nil), m.i16...)
	case Int32:
		c.i32 = append([]int32(nil), m.i32...)
	default:
		c.f32 = append([]float32(nil), m.f32...)
	}
	return c
}

// Window copies the rectangle channels [ch0, ch1) x samples [t0, t1)
// into a new matrix of the same dtype.
func (m *Matrix) Window(ch0, ch1, t0, t1 int) (*Matrix, error) {
	if ch0 < 0 || ch1 > m.channels || ch0 > ch1 ||
		t0 < 0 || t1 > m.samples || t0 > t1 {
		return nil, errors.Wrapf(errors.ErrIndexOutOfBounds,
			"window channels [%d, %d) samples [%d, %d) of shape (%d, %d)",
			ch0, ch1, t0, t1, m.channels, m.samples)
	}

	out, _ := New(m.dtype, ch1-ch0, t1-t0)
	for ch := ch0; ch < ch1; ch++ {
		src := ch*m.samples + t0
		dst := (ch - ch0) * out.samples
		switch m.dtype {
		case Int16:
			copy(out.i16[dst:dst+out.samples], m.i16[src:src+out.samples])
		case Int32:
			copy(out.i32[dst:dst+out.samples], m.i32[src:src+out.samples])
		default:
			copy(out.f32[dst:dst+out.samples], m.f32[src:src+out.samples])
		}
	}
	return out, nil
}

// MaxAbsDiff returns the largest absolute per-sample difference between
// two matrices of the same shape. The dtypes may differ; values are
// compared as float64. NaN differences surface as NaN, which compares
// unequal to any tolerance.
func MaxAbsDiff(a, b *Matrix) (float64, error) {
	if a.channels != b.channels || a.samples != b.samples {
		return 0, errors.Wrapf(errors.ErrShapeMismatch,
			"(%d, %d) vs (%d, %d)", a.channels, a.samples, b.channels, b.samples)
	}

	max := 0.0
	for ch := 0; ch < a.channels; ch++ {
		for t := 0; t < a.samples; t++ {
			d := math.Abs(a.At(ch, t) - b.At(ch, t))
			if math.IsNaN(d) {
				return math.NaN(), nil
			}
			if d > max {
				max = d
			}
		}
	}
	return max, nil
}
