package trace

import (
	"math"
	"testing"

	"github.com/xtxerr/minidas/internal/errors"
)

func TestParseDType(t *testing.T) {
	for name, want := range map[string]DType{
		"int16":   Int16,
		"int32":   Int32,
		"float32": Float32,
	} {
		got, err := ParseDType(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if got != want {
			t.Errorf("parse %q = %v, want %v", name, got, want)
		}
		if got.String() != name {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), name)
		}
	}

	for _, name := range []string{"float64", "int8", "", "INT16"} {
		if _, err := ParseDType(name); !errors.Is(err, errors.ErrInvalidDType) {
			t.Errorf("parse %q: got %v, want ErrInvalidDType", name, err)
		}
	}
}

func TestNew_ShapeChecks(t *testing.T) {
	if _, err := NewFloat32(3, 4, make([]float32, 11)); !errors.Is(err, errors.ErrShapeMismatch) {
		t.Errorf("short slice: got %v, want ErrShapeMismatch", err)
	}
	if _, err := New(Int16, -1, 4); !errors.Is(err, errors.ErrShapeMismatch) {
		t.Errorf("negative shape: got %v, want ErrShapeMismatch", err)
	}
	if _, err := New(DType(7), 1, 1); !errors.Is(err, errors.ErrInvalidDType) {
		t.Errorf("bad dtype: got %v, want ErrInvalidDType", err)
	}
}

func TestAtSet_ChannelMajor(t *testing.T) {
	m, err := NewInt32(2, 3, []int32{0, 1, 2, 10, 11, 12})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if got := m.At(1, 2); got != 12 {
		t.Errorf("At(1,2) = %g, want 12", got)
	}
	if m.AxisLen(AxisChannel) != 2 || m.AxisLen(AxisTime) != 3 {
		t.Errorf("axis lengths = %d, %d", m.AxisLen(AxisChannel), m.AxisLen(AxisTime))
	}

	// Integer Set truncates toward zero.
	m.Set(0, 0, -2.9)
	if got := m.At(0, 0); got != -2 {
		t.Errorf("Set(-2.9) stored %g, want -2", got)
	}
}

func TestWindow(t *testing.T) {
	m, _ := NewInt16(3, 4, []int16{
		0, 1, 2, 3,
		10, 11, 12, 13,
		20, 21, 22, 23,
	})

	w, err := m.Window(1, 3, 1, 3)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	want := []int16{11, 12, 21, 22}
	for i, v := range w.Int16s() {
		if v != want[i] {
			t.Fatalf("window = %v, want %v", w.Int16s(), want)
		}
	}

	if _, err := m.Window(0, 4, 0, 4); !errors.Is(err, errors.ErrIndexOutOfBounds) {
		t.Errorf("oversized window: got %v, want ErrIndexOutOfBounds", err)
	}
}

func TestClone_Independent(t *testing.T) {
	m, _ := NewFloat32(1, 2, []float32{1, 2})
	c := m.Clone()
	c.Set(0, 0, 99)
	if m.At(0, 0) != 1 {
		t.Errorf("clone shares storage with original")
	}
}

func TestMaxAbsDiff(t *testing.T) {
	a, _ := NewFloat32(1, 3, []float32{1, 2, 3})
	b, _ := NewInt16(1, 3, []int16{1, 2, 5})

	d, err := MaxAbsDiff(a, b)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if d != 2 {
		t.Errorf("max diff = %g, want 2", d)
	}

	nan, _ := NewFloat32(1, 3, []float32{1, float32(math.NaN()), 3})
	d, err = MaxAbsDiff(a, nan)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !math.IsNaN(d) {
		t.Errorf("NaN sample produced finite diff %g", d)
	}

	short, _ := NewFloat32(1, 2, []float32{1, 2})
	if _, err := MaxAbsDiff(a, short); !errors.Is(err, errors.ErrShapeMismatch) {
		t.Errorf("shape mismatch: got %v, want ErrShapeMismatch", err)
	}
}
