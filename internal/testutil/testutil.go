// Package testutil provides deterministic fixtures for tests: a dummy
// recording with the reference geometry (a fiber laid out near the
// Eiffel Tower) and the reference free-form metadata examples.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/xtxerr/minidas/internal/container"
	"github.com/xtxerr/minidas/internal/meta"
	"github.com/xtxerr/minidas/internal/schema"
	"github.com/xtxerr/minidas/internal/trace"
)

// DummyMatrix returns a deterministic float32 matrix of the given
// shape, seeded so repeated runs and round-trip comparisons see the
// same samples.
func DummyMatrix(tb testing.TB, channels, samples int) *trace.Matrix {
	tb.Helper()

	rng := rand.New(rand.NewSource(123123))
	vals := make([]float32, channels*samples)
	for i := range vals {
		vals[i] = rng.Float32()
	}
	m, err := trace.NewFloat32(channels, samples, vals)
	if err != nil {
		tb.Fatalf("dummy matrix: %v", err)
	}
	return m
}

// DummySchema returns a valid schema for the given channel count.
func DummySchema(channels int) *schema.Schema {
	lat0, lon0 := 48.858222, 2.2945
	lats := make([]float64, channels)
	lons := make([]float64, channels)
	elevs := make([]float64, channels)
	for i := range lats {
		lats[i] = lat0 + 0.01*float64(i)/float64(channels)
		lons[i] = lon0
	}
	return &schema.Schema{
		FormatVersion:     container.CurrentVersion,
		DataUnit:          "rad",
		StartTimeNs:       1664355600000000000, // 2022-09-28T09:00:00Z
		SamplingRate:      1000.0,
		GaugeLength:       10.2,
		ScaleFactor:       567890.1234,
		UnitsAfterScaling: "ue/s",
		Latitudes:         lats,
		Longitudes:        lons,
		Elevations:        elevs,
	}
}

// DummyTree returns the reference free-form metadata: a scalar, a
// vector, a string and a nested mapping.
func DummyTree(tb testing.TB) *meta.Tree {
	tb.Helper()

	tree := meta.NewTree()
	nested := meta.NewTree()
	for _, step := range []struct {
		t   *meta.Tree
		key string
		val interface{}
	}{
		{tree, "scalar", 3.14159265358979},
		{tree, "vector", []int64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}},
		{tree, "string", "This is a test"},
		{nested, "val1", 1.23},
		{nested, "val2", "dummy"},
	} {
		if err := step.t.SetAny(step.key, step.val); err != nil {
			tb.Fatalf("dummy tree %s: %v", step.key, err)
		}
	}
	if err := tree.Set("dict", meta.SubTree(nested)); err != nil {
		tb.Fatalf("dummy tree dict: %v", err)
	}
	return tree
}

// DummyContainer assembles an in-memory container from the fixtures
// above.
func DummyContainer(tb testing.TB, channels, samples int) *container.Container {
	tb.Helper()

	c, err := container.New(DummyMatrix(tb, channels, samples), DummySchema(channels), DummyTree(tb))
	if err != nil {
		tb.Fatalf("dummy container: %v", err)
	}
	return c
}
