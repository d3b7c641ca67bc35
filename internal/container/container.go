package container

import (
	"github.com/xtxerr/minidas/internal/dsp"
	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/meta"
	"github.com/xtxerr/minidas/internal/schema"
	"github.com/xtxerr/minidas/internal/trace"
)

// Container is the unit of persistence: one trace matrix, one schema
// and one metadata tree. A container is either built in memory from
// raw arrays or opened read-only from a file. Schema fields and
// metadata are fixed at creation; a revision requires a new container.
type Container struct {
	schema *schema.Schema
	meta   *meta.Tree

	// data is resident for containers built in memory and populated
	// lazily for opened containers.
	data *trace.Matrix
	r    *Reader

	dtype     trace.DType
	nChannels int
	nSamples  int
}

// shape adapts the container's data-section dimensions to
// schema.Shaped without loading the samples.
type shape struct {
	dtype    trace.DType
	channels int
}

func (s shape) DType() trace.DType { return s.dtype }
func (s shape) Channels() int      { return s.channels }

// New builds an in-memory container. The schema is cloned, stamped
// with the current format version, and its end time derived from the
// start time, sampling rate and sample count. No other validation
// happens here; Validate and Write check the invariants.
func New(m *trace.Matrix, s *schema.Schema, tree *meta.Tree) (*Container, error) {
	if m == nil {
		return nil, errors.NewInvalidParameter("matrix", nil, "required")
	}
	if s == nil {
		return nil, errors.NewInvalidParameter("schema", nil, "required")
	}
	if tree == nil {
		tree = meta.NewTree()
	}

	s = s.Clone()
	s.FormatVersion = CurrentVersion
	s.ComputeEndTime(m.Samples())

	return &Container{
		schema:    s,
		meta:      tree,
		data:      m,
		dtype:     m.DType(),
		nChannels: m.Channels(),
		nSamples:  m.Samples(),
	}, nil
}

// Schema returns the container schema. Callers must not mutate it.
func (c *Container) Schema() *schema.Schema { return c.schema }

// Meta returns the metadata tree. Callers must not mutate it.
func (c *Container) Meta() *meta.Tree { return c.meta }

// DType returns the trace sample type.
func (c *Container) DType() trace.DType { return c.dtype }

// NChannels returns the channel-axis length of the trace matrix.
func (c *Container) NChannels() int { return c.nChannels }

// NSamples returns the time-axis length of the trace matrix.
func (c *Container) NSamples() int { return c.nSamples }

// Duration returns the length of the recording in seconds.
func (c *Container) Duration() float64 {
	return float64(c.nSamples) * c.schema.DeltaT()
}

// Path returns the backing file path, empty for in-memory containers.
func (c *Container) Path() string {
	if c.r == nil {
		return ""
	}
	return c.r.path
}

// Data returns the full trace matrix, reading it from the backing
// store on first use for opened containers.
func (c *Container) Data() (*trace.Matrix, error) {
	if c.data != nil {
		return c.data, nil
	}
	m, err := c.r.ReadAll()
	if err != nil {
		return nil, err
	}
	c.data = m
	return m, nil
}

// Validate checks the container invariants and returns the complete
// violation report. It never loads the trace data: dtype and channel
// count come from the data-section header.
func (c *Container) Validate() *errors.Violations {
	return schema.Validate(c.schema, shape{dtype: c.dtype, channels: c.nChannels}, CurrentVersion)
}

// IsValid is the boolean convenience over Validate.
func (c *Container) IsValid() bool {
	return !c.Validate().HasViolations()
}

// ApplyScaling multiplies the trace data by the schema scale factor,
// promotes to physical units (float32), tags the data unit with
// units_after_scaling and resets the scale factor to 1.0, which makes
// a second application a no-op. In-memory only; the writer never
// scales implicitly.
func (c *Container) ApplyScaling() error {
	m, err := c.Data()
	if err != nil {
		return err
	}

	c.data = dsp.Scale(m, c.schema.ScaleFactor)
	c.dtype = c.data.DType()
	c.schema.DataUnit = c.schema.UnitsAfterScaling
	c.schema.ScaleFactor = 1.0
	return nil
}

// Close releases the backing store handle. Safe to call multiple
// times; a no-op for in-memory containers.
func (c *Container) Close() error {
	if c.r == nil {
		return nil
	}
	return c.r.Close()
}
