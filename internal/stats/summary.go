// Package stats computes per-channel summary statistics for recordings.
// Percentiles come from DDSketch so summarizing a long recording stays
// cheap in memory regardless of sample count.
package stats

import (
	"math"
	"runtime"

	"github.com/DataDog/sketches-go/ddsketch"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/trace"
)

// DefaultAccuracy is the relative accuracy handed to DDSketch when the
// caller does not pick one.
const DefaultAccuracy = 0.01

// Summary maintains running statistics for a single channel.
type Summary struct {
	channel int

	count  int64
	nans   int64
	sum    float64
	sumSq  float64
	min    float64
	max    float64
	sketch *ddsketch.DDSketch
}

// Result is a finished per-channel summary.
type Result struct {
	Channel int
	Count   int64
	NaNs    int64
	Sum     float64
	Mean    float64
	RMS     float64
	Min     float64
	Max     float64
	P50     float64
	P95     float64
	P99     float64
}

// NewSummary creates a summary for one channel. accuracy is the DDSketch
// relative accuracy; pass DefaultAccuracy unless you need tighter tails.
func NewSummary(channel int, accuracy float64) (*Summary, error) {
	if accuracy <= 0 || accuracy >= 1 {
		return nil, errors.NewInvalidParameter("accuracy", accuracy, "must be in (0, 1)")
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return nil, errors.Wrap(err, "creating sketch")
	}
	return &Summary{
		channel: channel,
		min:     math.MaxFloat64,
		max:     -math.MaxFloat64,
		sketch:  sketch,
	}, nil
}

// Add folds one sample into the summary. Non-finite samples are counted
// separately and excluded from every statistic.
func (s *Summary) Add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		s.nans++
		return
	}

	s.count++
	s.sum += v
	s.sumSq += v * v

	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}

	s.sketch.Add(v)
}

// Count returns the number of finite samples added.
func (s *Summary) Count() int64 {
	return s.count
}

// IsEmpty returns true if no finite samples have been added.
func (s *Summary) IsEmpty() bool {
	return s.count == 0
}

// Merge combines another summary for the same channel into this one.
func (s *Summary) Merge(other *Summary) error {
	if other == nil || other.count+other.nans == 0 {
		return nil
	}
	if other.channel != s.channel {
		return errors.NewInvalidParameter("other", other.channel, "summaries cover different channels")
	}

	s.count += other.count
	s.nans += other.nans
	s.sum += other.sum
	s.sumSq += other.sumSq

	if other.min < s.min {
		s.min = other.min
	}
	if other.max > s.max {
		s.max = other.max
	}

	return s.sketch.MergeWith(other.sketch)
}

// Result returns the finished summary.
func (s *Summary) Result() Result {
	result := Result{
		Channel: s.channel,
		Count:   s.count,
		NaNs:    s.nans,
		Sum:     s.sum,
	}

	if s.count > 0 {
		result.Mean = s.sum / float64(s.count)
		result.RMS = math.Sqrt(s.sumSq / float64(s.count))
		result.Min = s.min
		result.Max = s.max
	}

	if s.count > 0 {
		p50, _ := s.sketch.GetValueAtQuantile(0.50)
		p95, _ := s.sketch.GetValueAtQuantile(0.95)
		p99, _ := s.sketch.GetValueAtQuantile(0.99)
		result.P50 = p50
		result.P95 = p95
		result.P99 = p99
	}

	return result
}

// Summarize computes one Result per channel of the recording, channels in
// parallel.
func Summarize(m *trace.Matrix, accuracy float64) ([]Result, error) {
	if m == nil {
		return nil, errors.NewInvalidParameter("m", nil, "nil matrix")
	}

	channels := m.AxisLen(trace.AxisChannel)
	samples := m.AxisLen(trace.AxisTime)
	results := make([]Result, channels)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for ch := 0; ch < channels; ch++ {
		ch := ch
		g.Go(func() error {
			s, err := NewSummary(ch, accuracy)
			if err != nil {
				return err
			}
			for t := 0; t < samples; t++ {
				s.Add(m.At(ch, t))
			}
			results[ch] = s.Result()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
