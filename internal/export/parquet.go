// Package export converts recordings into Parquet files for downstream
// analytics tooling. Samples go out in long format, one row per channel
// and sample, with the acquisition attributes carried in the file footer.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/minidas/internal/container"
	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/stats"
	"github.com/xtxerr/minidas/internal/trace"
)

// Options configures the Parquet export.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// BatchRows is the number of rows buffered per write call
	BatchRows int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default export options.
func DefaultOptions() Options {
	return Options{
		Compression: CompressionZstd,
		BatchRows:   65536,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// SampleRow represents one sample in Parquet format.
type SampleRow struct {
	Channel int32   `parquet:"channel"`
	TimeNs  int64   `parquet:"time_ns"`
	Value   float64 `parquet:"value"`
}

// SummaryRow represents one per-channel summary in Parquet format.
type SummaryRow struct {
	Channel int32   `parquet:"channel"`
	Count   int64   `parquet:"count"`
	NaNs    int64   `parquet:"nans"`
	Mean    float64 `parquet:"mean"`
	RMS     float64 `parquet:"rms"`
	Min     float64 `parquet:"min"`
	Max     float64 `parquet:"max"`
	P50     float64 `parquet:"p50,optional"`
	P95     float64 `parquet:"p95,optional"`
	P99     float64 `parquet:"p99,optional"`
}

// footerMetadata carries the acquisition attributes into the Parquet
// footer so the exported file stays self-describing.
func footerMetadata(c *container.Container) []parquet.WriterOption {
	s := c.Schema()
	return []parquet.WriterOption{
		parquet.KeyValueMetadata("format", "miniDAS"),
		parquet.KeyValueMetadata("format_version", strconv.Itoa(s.FormatVersion)),
		parquet.KeyValueMetadata("data_unit", s.DataUnit),
		parquet.KeyValueMetadata("units_after_scaling", s.UnitsAfterScaling),
		parquet.KeyValueMetadata("start_time_ns", strconv.FormatUint(s.StartTimeNs, 10)),
		parquet.KeyValueMetadata("sampling_rate", strconv.FormatFloat(s.SamplingRate, 'g', -1, 64)),
		parquet.KeyValueMetadata("gauge_length", strconv.FormatFloat(s.GaugeLength, 'g', -1, 64)),
		parquet.KeyValueMetadata("scale_factor", strconv.FormatFloat(s.ScaleFactor, 'g', -1, 64)),
	}
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return f, nil
}

// WriteSamples exports every sample of the recording to a Parquet file
// and returns the number of rows written.
func WriteSamples(path string, c *container.Container, opts Options) (int64, error) {
	if opts.BatchRows <= 0 {
		return 0, errors.NewInvalidParameter("BatchRows", opts.BatchRows, "must be positive")
	}

	data, err := c.Data()
	if err != nil {
		return 0, err
	}

	f, err := createFile(path)
	if err != nil {
		return 0, err
	}

	writerOpts := append(
		[]parquet.WriterOption{parquet.Compression(getCompression(opts.Compression))},
		footerMetadata(c)...,
	)
	writer := parquet.NewGenericWriter[SampleRow](f, writerOpts...)

	s := c.Schema()
	startNs := int64(s.StartTimeNs)
	deltaNs := int64(1e9 / s.SamplingRate)
	channels := data.AxisLen(trace.AxisChannel)
	samples := data.AxisLen(trace.AxisTime)

	var written int64
	batch := make([]SampleRow, 0, opts.BatchRows)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := writer.Write(batch)
		if err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		written += int64(n)
		batch = batch[:0]
		return nil
	}

	for ch := 0; ch < channels; ch++ {
		for t := 0; t < samples; t++ {
			batch = append(batch, SampleRow{
				Channel: int32(ch),
				TimeNs:  startNs + int64(t)*deltaNs,
				Value:   data.At(ch, t),
			})
			if len(batch) == opts.BatchRows {
				if err := flush(); err != nil {
					f.Close()
					os.Remove(path)
					return 0, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}

	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("close file: %w", err)
	}
	return written, nil
}

// WriteSummaries exports per-channel summary statistics to a Parquet
// file, one row per channel.
func WriteSummaries(path string, c *container.Container, results []stats.Result, opts Options) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}

	writerOpts := append(
		[]parquet.WriterOption{parquet.Compression(getCompression(opts.Compression))},
		footerMetadata(c)...,
	)
	writer := parquet.NewGenericWriter[SummaryRow](f, writerOpts...)

	rows := make([]SummaryRow, len(results))
	for i, r := range results {
		rows[i] = SummaryRow{
			Channel: int32(r.Channel),
			Count:   r.Count,
			NaNs:    r.NaNs,
			Mean:    r.Mean,
			RMS:     r.RMS,
			Min:     r.Min,
			Max:     r.Max,
			P50:     r.P50,
			P95:     r.P95,
			P99:     r.P99,
		}
	}

	if _, err := writer.Write(rows); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("close writer: %w", err)
	}
	return f.Close()
}
