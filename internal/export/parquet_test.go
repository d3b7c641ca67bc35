package export

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/minidas/internal/stats"
	"github.com/xtxerr/minidas/internal/testutil"
)

func TestWriteSamples(t *testing.T) {
	c := testutil.DummyContainer(t, 3, 5)
	path := filepath.Join(t.TempDir(), "samples.parquet")

	written, err := WriteSamples(path, c, DefaultOptions())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if written != 15 {
		t.Fatalf("wrote %d rows, want 15", written)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[SampleRow](f)
	defer reader.Close()

	if reader.NumRows() != 15 {
		t.Fatalf("file holds %d rows, want 15", reader.NumRows())
	}

	rows := make([]SampleRow, 15)
	if _, err := reader.Read(rows); err != nil && err != io.EOF {
		t.Fatalf("read rows: %v", err)
	}

	data, _ := c.Data()
	s := c.Schema()
	// Long format: channel-major, sample times spaced by the sampling
	// interval from the recording start.
	if rows[0].Channel != 0 || rows[0].TimeNs != int64(s.StartTimeNs) {
		t.Errorf("row 0 = ch %d @ %d, want ch 0 @ %d", rows[0].Channel, rows[0].TimeNs, s.StartTimeNs)
	}
	if rows[5].Channel != 1 {
		t.Errorf("row 5 channel = %d, want 1", rows[5].Channel)
	}
	if got, want := rows[7].Value, data.At(1, 2); got != want {
		t.Errorf("row 7 value = %g, want %g", got, want)
	}
	if got, want := rows[1].TimeNs-rows[0].TimeNs, int64(1e6); got != want {
		t.Errorf("sample spacing = %d ns, want %d", got, want)
	}
}

func TestWriteSamples_FooterMetadata(t *testing.T) {
	c := testutil.DummyContainer(t, 2, 4)
	path := filepath.Join(t.TempDir(), "samples.parquet")

	if _, err := WriteSamples(path, c, DefaultOptions()); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	st, _ := f.Stat()

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	for key, want := range map[string]string{
		"format":        "miniDAS",
		"data_unit":     "rad",
		"sampling_rate": "1000",
		"start_time_ns": "1664355600000000000",
	} {
		got, ok := pf.Lookup(key)
		if !ok {
			t.Errorf("footer missing %q", key)
			continue
		}
		if got != want {
			t.Errorf("footer %s = %q, want %q", key, got, want)
		}
	}
}

func TestWriteSamples_SmallBatches(t *testing.T) {
	c := testutil.DummyContainer(t, 4, 25)
	path := filepath.Join(t.TempDir(), "samples.parquet")

	opts := DefaultOptions()
	opts.BatchRows = 7 // forces several partial flushes
	written, err := WriteSamples(path, c, opts)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if written != 100 {
		t.Errorf("wrote %d rows, want 100", written)
	}
}

func TestWriteSummaries(t *testing.T) {
	c := testutil.DummyContainer(t, 3, 50)
	data, _ := c.Data()
	results, err := stats.Summarize(data, stats.DefaultAccuracy)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	path := filepath.Join(t.TempDir(), "summary.parquet")
	if err := WriteSummaries(path, c, results, DefaultOptions()); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[SummaryRow](f)
	defer reader.Close()

	if reader.NumRows() != 3 {
		t.Fatalf("file holds %d rows, want 3", reader.NumRows())
	}
	rows := make([]SummaryRow, 3)
	if _, err := reader.Read(rows); err != nil && err != io.EOF {
		t.Fatalf("read rows: %v", err)
	}
	for i, row := range rows {
		if row.Channel != int32(i) {
			t.Errorf("row %d channel = %d", i, row.Channel)
		}
		if row.Count != 50 {
			t.Errorf("channel %d count = %d, want 50", i, row.Count)
		}
	}
}
