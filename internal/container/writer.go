package container

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"runtime"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/logging"
	"github.com/xtxerr/minidas/internal/meta"
	"github.com/xtxerr/minidas/internal/schema"
	"github.com/xtxerr/minidas/internal/trace"
)

// Options configures the container writer.
type Options struct {
	// Codec is the chunk compression algorithm.
	Codec Codec

	// CodecLevel is the zstd compression level (1-22).
	CodecLevel int

	// Overwrite allows replacing an existing destination. The default
	// refuses, as a safety net against silent data loss.
	Overwrite bool

	// Concurrency bounds the number of chunks compressed in parallel.
	Concurrency int
}

// DefaultOptions returns the default writer options.
func DefaultOptions() Options {
	return Options{
		Codec:       CodecZstd,
		CodecLevel:  3,
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

// Write persists a trace matrix, schema and metadata tree as a
// container file at path.
//
// The destination must not exist unless opts.Overwrite is set. The
// schema is stamped with the current format version and its end time
// derived before validation; any violation aborts the write with the
// itemized report and nothing on disk. The file is assembled in a
// temporary sibling and atomically renamed, so the destination is
// never visible half-written.
//
// No unit conversion happens here: scaling the data is the caller's
// concern (see Container.ApplyScaling).
func Write(path string, m *trace.Matrix, s *schema.Schema, tree *meta.Tree, opts Options) error {
	log := logging.Component("writer")

	if m == nil || s == nil {
		return errors.NewInvalidParameter("matrix/schema", nil, "required")
	}
	if tree == nil {
		tree = meta.NewTree()
	}

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		return errors.NewAlreadyExists(path)
	} else if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "stat %s", path)
	}

	s = s.Clone()
	s.FormatVersion = CurrentVersion
	s.ComputeEndTime(m.Samples())

	if err := schema.Validate(s, m, CurrentVersion).Err(); err != nil {
		return err
	}

	entries, err := meta.Encode(MetaRootKey, tree)
	if err != nil {
		return err
	}

	header, err := marshalHeader(s, entries)
	if err != nil {
		return err
	}

	chunks, err := buildChunks(m, opts)
	if err != nil {
		return err
	}

	if err := writeFile(path, header, m, opts.Codec, chunks); err != nil {
		return err
	}

	log.Debug("container written",
		"path", path,
		"channels", m.Channels(),
		"samples", m.Samples(),
		"dtype", m.DType().String(),
		"codec", opts.Codec.String())
	return nil
}

// marshalHeader builds the CBOR header block payload.
func marshalHeader(s *schema.Schema, entries []meta.Entry) ([]byte, error) {
	hdr := fileHeader{
		Attrs: headerAttrs{
			Format:            schema.FormatID,
			DataUnit:          s.DataUnit,
			StartTimeNs:       s.StartTimeNs,
			EndTimeNs:         s.EndTimeNs,
			SamplingRate:      s.SamplingRate,
			GaugeLength:       s.GaugeLength,
			ScaleFactor:       s.ScaleFactor,
			UnitsAfterScaling: s.UnitsAfterScaling,
			Latitudes:         s.Latitudes,
			Longitudes:        s.Longitudes,
			Elevations:        s.Elevations,
		},
		Meta: make([]headerEntry, len(entries)),
	}
	for i, e := range entries {
		hdr.Meta[i] = entryFromMeta(e)
	}

	payload, err := encMode.Marshal(&hdr)
	if err != nil {
		return nil, errors.Wrap(err, "encode header")
	}
	return payload, nil
}

// buildChunks encodes and compresses one chunk per channel, in
// parallel up to opts.Concurrency.
func buildChunks(m *trace.Matrix, opts Options) ([][]byte, error) {
	var enc *zstd.Encoder
	if opts.Codec == CodecZstd {
		var err error
		enc, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.CodecLevel)))
		if err != nil {
			return nil, errors.Wrap(err, "create zstd encoder")
		}
		defer enc.Close()
	}

	chunks := make([][]byte, m.Channels())

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for ch := 0; ch < m.Channels(); ch++ {
		ch := ch
		g.Go(func() error {
			raw := encodeChannel(m, ch)
			if enc != nil {
				raw = enc.EncodeAll(raw, nil)
			}
			chunks[ch] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// writeFile assembles the container in a temporary sibling file and
// renames it over the destination, so a failed write leaves nothing
// behind and an overwrite is all-or-nothing.
func writeFile(path string, header []byte, m *trace.Matrix, codec Codec, chunks [][]byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".minidas-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	// Prefix and header block.
	buf := make([]byte, 0, prefixSize+8+len(header))
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, CurrentVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(header)))
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(header))
	buf = append(buf, header...)

	// Data section header and chunk table.
	buf = append(buf, byte(m.DType()), byte(codec))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Channels()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Samples()))

	offset := uint64(0)
	for _, chunk := range chunks {
		buf = binary.LittleEndian.AppendUint64(buf, offset)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(chunk)))
		buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(chunk))
		offset += uint64(len(chunk))
	}

	if _, err = tmp.Write(buf); err != nil {
		return errors.Wrap(err, "write header")
	}
	for ch, chunk := range chunks {
		if _, err = tmp.Write(chunk); err != nil {
			return errors.Wrapf(err, "write chunk %d", ch)
		}
	}

	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// WriteFile persists an in-memory container. See Write.
func (c *Container) WriteFile(path string, opts Options) error {
	m, err := c.Data()
	if err != nil {
		return err
	}
	return Write(path, m, c.schema, c.meta, opts)
}
