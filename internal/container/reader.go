package container

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/logging"
	"github.com/xtxerr/minidas/internal/meta"
	"github.com/xtxerr/minidas/internal/schema"
	"github.com/xtxerr/minidas/internal/trace"
)

// Reader owns the backing file handle of an opened container and
// serves chunk reads. It is created by Open and released by Close.
type Reader struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	closed bool

	dtype     trace.DType
	codec     Codec
	nChannels int
	nSamples  int

	chunkBase int64
	chunks    []chunkRef

	dec *zstd.Decoder
}

// Open opens a container file read-only.
//
// The format-identity marker is verified first (ErrNotAContainer when
// absent), then the format version, which must equal exactly the
// version this reader implements (ErrUnsupportedVersion otherwise; a
// mismatch is always fatal, never a partial read). The schema and
// metadata tree are reconstructed from the header block; the end time
// is recomputed from the start time, sampling rate and sample count
// rather than trusted from storage.
func Open(path string) (*Container, error) {
	log := logging.Component("reader")

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	c, err := readContainer(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}

	log.Debug("container opened",
		"path", path,
		"channels", c.nChannels,
		"samples", c.nSamples,
		"dtype", c.dtype.String())
	return c, nil
}

func readContainer(f *os.File, path string) (*Container, error) {
	// Prefix: magic and version.
	prefix := make([]byte, prefixSize)
	if _, err := io.ReadFull(f, prefix); err != nil {
		return nil, errors.NewNotAContainer(path, "file too short for format marker")
	}
	for i := range magic {
		if prefix[i] != magic[i] {
			return nil, errors.NewNotAContainer(path, "format marker missing")
		}
	}

	version := int(binary.LittleEndian.Uint32(prefix[8:]))
	if version != CurrentVersion {
		return nil, errors.NewUnsupportedVersion(version, CurrentVersion)
	}

	// Header block.
	frame := make([]byte, 8)
	if _, err := io.ReadFull(f, frame); err != nil {
		return nil, errors.Wrap(errors.ErrCorrupted, "header frame truncated")
	}
	hdrLen := binary.LittleEndian.Uint32(frame[0:])
	hdrCRC := binary.LittleEndian.Uint32(frame[4:])

	payload := make([]byte, hdrLen)
	if _, err := io.ReadFull(f, payload); err != nil {
		return nil, errors.Wrap(errors.ErrCorrupted, "header block truncated")
	}
	if crc32.ChecksumIEEE(payload) != hdrCRC {
		return nil, errors.Wrap(errors.ErrCorrupted, "header block checksum mismatch")
	}

	var hdr fileHeader
	if err := decMode.Unmarshal(payload, &hdr); err != nil {
		return nil, errors.Wrap(errors.ErrCorrupted, "header block decode")
	}
	if hdr.Attrs.Format != schema.FormatID {
		return nil, errors.NewNotAContainer(path, "format attribute is "+hdr.Attrs.Format)
	}

	// Data section header and chunk table.
	dataHdr := make([]byte, dataHeaderSize)
	if _, err := io.ReadFull(f, dataHdr); err != nil {
		return nil, errors.Wrap(errors.ErrCorrupted, "data header truncated")
	}
	dtype := trace.DType(dataHdr[0])
	codec := Codec(dataHdr[1])
	nChannels := int(binary.LittleEndian.Uint32(dataHdr[2:]))
	nSamples := int(binary.LittleEndian.Uint32(dataHdr[6:]))
	if !dtype.Valid() {
		return nil, errors.Wrapf(errors.ErrCorrupted, "dtype code %d", dtype)
	}

	table := make([]byte, nChannels*chunkRefSize)
	if _, err := io.ReadFull(f, table); err != nil {
		return nil, errors.Wrap(errors.ErrCorrupted, "chunk table truncated")
	}
	chunks := make([]chunkRef, nChannels)
	for ch := range chunks {
		rec := table[ch*chunkRefSize:]
		chunks[ch] = chunkRef{
			offset:    binary.LittleEndian.Uint64(rec[0:]),
			storedLen: binary.LittleEndian.Uint32(rec[8:]),
			crc:       binary.LittleEndian.Uint32(rec[12:]),
		}
	}

	chunkBase, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "seek")
	}

	// Metadata tree and schema reconstruction.
	entries := make([]meta.Entry, len(hdr.Meta))
	for i, h := range hdr.Meta {
		e, err := entryToMeta(h)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	tree, err := meta.Decode(MetaRootKey, entries)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCorrupted, err.Error())
	}

	s := &schema.Schema{
		FormatVersion:     version,
		DataUnit:          hdr.Attrs.DataUnit,
		StartTimeNs:       hdr.Attrs.StartTimeNs,
		SamplingRate:      hdr.Attrs.SamplingRate,
		GaugeLength:       hdr.Attrs.GaugeLength,
		ScaleFactor:       hdr.Attrs.ScaleFactor,
		UnitsAfterScaling: hdr.Attrs.UnitsAfterScaling,
		Latitudes:         hdr.Attrs.Latitudes,
		Longitudes:        hdr.Attrs.Longitudes,
		Elevations:        hdr.Attrs.Elevations,
	}
	// The derived invariant holds regardless of what was written.
	s.ComputeEndTime(nSamples)

	var dec *zstd.Decoder
	if codec == CodecZstd {
		dec, err = zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, "create zstd decoder")
		}
	}

	r := &Reader{
		file:      f,
		path:      path,
		dtype:     dtype,
		codec:     codec,
		nChannels: nChannels,
		nSamples:  nSamples,
		chunkBase: chunkBase,
		chunks:    chunks,
		dec:       dec,
	}
	return &Container{
		schema:    s,
		meta:      tree,
		r:         r,
		dtype:     dtype,
		nChannels: nChannels,
		nSamples:  nSamples,
	}, nil
}

// readChunk returns the decompressed payload of one channel chunk.
func (r *Reader) readChunk(ch int) ([]byte, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.ErrClosed
	}
	ref := r.chunks[ch]
	stored := make([]byte, ref.storedLen)
	_, err := r.file.ReadAt(stored, r.chunkBase+int64(ref.offset))
	r.mu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCorrupted, "chunk %d: %v", ch, err)
	}

	if crc32.ChecksumIEEE(stored) != ref.crc {
		return nil, errors.Wrapf(errors.ErrCorrupted, "chunk %d checksum mismatch", ch)
	}

	if r.codec == CodecZstd {
		raw, err := r.dec.DecodeAll(stored, nil)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCorrupted, "chunk %d: %v", ch, err)
		}
		return raw, nil
	}
	return stored, nil
}

// ReadWindow reads channels [ch0, ch1) and samples [t0, t1) into a new
// matrix without touching chunks outside the channel range.
func (r *Reader) ReadWindow(ch0, ch1, t0, t1 int) (*trace.Matrix, error) {
	if ch0 < 0 || ch1 > r.nChannels || ch0 > ch1 ||
		t0 < 0 || t1 > r.nSamples || t0 > t1 {
		return nil, errors.Wrapf(errors.ErrIndexOutOfBounds,
			"window channels [%d, %d) samples [%d, %d) of shape (%d, %d)",
			ch0, ch1, t0, t1, r.nChannels, r.nSamples)
	}

	out, err := trace.New(r.dtype, ch1-ch0, t1-t0)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for ch := ch0; ch < ch1; ch++ {
		ch := ch
		g.Go(func() error {
			raw, err := r.readChunk(ch)
			if err != nil {
				return err
			}
			return decodeSamples(out, ch-ch0, raw, t0, t1)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadAll reads the full trace matrix.
func (r *Reader) ReadAll() (*trace.Matrix, error) {
	return r.ReadWindow(0, r.nChannels, 0, r.nSamples)
}

// Close releases the file handle. Idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.dec != nil {
		r.dec.Close()
	}
	return r.file.Close()
}

// CheckFile opens a container and returns its violation report, the
// standalone validity check of the format. Open failures (missing
// marker, version mismatch, corruption) surface as the error.
func CheckFile(path string) (*errors.Violations, error) {
	c, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Validate(), nil
}
