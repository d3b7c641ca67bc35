// Package container implements the miniDAS container: a single file
// holding one rectangular trace matrix, the required schema attributes
// and a free-form metadata tree.
//
// File format (little-endian):
//   - 8 bytes magic "miniDAS\x00"
//   - 4 bytes format version (uint32)
//   - header block: uint32 length | uint32 crc32 | CBOR payload
//     (schema attributes + flattened metadata entries)
//   - data section:
//     uint8 dtype code, uint8 codec, uint32 n_channels, uint32 n_samples,
//     chunk table (per channel: uint64 offset, uint32 stored length,
//     uint32 crc32), then one chunk per channel with the raw samples,
//     codec-compressed. Offsets are relative to the chunk area start.
//
// Per-channel chunks make windowed reads possible without loading the
// whole dataset: channel ranges skip chunks, time windows slice within
// a decoded chunk.
package container

import (
	"encoding/binary"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/xtxerr/minidas/internal/errors"
	"github.com/xtxerr/minidas/internal/meta"
	"github.com/xtxerr/minidas/internal/trace"
)

const (
	// CurrentVersion is the container format version this
	// implementation reads and writes. A file with any other version
	// is unreadable here; field sets can differ across versions.
	CurrentVersion = 1

	// MetaRootKey is the reserved namespace holding the metadata tree.
	MetaRootKey = "meta"
)

// magic identifies the container family before any parsing happens.
var magic = [8]byte{'m', 'i', 'n', 'i', 'D', 'A', 'S', 0}

const (
	prefixSize     = 12 // magic + version
	dataHeaderSize = 10 // dtype + codec + n_channels + n_samples
	chunkRefSize   = 16 // offset + stored length + crc32
)

// Codec is the chunk compression algorithm. Compression is a
// passthrough option: it never changes container semantics.
type Codec uint8

const (
	CodecNone Codec = 0
	CodecZstd Codec = 1
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	}
	return "unknown"
}

// ParseCodec parses a codec name.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "none", "":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	}
	return 0, errors.NewInvalidParameter("codec", s, "must be zstd or none")
}

// headerAttrs mirrors the flat top-level attributes of the container.
// Field names are part of the format and must not change within a
// format version.
type headerAttrs struct {
	Format            string    `cbor:"format"`
	DataUnit          string    `cbor:"data_unit"`
	StartTimeNs       uint64    `cbor:"start_time_ns"`
	EndTimeNs         uint64    `cbor:"end_time_ns"`
	SamplingRate      float64   `cbor:"sampling_rate"`
	GaugeLength       float64   `cbor:"gauge_length"`
	ScaleFactor       float64   `cbor:"scale_factor"`
	UnitsAfterScaling string    `cbor:"units_after_scaling"`
	Latitudes         []float64 `cbor:"latitudes"`
	Longitudes        []float64 `cbor:"longitudes"`
	Elevations        []float64 `cbor:"elevations"`
}

// headerEntry is one flattened metadata entry in the header block.
type headerEntry struct {
	Path   string    `cbor:"path"`
	Kind   uint8     `cbor:"kind"`
	Float  float64   `cbor:"float,omitempty"`
	Int    int64     `cbor:"int,omitempty"`
	Str    string    `cbor:"str,omitempty"`
	Floats []float64 `cbor:"floats,omitempty"`
	Ints   []int64   `cbor:"ints,omitempty"`
}

// fileHeader is the CBOR payload of the header block.
type fileHeader struct {
	Attrs headerAttrs   `cbor:"attrs"`
	Meta  []headerEntry `cbor:"meta"`
}

// chunkRef locates one channel chunk inside the chunk area.
type chunkRef struct {
	offset    uint64
	storedLen uint32
	crc       uint32
}

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	m, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}

func mustDecMode() cbor.DecMode {
	m, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return m
}

// entryFromMeta converts a flattened metadata entry into its header
// block representation.
func entryFromMeta(e meta.Entry) headerEntry {
	h := headerEntry{Path: e.Path, Kind: uint8(e.Value.Kind())}
	switch e.Value.Kind() {
	case meta.KindFloat:
		h.Float = e.Value.Float()
	case meta.KindInt:
		h.Int = e.Value.Int()
	case meta.KindString:
		h.Str = e.Value.Text()
	case meta.KindFloats:
		h.Floats = e.Value.FloatSeq()
	case meta.KindInts:
		h.Ints = e.Value.IntSeq()
	}
	return h
}

// entryToMeta converts a header block entry back. An unknown kind tag
// means the header block is broken.
func entryToMeta(h headerEntry) (meta.Entry, error) {
	var v meta.Value
	switch meta.Kind(h.Kind) {
	case meta.KindFloat:
		v = meta.Float(h.Float)
	case meta.KindInt:
		v = meta.Int(h.Int)
	case meta.KindString:
		v = meta.String(h.Str)
	case meta.KindFloats:
		v = meta.Floats(h.Floats)
	case meta.KindInts:
		v = meta.Ints(h.Ints)
	case meta.KindTree:
		v = meta.SubTree(meta.NewTree())
	default:
		return meta.Entry{}, errors.Wrapf(errors.ErrCorrupted,
			"metadata entry %q has unknown kind tag %d", h.Path, h.Kind)
	}
	return meta.Entry{Path: h.Path, Value: v}, nil
}

// encodeChannel serializes one channel of samples, little-endian.
func encodeChannel(m *trace.Matrix, ch int) []byte {
	n := m.Samples()
	buf := make([]byte, 0, n*m.DType().SampleSize())
	switch m.DType() {
	case trace.Int16:
		row := m.Int16s()[ch*n : (ch+1)*n]
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
		}
	case trace.Int32:
		row := m.Int32s()[ch*n : (ch+1)*n]
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
		}
	default:
		row := m.Float32s()[ch*n : (ch+1)*n]
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf
}

// decodeSamples copies samples [t0, t1) of a raw channel payload into
// row `row` of dst, which must have t1-t0 samples per channel.
func decodeSamples(dst *trace.Matrix, row int, raw []byte, t0, t1 int) error {
	size := dst.DType().SampleSize()
	if len(raw) < t1*size {
		return errors.Wrapf(errors.ErrCorrupted,
			"channel payload holds %d bytes, need %d", len(raw), t1*size)
	}

	n := dst.Samples()
	switch dst.DType() {
	case trace.Int16:
		out := dst.Int16s()[row*n : (row+1)*n]
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(raw[(t0+i)*size:]))
		}
	case trace.Int32:
		out := dst.Int32s()[row*n : (row+1)*n]
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(raw[(t0+i)*size:]))
		}
	default:
		out := dst.Float32s()[row*n : (row+1)*n]
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[(t0+i)*size:]))
		}
	}
	return nil
}
