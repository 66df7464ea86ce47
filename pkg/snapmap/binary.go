package snapmap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"unsafe"
)

const (
	magicBytes = "RTESNAP1"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000

	// coordScale converts a float64 degree value to the fixed-point integer
	// encoding used on the wire: round(value * coordScale).
	coordScale = 1_000_000.0
)

// ErrBadBlob is returned when a map blob fails to decode.
var ErrBadBlob = errors.New("snapmap: bad blob")

// ErrLengthMismatch is returned when an override cost array's length does
// not match the edge count.
var ErrLengthMismatch = errors.New("snapmap: override cost length mismatch")

// fileHeader is the binary header, fixed size, written first.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
}

// Load decodes a map blob produced by an offline graph builder (out of
// scope for this package; it only consumes the bytes) and computes
// LengthMeters and per-direction costs for every edge.
func Load(blob []byte) (*Map, error) {
	base := bytes.NewReader(blob)
	r := &crc32Reader{r: base, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrBadBlob, err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadBlob, hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadBlob, hdr.Version)
	}
	if hdr.NumNodes > maxNodes || hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("%w: node/edge count exceeds limit", ErrBadBlob)
	}

	nodes, err := readCoords(r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("%w: read nodes: %v", ErrBadBlob, err)
	}

	edges := make([]Edge, hdr.NumEdges)
	for i := range edges {
		var node1, node2 uint32
		if err := binary.Read(r, binary.LittleEndian, &node1); err != nil {
			return nil, fmt.Errorf("%w: read edge %d node1: %v", ErrBadBlob, i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &node2); err != nil {
			return nil, fmt.Errorf("%w: read edge %d node2: %v", ErrBadBlob, i, err)
		}

		var geomLen uint32
		if err := binary.Read(r, binary.LittleEndian, &geomLen); err != nil {
			return nil, fmt.Errorf("%w: read edge %d geometry length: %v", ErrBadBlob, i, err)
		}
		geom, err := readCoords(r, int(geomLen))
		if err != nil {
			return nil, fmt.Errorf("%w: read edge %d geometry: %v", ErrBadBlob, i, err)
		}

		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read edge %d name: %v", ErrBadBlob, i, err)
		}

		edges[i] = Edge{Node1: NodeID(node1), Node2: NodeID(node2), Geometry: geom, Name: name}
	}

	overrideForward, err := readOptionalFloatsLenPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read override_forward_costs: %v", ErrBadBlob, err)
	}
	if overrideForward != nil && len(overrideForward) != len(edges) {
		return nil, fmt.Errorf("%w: override_forward_costs has %d entries, want %d", ErrLengthMismatch, len(overrideForward), len(edges))
	}

	overrideBackward, err := readOptionalFloatsLenPrefixed(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read override_backward_costs: %v", ErrBadBlob, err)
	}
	if overrideBackward != nil && len(overrideBackward) != len(edges) {
		return nil, fmt.Errorf("%w: override_backward_costs has %d entries, want %d", ErrLengthMismatch, len(overrideBackward), len(edges))
	}

	// Read the trailer directly from base: it sits past everything that fed
	// the running hash, at whatever position the wrapped reads left it.
	var storedCRC uint32
	if err := binary.Read(base, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("%w: read CRC32: %v", ErrBadBlob, err)
	}
	if computed := r.hash.Sum32(); storedCRC != computed {
		return nil, fmt.Errorf("%w: CRC32 mismatch: stored=%08x computed=%08x", ErrBadBlob, storedCRC, computed)
	}

	if err := finalize(edges, overrideForward, overrideBackward); err != nil {
		return nil, err
	}

	return &Map{Nodes: nodes, Edges: edges}, nil
}

// Save serializes m to path, recomputing nothing: LengthMeters and the
// per-direction costs are load-time derived values, not persisted. The
// override arrays are written exactly as the caller passes them; a nil array
// is written with a count of zero.
func Save(path string, m *Map, overrideForward, overrideBackward []*float64) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	w := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(len(m.Nodes)),
		NumEdges: uint32(len(m.Edges)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := writeCoords(w, m.Nodes); err != nil {
		return fmt.Errorf("write nodes: %w", err)
	}

	for i, e := range m.Edges {
		if err := binary.Write(w, binary.LittleEndian, uint32(e.Node1)); err != nil {
			return fmt.Errorf("write edge %d node1: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(e.Node2)); err != nil {
			return fmt.Errorf("write edge %d node2: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Geometry))); err != nil {
			return fmt.Errorf("write edge %d geometry length: %w", i, err)
		}
		if err := writeCoords(w, e.Geometry); err != nil {
			return fmt.Errorf("write edge %d geometry: %w", i, err)
		}
		if err := writeString(w, e.Name); err != nil {
			return fmt.Errorf("write edge %d name: %w", i, err)
		}
	}

	if err := writeOptionalFloatsLenPrefixed(w, overrideForward); err != nil {
		return fmt.Errorf("write override_forward_costs: %w", err)
	}
	if err := writeOptionalFloatsLenPrefixed(w, overrideBackward); err != nil {
		return fmt.Errorf("write override_backward_costs: %w", err)
	}

	if err := binary.Write(f, binary.LittleEndian, w.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// --- coordinate and string framing ---

func writeCoords(w io.Writer, pts []Coord) error {
	ints := make([]int32, len(pts)*2)
	for i, p := range pts {
		ints[2*i] = int32(math.Round(p.Lon * coordScale))
		ints[2*i+1] = int32(math.Round(p.Lat * coordScale))
	}
	return writeInt32Slice(w, ints)
}

func readCoords(r io.Reader, n int) ([]Coord, error) {
	if n == 0 {
		return nil, nil
	}
	ints, err := readInt32Slice(r, n*2)
	if err != nil {
		return nil, err
	}
	pts := make([]Coord, n)
	for i := range pts {
		pts[i] = Coord{
			Lon: float64(ints[2*i]) / coordScale,
			Lat: float64(ints[2*i+1]) / coordScale,
		}
	}
	return pts, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeOptionalFloatsLenPrefixed writes a uint32 element count followed by
// that many float64s. A nil vals (no override array at all) writes a count
// of zero. Within the array, a nil entry is encoded as NaN -- a
// coordinate-less sentinel matching spec.md's "a None cost in a direction
// means not routable".
func writeOptionalFloatsLenPrefixed(w io.Writer, vals []*float64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vals))); err != nil {
		return err
	}
	flat := make([]float64, len(vals))
	for i, v := range vals {
		if v == nil {
			flat[i] = math.NaN()
		} else {
			flat[i] = *v
		}
	}
	return writeFloat64Slice(w, flat)
}

// readOptionalFloatsLenPrefixed reads a uint32 count then that many float64s.
// Returns nil if the count is zero (no override array was present).
func readOptionalFloatsLenPrefixed(r io.Reader) ([]*float64, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	flat, err := readFloat64Slice(r, int(n))
	if err != nil {
		return nil, err
	}
	out := make([]*float64, n)
	for i, v := range flat {
		if math.IsNaN(v) {
			continue
		}
		val := v
		out[i] = &val
	}
	return out, nil
}

// --- zero-copy slice I/O, adapted from the teacher's unsafe.Slice helpers ---

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// --- CRC32 wrapping, adapted from the teacher's crc32Writer/crc32Reader ---

type crc32Writer struct {
	w    io.Writer
	hash hash32
}

type hash32 interface {
	io.Writer
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash hash32
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
