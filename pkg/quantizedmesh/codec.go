package quantizedmesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Decoding errors.
var (
	ErrTruncated            = errors.New("truncated quantized-mesh data")
	ErrUnsupportedExtension = errors.New("unsupported quantized-mesh extension")
)

// Extension ids.
const (
	ExtensionOctNormals = 1
	ExtensionWaterMask  = 2
	ExtensionMetadata   = 4
)

// Encode writes t in quantized-mesh-1.0 format. Triangle indices must
// introduce vertices in ascending order, as FromMesh numbers them.
func (t *Tile) Encode(w io.Writer) error {
	if err := t.validate(); err != nil {
		return err
	}

	n := t.VertexCount()
	buf := new(bytes.Buffer)
	buf.Grow(HeaderSize + 4 + n*6 + 4 + len(t.Indices)*4)

	if err := binary.Write(buf, binary.LittleEndian, t.Header); err != nil {
		return err
	}

	binary.Write(buf, binary.LittleEndian, uint32(n))
	for _, values := range [][]uint16{t.U, t.V, t.Height} {
		binary.Write(buf, binary.LittleEndian, zigZagDeltas(values))
	}

	wide := t.Wide()
	if wide && buf.Len()%4 != 0 {
		buf.Write(make([]byte, 4-buf.Len()%4))
	}

	coded, err := highWaterMark(t.Indices)
	if err != nil {
		return err
	}
	binary.Write(buf, binary.LittleEndian, uint32(t.TriangleCount()))
	writeIndices(buf, coded, wide)

	for _, edge := range [][]uint32{t.West, t.South, t.East, t.North} {
		binary.Write(buf, binary.LittleEndian, uint32(len(edge)))
		writeIndices(buf, edge, wide)
	}

	if len(t.Normals) > 0 {
		buf.WriteByte(ExtensionOctNormals)
		binary.Write(buf, binary.LittleEndian, uint32(len(t.Normals)))
		buf.Write(t.Normals)
	}

	_, err = w.Write(buf.Bytes())
	return err
}

func writeIndices(buf *bytes.Buffer, indices []uint32, wide bool) {
	if wide {
		binary.Write(buf, binary.LittleEndian, indices)
		return
	}
	narrow := make([]uint16, len(indices))
	for i, v := range indices {
		narrow[i] = uint16(v)
	}
	binary.Write(buf, binary.LittleEndian, narrow)
}

// zigZagDeltas codes each value as the zig-zag encoded difference to the
// previous one.
func zigZagDeltas(values []uint16) []uint16 {
	out := make([]uint16, len(values))
	prev := int32(0)
	for i, v := range values {
		d := int32(v) - prev
		out[i] = uint16((d << 1) ^ (d >> 31))
		prev = int32(v)
	}
	return out
}

func zigZagDecode(v uint16) int32 {
	return int32(v>>1) ^ -int32(v&1)
}

// highWaterMark codes each index as the distance below the highest index
// seen so far plus one. A new vertex must be exactly that highest value.
func highWaterMark(indices []uint32) ([]uint32, error) {
	out := make([]uint32, len(indices))
	highest := uint32(0)
	for i, idx := range indices {
		if idx > highest {
			return nil, fmt.Errorf("%w: index %d introduced before %d", ErrInvalidTile, idx, highest)
		}
		out[i] = highest - idx
		if idx == highest {
			highest++
		}
	}
	return out, nil
}

// Parse decodes a quantized-mesh tile from raw bytes. Water mask and
// metadata extensions are skipped.
func Parse(data []byte) (*Tile, error) {
	if len(data) < HeaderSize+4 {
		return nil, ErrTruncated
	}

	r := bytes.NewReader(data)
	t := &Tile{}
	if err := binary.Read(r, binary.LittleEndian, &t.Header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncated)
	}

	var n uint32
	binary.Read(r, binary.LittleEndian, &n)
	if uint64(r.Len()) < uint64(n)*6 {
		return nil, fmt.Errorf("%w: %d vertices expected, %d bytes left", ErrTruncated, n, r.Len())
	}

	t.U = make([]uint16, n)
	t.V = make([]uint16, n)
	t.Height = make([]uint16, n)
	for _, values := range [][]uint16{t.U, t.V, t.Height} {
		binary.Read(r, binary.LittleEndian, values)
		acc := int32(0)
		for i, v := range values {
			acc += zigZagDecode(v)
			values[i] = uint16(acc)
		}
	}

	wide := t.Wide()
	if wide {
		if pos := len(data) - r.Len(); pos%4 != 0 {
			if _, err := r.Seek(int64(4-pos%4), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("%w: index padding", ErrTruncated)
			}
		}
	}

	var triangles uint32
	if err := binary.Read(r, binary.LittleEndian, &triangles); err != nil {
		return nil, fmt.Errorf("%w: triangle count", ErrTruncated)
	}
	coded, err := readIndices(r, uint64(triangles)*3, wide)
	if err != nil {
		return nil, fmt.Errorf("triangles: %w", err)
	}
	t.Indices = coded
	highest := uint32(0)
	for i, c := range coded {
		if c > highest {
			return nil, fmt.Errorf("%w: index code %d above %d", ErrInvalidTile, c, highest)
		}
		t.Indices[i] = highest - c
		if c == 0 {
			highest++
		}
	}

	for _, edge := range []*[]uint32{&t.West, &t.South, &t.East, &t.North} {
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, fmt.Errorf("%w: edge count", ErrTruncated)
		}
		if *edge, err = readIndices(r, uint64(count), wide); err != nil {
			return nil, fmt.Errorf("edge: %w", err)
		}
	}

	for r.Len() > 0 {
		var ext struct {
			ID     uint8
			Length uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
			return nil, fmt.Errorf("%w: extension header", ErrTruncated)
		}
		if uint64(r.Len()) < uint64(ext.Length) {
			return nil, fmt.Errorf("%w: extension %d needs %d bytes, %d left", ErrTruncated, ext.ID, ext.Length, r.Len())
		}

		switch ext.ID {
		case ExtensionOctNormals:
			if ext.Length != 2*n {
				return nil, fmt.Errorf("%w: %d normal bytes for %d vertices", ErrInvalidTile, ext.Length, n)
			}
			t.Normals = make([]byte, ext.Length)
			r.Read(t.Normals)
		case ExtensionWaterMask, ExtensionMetadata:
			r.Seek(int64(ext.Length), io.SeekCurrent)
		default:
			return nil, fmt.Errorf("%w: id %d", ErrUnsupportedExtension, ext.ID)
		}
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func readIndices(r *bytes.Reader, count uint64, wide bool) ([]uint32, error) {
	size := uint64(2)
	if wide {
		size = 4
	}
	if uint64(r.Len()) < count*size {
		return nil, fmt.Errorf("%w: %d indices expected, %d bytes left", ErrTruncated, count, r.Len())
	}

	out := make([]uint32, count)
	if wide {
		binary.Read(r, binary.LittleEndian, out)
		return out, nil
	}
	narrow := make([]uint16, count)
	binary.Read(r, binary.LittleEndian, narrow)
	for i, v := range narrow {
		out[i] = uint32(v)
	}
	return out, nil
}
