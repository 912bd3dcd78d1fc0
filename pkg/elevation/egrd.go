package elevation

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/terratiler/pkg/tiling"
)

// EGRD format errors.
var (
	ErrInvalidMagic       = errors.New("invalid EGRD magic: expected 'EGRD'")
	ErrUnsupportedVersion = errors.New("unsupported EGRD version")
	ErrTruncated          = errors.New("truncated EGRD data")
)

// Magic opens every EGRD file.
const Magic = "EGRD"

// Version is the EGRD version written by Encode.
var Version = FormatVersion{Major: 1, Minor: 0}

// maxDimension bounds cols and rows read from a file.
const maxDimension = 1 << 16

// headerSize is magic, version, dims, bounds and nodata.
const headerSize = 4 + 2 + 4 + 4 + 4*8 + 4

// FormatVersion represents the EGRD file version.
type FormatVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

type egrdHeader struct {
	Cols, Rows                     uint32
	MinLon, MinLat, MaxLon, MaxLat float64
	NoData                         float32
}

// Parse decodes an EGRD grid from raw bytes.
func Parse(data []byte) (*Grid, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}

	if string(data[0:4]) != Magic {
		return nil, ErrInvalidMagic
	}

	// Version is stored as [minor, major]
	version := FormatVersion{
		Major: data[5],
		Minor: data[4],
	}
	if version.Major != Version.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}

	r := bytes.NewReader(data[6:])

	var h egrdHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncated)
	}

	if h.Cols < 2 || h.Rows < 2 || h.Cols > maxDimension || h.Rows > maxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, h.Cols, h.Rows)
	}

	g, err := NewGrid(int(h.Cols), int(h.Rows), tiling.Extent{
		MinLon: h.MinLon,
		MinLat: h.MinLat,
		MaxLon: h.MaxLon,
		MaxLat: h.MaxLat,
	})
	if err != nil {
		return nil, err
	}
	g.NoData = h.NoData

	if r.Len() < len(g.Samples)*4 {
		return nil, fmt.Errorf("%w: %d samples expected, %d bytes left", ErrTruncated, len(g.Samples), r.Len())
	}
	if err := binary.Read(r, binary.LittleEndian, g.Samples); err != nil {
		return nil, fmt.Errorf("%w: reading samples", ErrTruncated)
	}

	return g, nil
}

// ParseFile decodes an EGRD grid from disk.
func ParseFile(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grid file: %w", err)
	}
	return Parse(data)
}

// Encode writes g in EGRD format.
func Encode(w io.Writer, g *Grid) error {
	if g.Cols < 2 || g.Rows < 2 || len(g.Samples) != g.Cols*g.Rows {
		return fmt.Errorf("%w: %dx%d with %d samples", ErrInvalidDimensions, g.Cols, g.Rows, len(g.Samples))
	}

	buf := new(bytes.Buffer)
	buf.Grow(headerSize + len(g.Samples)*4)
	buf.WriteString(Magic)
	buf.WriteByte(Version.Minor)
	buf.WriteByte(Version.Major)

	h := egrdHeader{
		Cols:   uint32(g.Cols),
		Rows:   uint32(g.Rows),
		MinLon: g.Bounds.MinLon,
		MinLat: g.Bounds.MinLat,
		MaxLon: g.Bounds.MaxLon,
		MaxLat: g.Bounds.MaxLat,
		NoData: g.NoData,
	}
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, g.Samples); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFile writes g to path in EGRD format.
func WriteFile(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating grid file: %w", err)
	}
	if err := Encode(f, g); err != nil {
		f.Close()
		return fmt.Errorf("writing grid file: %w", err)
	}
	return f.Close()
}
