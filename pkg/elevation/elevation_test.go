package elevation

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/Faultbox/terratiler/pkg/tiling"
)

var testBounds = tiling.Extent{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 1}

// createTestEGRD creates a minimal valid EGRD file for testing.
func createTestEGRD(cols, rows uint32, samples []float32) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("EGRD")

	// Version 1.0 (stored as minor, major)
	buf.WriteByte(0)
	buf.WriteByte(1)

	binary.Write(buf, binary.LittleEndian, cols)
	binary.Write(buf, binary.LittleEndian, rows)
	for _, v := range []float64{testBounds.MinLon, testBounds.MinLat, testBounds.MaxLon, testBounds.MaxLat} {
		binary.Write(buf, binary.LittleEndian, v)
	}
	binary.Write(buf, binary.LittleEndian, float32(-9999))
	binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

func TestParse_ValidFile(t *testing.T) {
	data := createTestEGRD(3, 2, []float32{1, 2, 3, 4, 5, 6})

	g, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if g.Cols != 3 || g.Rows != 2 {
		t.Errorf("expected 3x2, got %dx%d", g.Cols, g.Rows)
	}
	if g.Bounds != testBounds {
		t.Errorf("expected bounds %s, got %s", testBounds, g.Bounds)
	}
	if g.NoData != -9999 {
		t.Errorf("expected nodata -9999, got %v", g.NoData)
	}
	if v, ok := g.At(2, 1); !ok || v != 6 {
		t.Errorf("expected sample 6 at (2,1), got %v (%v)", v, ok)
	}
}

func TestParse_Errors(t *testing.T) {
	valid := createTestEGRD(2, 2, []float32{1, 2, 3, 4})

	badMagic := append([]byte(nil), valid...)
	copy(badMagic, "GRAT")

	badVersion := append([]byte(nil), valid...)
	badVersion[5] = 9

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"magic", badMagic, ErrInvalidMagic},
		{"version", badVersion, ErrUnsupportedVersion},
		{"samples", valid[:len(valid)-2], ErrTruncated},
		{"dimensions", createTestEGRD(1, 5, []float32{1, 2, 3, 4, 5}), ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	g, err := Synthetic(5, 4, testBounds, func(lon, lat float64) float64 {
		return lon*100 + lat
	})
	if err != nil {
		t.Fatalf("Synthetic failed: %v", err)
	}
	g.Samples[3] = g.NoData

	path := filepath.Join(t.TempDir(), "grid.egrd")
	if err := WriteFile(path, g); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if got.Cols != g.Cols || got.Rows != g.Rows || got.Bounds != g.Bounds {
		t.Fatalf("header mismatch: %+v", got)
	}
	for i := range g.Samples {
		if got.Samples[i] != g.Samples[i] {
			t.Errorf("sample %d: expected %v, got %v", i, g.Samples[i], got.Samples[i])
		}
	}
}

func TestSample(t *testing.T) {
	// Plane h = 100*lon + 10*lat is reproduced exactly by bilinear sampling.
	g, err := Synthetic(9, 5, testBounds, func(lon, lat float64) float64 {
		return 100*lon + 10*lat
	})
	if err != nil {
		t.Fatalf("Synthetic failed: %v", err)
	}

	tests := []struct {
		lon, lat float64
		want     float64
	}{
		{0, 0, 0},
		{2, 1, 210},
		{1.1, 0.3, 113},
		{0.37, 0.91, 46.1},
		{3, 0.5, 0},
		{1, -0.1, 0},
	}

	for _, tt := range tests {
		got := g.Sample(tt.lon, tt.lat)
		if math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("Sample(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
		}
	}
}

func TestSampleNoData(t *testing.T) {
	g, err := NewGrid(2, 2, testBounds)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	copy(g.Samples, []float32{10, 10, 10, g.NoData})

	if got := g.Sample(0, 1); got != 10 {
		t.Errorf("expected 10 at the valid corner, got %v", got)
	}
	if got := g.Sample(2, 0); got != 0 {
		t.Errorf("expected 0 at the nodata corner, got %v", got)
	}

	lo, hi, ok := g.MinMax()
	if !ok || lo != 10 || hi != 10 {
		t.Errorf("MinMax = %v, %v, %v", lo, hi, ok)
	}
}
