package quantizedmesh

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/Faultbox/terratiler/pkg/tiling"
)

// LayerFile is the name of the layer description in a tile set root.
const LayerFile = "layer.json"

// Format is the tile format advertised in layer.json.
const Format = "quantized-mesh-1.0"

// ExtensionOctVertexNormals is the layer.json name of the normals extension.
const ExtensionOctVertexNormals = "octvertexnormals"

// AvailableRange is an inclusive rectangle of available tiles.
type AvailableRange struct {
	StartX int `json:"startX"`
	StartY int `json:"startY"`
	EndX   int `json:"endX"`
	EndY   int `json:"endY"`
}

// Layer is the TileJSON 2.1.0 description of a terrain tile set.
type Layer struct {
	TileJSON    string             `json:"tilejson"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Version     string             `json:"version"`
	Format      string             `json:"format"`
	Attribution string             `json:"attribution"`
	Scheme      string             `json:"scheme"`
	Extensions  []string           `json:"extensions"`
	Tiles       []string           `json:"tiles"`
	Projection  string             `json:"projection"`
	Bounds      [4]float64         `json:"bounds"`
	MinZoom     int                `json:"minzoom"`
	MaxZoom     int                `json:"maxzoom"`
	Available   [][]AvailableRange `json:"available"`
}

// NewLayer returns a layer for depths minZoom..maxZoom of scheme covering
// bounds, with no tile available yet.
func NewLayer(name string, s tiling.Scheme, bounds tiling.Extent, minZoom, maxZoom int, normals bool) *Layer {
	l := &Layer{
		TileJSON:   "2.1.0",
		Name:       name,
		Version:    "1.0.0",
		Format:     Format,
		Scheme:     s.Origin.Scheme(),
		Extensions: []string{},
		Tiles:      []string{"{z}/{x}/{y}.terrain?v={version}"},
		Projection: s.Profile.Projection(),
		Bounds:     [4]float64{bounds.MinLon, bounds.MinLat, bounds.MaxLon, bounds.MaxLat},
		MinZoom:    minZoom,
		MaxZoom:    maxZoom,
		Available:  make([][]AvailableRange, maxZoom+1),
	}
	if normals {
		l.Extensions = append(l.Extensions, ExtensionOctVertexNormals)
	}
	for d := range l.Available {
		l.Available[d] = []AvailableRange{}
	}
	return l
}

// SetAvailable records the tiles written at depth.
func (l *Layer) SetAvailable(depth int, tiles []tiling.Index) {
	for len(l.Available) <= depth {
		l.Available = append(l.Available, []AvailableRange{})
	}
	l.Available[depth] = Ranges(tiles)
}

// Ranges packs tiles of one depth into rectangles: runs of consecutive
// columns in a row, merged with the run of the row before when both span the
// same columns.
func Ranges(tiles []tiling.Index) []AvailableRange {
	sorted := slices.Clone(tiles)
	slices.SortFunc(sorted, func(a, b tiling.Index) int {
		return cmp.Or(cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})
	sorted = slices.Compact(sorted)

	ranges := []AvailableRange{}
	open := make(map[[2]int]int) // column span -> range ending on the previous row

	for i := 0; i < len(sorted); {
		y := sorted[i].Y
		row := make(map[[2]int]int)
		for i < len(sorted) && sorted[i].Y == y {
			start := sorted[i].X
			end := start
			i++
			for i < len(sorted) && sorted[i].Y == y && sorted[i].X == end+1 {
				end++
				i++
			}

			span := [2]int{start, end}
			if r, ok := open[span]; ok && ranges[r].EndY == y-1 {
				ranges[r].EndY = y
				row[span] = r
				continue
			}
			ranges = append(ranges, AvailableRange{StartX: start, StartY: y, EndX: end, EndY: y})
			row[span] = len(ranges) - 1
		}
		open = row
	}
	return ranges
}

// WriteLayer writes l as layer.json into dir.
func WriteLayer(dir string, l *Layer) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding layer: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating layer directory: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, LayerFile), data, 0o644)
}

// ReadLayer reads layer.json from dir.
func ReadLayer(dir string) (*Layer, error) {
	data, err := os.ReadFile(filepath.Join(dir, LayerFile))
	if err != nil {
		return nil, fmt.Errorf("reading layer: %w", err)
	}
	var l Layer
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding layer: %w", err)
	}
	return &l, nil
}
