package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Faultbox/terratiler/internal/config"
	"github.com/Faultbox/terratiler/pkg/elevation"
	"github.com/Faultbox/terratiler/pkg/quantizedmesh"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

func schemeFlags(fs *flag.FlagSet) (profile, origin *string) {
	profile = fs.String("profile", tiling.Geodetic.String(), "Tiling profile (geodetic, web_mercator)")
	origin = fs.String("origin", tiling.BottomLeft.String(), "Row origin (top_left, bottom_left)")
	return profile, origin
}

func parseScheme(profile, origin string) (tiling.Scheme, error) {
	p, err := tiling.ParseProfile(profile)
	if err != nil {
		return tiling.Scheme{}, err
	}
	o, err := tiling.ParseOrigin(origin)
	if err != nil {
		return tiling.Scheme{}, err
	}
	return tiling.Scheme{Profile: p, Origin: o}, nil
}

func cmdTiles(args []string) {
	fs := flag.NewFlagSet("tiles", flag.ExitOnError)
	profile, origin := schemeFlags(fs)
	asGeoJSON := fs.Bool("geojson", false, "Print a GeoJSON FeatureCollection of tile footprints")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: terratool tiles [options] <depth> <minLon,minLat,maxLon,maxLat>")
		os.Exit(1)
	}

	s, err := parseScheme(*profile, *origin)
	if err != nil {
		fatalf("%v", err)
	}
	depth, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fatalf("invalid depth %q", fs.Arg(0))
	}
	bbox, err := parseBounds(fs.Arg(1))
	if err != nil {
		fatalf("%v", err)
	}

	r, err := s.Covering(depth, bbox)
	if err != nil {
		fatalf("%v", err)
	}

	if *asGeoJSON {
		fc, err := tileFeatures(s, r)
		if err != nil {
			fatalf("%v", err)
		}
		data, err := json.Marshal(fc)
		if err != nil {
			fatalf("encoding GeoJSON: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	err = r.Each(func(idx tiling.Index) error {
		ext, err := s.Extent(idx)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s\n", tiling.Path(idx), ext)
		return nil
	})
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Fprintf(os.Stderr, "\n(%s, %d tiles)\n", r, r.Count())
}

// parseBounds reads "minLon,minLat,maxLon,maxLat".
func parseBounds(s string) (tiling.Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return tiling.Extent{}, fmt.Errorf("bounds %q: want minLon,minLat,maxLon,maxLat", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return tiling.Extent{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		v[i] = f
	}
	e := tiling.Extent{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if e.MinLon > e.MaxLon || e.MinLat > e.MaxLat {
		return tiling.Extent{}, fmt.Errorf("bounds %q: min above max", s)
	}
	return e, nil
}

// tileFeatures returns one polygon feature per tile of r.
func tileFeatures(s tiling.Scheme, r tiling.Range) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{}
	err := r.Each(func(idx tiling.Index) error {
		ext, err := s.Extent(idx)
		if err != nil {
			return err
		}
		ring := []geom.Coord{
			{ext.MinLon, ext.MinLat},
			{ext.MaxLon, ext.MinLat},
			{ext.MaxLon, ext.MaxLat},
			{ext.MinLon, ext.MaxLat},
			{ext.MinLon, ext.MinLat},
		}
		poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
		if err != nil {
			return err
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       filepath.ToSlash(strings.TrimSuffix(tiling.Path(idx), tiling.TileExtension)),
			Geometry: poly,
			Properties: map[string]interface{}{
				"depth": idx.L,
				"x":     idx.X,
				"y":     idx.Y,
			},
		})
		return nil
	})
	return fc, err
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	profile, origin := schemeFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: terratool inspect [options] <file.terrain>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	stat, err := os.Stat(path)
	if err != nil {
		fatalf("%v", err)
	}
	tile, err := quantizedmesh.ReadFile(path)
	if err != nil {
		fatalf("%v", err)
	}

	h := tile.Header
	fmt.Printf("File:      %s (%s)\n", path, humanize.Bytes(uint64(stat.Size())))
	fmt.Printf("Vertices:  %s\n", humanize.Comma(int64(tile.VertexCount())))
	fmt.Printf("Triangles: %s\n", humanize.Comma(int64(tile.TriangleCount())))
	fmt.Printf("Indices:   %d bit\n", map[bool]int{false: 16, true: 32}[tile.Wide()])
	fmt.Printf("Edges:     W %d  S %d  E %d  N %d\n", len(tile.West), len(tile.South), len(tile.East), len(tile.North))
	fmt.Printf("Normals:   %v\n", len(tile.Normals) > 0)
	fmt.Printf("Height:    %.2f .. %.2f m\n", h.MinHeight, h.MaxHeight)
	fmt.Printf("Center:    %.3f %.3f %.3f\n", h.Center[0], h.Center[1], h.Center[2])
	fmt.Printf("Sphere:    %.3f %.3f %.3f r=%.3f\n", h.BoundingSphereCenter[0], h.BoundingSphereCenter[1], h.BoundingSphereCenter[2], h.BoundingSphereRadius)
	fmt.Printf("Horizon:   %.9f %.9f %.9f\n", h.HorizonOcclusionPoint[0], h.HorizonOcclusionPoint[1], h.HorizonOcclusionPoint[2])

	idx, ok := parseTilePath(path)
	if !ok {
		return
	}
	s, err := parseScheme(*profile, *origin)
	if err != nil {
		fatalf("%v", err)
	}
	ext, err := s.Extent(idx)
	if err != nil {
		fatalf("%v", err)
	}
	m, err := tile.ToMesh(idx, ext)
	if err != nil {
		fatalf("%v", err)
	}
	unknown := m.DetermineBoundaryTypes(ext)

	fmt.Printf("Tile:      %s %s\n", idx, ext)
	fmt.Printf("Unknown:   %d boundary half-edges\n", unknown)
}

// parseTilePath reads the index from a path ending in L/X/Y.terrain.
func parseTilePath(path string) (tiling.Index, bool) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	if len(parts) < 3 {
		return tiling.Index{}, false
	}
	parts = parts[len(parts)-3:]
	base, ok := strings.CutSuffix(parts[2], tiling.TileExtension)
	if !ok {
		return tiling.Index{}, false
	}

	var v [3]int
	for i, p := range []string{parts[0], parts[1], base} {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return tiling.Index{}, false
		}
		v[i] = n
	}
	return tiling.Index{L: v[0], X: v[1], Y: v[2]}, true
}

func cmdGrid(args []string) {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	cols := fs.Int("cols", 129, "Sample columns")
	rows := fs.Int("rows", 129, "Sample rows")
	bounds := fs.String("bounds", "10,45,12,47", "Grid bounds minLon,minLat,maxLon,maxLat")
	base := fs.Float64("base", 800, "Base height in meters")
	amplitude := fs.Float64("amplitude", 600, "Hill amplitude in meters")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: terratool grid [options] <out.egrd>")
		os.Exit(1)
	}

	ext, err := parseBounds(*bounds)
	if err != nil {
		fatalf("%v", err)
	}
	g, err := elevation.Synthetic(*cols, *rows, ext, func(lon, lat float64) float64 {
		return *base + *amplitude*math.Sin(lon*math.Pi)*math.Cos(lat*math.Pi)
	})
	if err != nil {
		fatalf("%v", err)
	}
	if err := elevation.WriteFile(fs.Arg(0), g); err != nil {
		fatalf("%v", err)
	}

	lo, hi, _ := g.MinMax()
	fmt.Printf("Wrote: %s (%dx%d, %s, %.0f..%.0f m)\n", fs.Arg(0), g.Cols, g.Rows, ext, lo, hi)
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	out := fs.String("o", "", "Write to this path instead of stdout")
	save := fs.Bool("save", false, "Write to the user config directory")
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("%v", err)
	}
	if fs.NArg() > 0 {
		cfg.Job.Input = fs.Arg(0)
	}

	switch {
	case *save:
		path, err := cfg.Save()
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Saved: %s\n", path)
	case *out != "":
		if err := cfg.SaveTo(*out); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Saved: %s\n", *out)
	default:
		data, err := cfg.Marshal()
		if err != nil {
			fatalf("%v", err)
		}
		os.Stdout.Write(data)
	}
}
