package tiling

import (
	"path/filepath"
	"strconv"
)

// TileExtension is the file extension of quantized-mesh tiles.
const TileExtension = ".terrain"

// Path returns the relative output path of a tile: {L}/{X}/{Y}.terrain.
func Path(idx Index) string {
	return filepath.Join(strconv.Itoa(idx.L), strconv.Itoa(idx.X), strconv.Itoa(idx.Y)+TileExtension)
}

// TempPath is where a tile is written before being renamed to Path.
func TempPath(idx Index) string {
	return Path(idx) + ".tmp"
}
