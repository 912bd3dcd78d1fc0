package pyramid

import (
	"sync"
	"time"

	"github.com/Faultbox/terratiler/pkg/terrain"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

// TileFailure records a tile that could not be built. Its subtree is
// dropped.
type TileFailure struct {
	Tile tiling.Index
	Err  error
}

// DepthReport summarizes one depth.
type DepthReport struct {
	Depth      int
	Tiles      int // meshes processed
	Written    int
	Failed     int
	Splits     int
	Imbalanced int
	Triangles  int
	Bytes      int64
	Duration   time.Duration
}

// Report summarizes a build.
type Report struct {
	Depths   []DepthReport
	Failures []TileFailure
	Written  int
	Bytes    int64
	Duration time.Duration
}

// Failed returns the number of failed tiles.
func (r *Report) Failed() int { return len(r.Failures) }

// depthState collects the results of the tiles of one depth. Workers touch
// it only through its methods.
type depthState struct {
	mu       sync.Mutex
	report   DepthReport
	failures []TileFailure
	written  []tiling.Index
	next     map[tiling.Index]*terrain.Mesh
}

func (s *depthState) wrote(idx tiling.Index, bytes int, triangles int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Written++
	s.report.Bytes += int64(bytes)
	s.report.Triangles += triangles
	s.written = append(s.written, idx)
}

func (s *depthState) failed(idx tiling.Index, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Failed++
	s.failures = append(s.failures, TileFailure{Tile: idx, Err: err})
}

func (s *depthState) split(imbalanced bool, children []*terrain.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Splits++
	if imbalanced {
		s.report.Imbalanced++
	}
	for _, c := range children {
		s.next[c.Tile] = c
	}
}
