package halfedge

import (
	"errors"
	"fmt"
)

// ErrTopology is the sentinel matched by every *TopologyError.
var ErrTopology = errors.New("mesh topology error")

// TopologyError reports a broken half-edge structure: a face loop that does
// not close, or a reference to a deleted element.
type TopologyError struct {
	Face     int
	HalfEdge int
	Reason   string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("%v: face %d, half-edge %d: %s", ErrTopology, e.Face, e.HalfEdge, e.Reason)
}

func (e *TopologyError) Unwrap() error { return ErrTopology }
