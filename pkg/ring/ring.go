// Package ring describes the fixed ring topology the ring-based algorithms
// run on: node i is linked to (i-1) mod N on the left and (i+1) mod N on the
// right.
package ring

import (
	"fmt"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

type Ring struct {
	size int
}

func New(size int) (Ring, error) {
	if size < 1 {
		return Ring{}, fmt.Errorf("ring size must be at least 1, got %d", size)
	}
	return Ring{size: size}, nil
}

func (r Ring) Size() int { return r.size }

// Left returns the counter-clockwise neighbor of id.
func (r Ring) Left(id transport.NodeID) transport.NodeID {
	return transport.NodeID((int(id) - 1 + r.size) % r.size)
}

// Right returns the clockwise neighbor of id.
func (r Ring) Right(id transport.NodeID) transport.NodeID {
	return transport.NodeID((int(id) + 1) % r.size)
}

// Neighbors returns the left and right links of id, left first. On a ring of
// two both entries are the same node; on a ring of one both are id itself.
func (r Ring) Neighbors(id transport.NodeID) []transport.NodeID {
	return []transport.NodeID{r.Left(id), r.Right(id)}
}

// Distance is the hop count of the shorter way around the ring.
func (r Ring) Distance(a, b transport.NodeID) int {
	d := (int(b) - int(a) + r.size) % r.size
	if other := r.size - d; other < d {
		return other
	}
	return d
}

// Diameter is the largest shortest-path distance between two nodes, ⌊N/2⌋.
func (r Ring) Diameter() int { return r.size / 2 }

// Contains reports whether id names a node of this ring.
func (r Ring) Contains(id transport.NodeID) bool {
	return int(id) >= 0 && int(id) < r.size
}
