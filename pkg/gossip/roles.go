package gossip

import (
	"errors"
	"fmt"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

var ErrRoleOutOfRange = errors.New("gossip: designated node out of range")

// RolePolicy picks the designated master/initiator for a network of the
// given size. It must be a pure function of its argument.
type RolePolicy func(nodes int) transport.NodeID

// Fixed always designates id.
func Fixed(id transport.NodeID) RolePolicy {
	return func(int) transport.NodeID { return id }
}

// Lowest designates node 0.
func Lowest() RolePolicy {
	return func(int) transport.NodeID { return 0 }
}

// Highest designates node N-1.
func Highest() RolePolicy {
	return func(nodes int) transport.NodeID { return transport.NodeID(nodes - 1) }
}

func designate(p RolePolicy, nodes int) (transport.NodeID, error) {
	id := p(nodes)
	if int(id) < 0 || int(id) >= nodes {
		return 0, fmt.Errorf("%w: node %d of %d", ErrRoleOutOfRange, id, nodes)
	}
	return id, nil
}
