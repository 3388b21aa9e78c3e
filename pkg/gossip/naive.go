package gossip

import (
	"context"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

// naive sends this node's own secret directly to every other node, then
// waits until it has heard from all of them. No message is ever relayed.
type naive struct {
	base
}

func (g *naive) Run(ctx context.Context) error {
	for i := range g.nodes {
		if to := transport.NodeID(i); to != g.self {
			g.send(to)
		}
	}
	return g.drain(ctx)
}
