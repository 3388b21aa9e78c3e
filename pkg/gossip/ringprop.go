package gossip

import (
	"context"

	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/pkg/ring"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

// ringPropagation relays secrets along a fixed ring. The initiator sends
// right; every other node merges what it hears and passes its own set on
// through the opposite link. The initiator's last unvisited neighbor sends
// back the way the message came instead of straight to the initiator.
type ringPropagation struct {
	base
	initiator transport.NodeID
	left      transport.NodeID
	right     transport.NodeID
}

func newRingPropagation(b base, role RolePolicy) (*ringPropagation, error) {
	r, err := ring.New(b.nodes)
	if err != nil {
		return nil, err
	}
	initiator, err := designate(role, b.nodes)
	if err != nil {
		return nil, err
	}
	return &ringPropagation{
		base:      b,
		initiator: initiator,
		left:      r.Left(b.self),
		right:     r.Right(b.self),
	}, nil
}

func (g *ringPropagation) Run(ctx context.Context) error {
	if g.self == g.initiator {
		return g.runInitiator(ctx)
	}
	return g.runRelay(ctx)
}

func (g *ringPropagation) runInitiator(ctx context.Context) error {
	if !g.complete() {
		g.send(g.right)
	}
	return g.drain(ctx)
}

// runRelay stops once this node knows every secret; the message that
// completed it has already been passed on by then.
func (g *ringPropagation) runRelay(ctx context.Context) error {
	for !g.complete() {
		msg, err := g.next(ctx)
		if err != nil {
			return err
		}
		g.absorb(msg)
		g.forward(msg)
	}
	return nil
}

func (g *ringPropagation) forward(msg Message) {
	to := g.right
	if msg.From == g.right {
		to = g.left
	}
	if to == g.initiator && msg.Secrets.Len() == g.nodes-1 {
		g.reply(msg)
		return
	}
	g.log.Debug("forwarding", zap.Int("from", int(msg.From)), zap.Int("to", int(to)))
	g.send(to)
}

// reply sends the now complete set back toward where msg came from.
func (g *ringPropagation) reply(msg Message) {
	to := g.right
	if msg.From == g.left {
		to = g.left
	}
	g.log.Debug("last hop before initiator, reversing",
		zap.Int("from", int(msg.From)), zap.Int("to", int(to)), zap.Stringer("secrets", g.secrets))
	g.send(to)
}
