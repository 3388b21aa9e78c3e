package gossip

import (
	"context"

	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

// collector is the master/slave strategy: everyone reports to the master,
// the master answers everyone once it knows all secrets.
type collector struct {
	base
	master transport.NodeID
}

func (g *collector) Run(ctx context.Context) error {
	if g.self == g.master {
		return g.runMaster(ctx)
	}
	return g.runSlave(ctx)
}

func (g *collector) runMaster(ctx context.Context) error {
	if err := g.drain(ctx); err != nil {
		return err
	}
	g.log.Debug("master collected all secrets, broadcasting", zap.Stringer("secrets", g.secrets))
	for i := range g.nodes {
		if to := transport.NodeID(i); to != g.self {
			g.send(to)
		}
	}
	return nil
}

func (g *collector) runSlave(ctx context.Context) error {
	g.send(g.master)
	return g.drain(ctx)
}
