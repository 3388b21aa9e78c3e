// Package sim runs one algorithm instance per node over an in-process
// transport and collects every node's final state.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ryandielhenn/ringsim/internal/telemetry"
	"github.com/ryandielhenn/ringsim/pkg/gossip"
	"github.com/ryandielhenn/ringsim/pkg/routing"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

type process interface {
	Run(ctx context.Context) error
}

// instance pairs a running algorithm with a way to read its final state.
type instance struct {
	proc  process
	state func() NodeState
}

// Run executes sc and returns its result. When a node fails, the other
// nodes are cancelled and the partial result is returned with the error.
func Run(ctx context.Context, sc Scenario, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sc, err := sc.Normalize()
	if err != nil {
		return nil, err
	}
	mode, _ := transport.ParseMode(sc.Mode)

	if sc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sc.Timeout)
		defer cancel()
	}

	res := &Result{
		ID:       uuid.New().String(),
		Scenario: sc,
		Started:  time.Now(),
	}
	log = log.With(zap.String("run", res.ID), zap.String("algorithm", sc.Algorithm))

	net := transport.NewNetwork(sc.Nodes, mode, transport.WithLogger(log))
	instances, err := build(net, sc, log)
	if err != nil {
		return nil, err
	}

	log.Info("starting run", zap.Int("nodes", sc.Nodes), zap.Stringer("mode", mode))
	g, gctx := errgroup.WithContext(ctx)
	for i, inst := range instances {
		port := net.Port(transport.NodeID(i))
		g.Go(func() error {
			defer port.Close()
			if err := inst.proc.Run(gctx); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	res.Duration = time.Since(res.Started)
	res.Messages = net.Sent()
	res.ByKind = net.SentByKind()
	res.Rounds = net.Rounds()
	res.Nodes = make([]NodeState, len(instances))
	for i, inst := range instances {
		res.Nodes[i] = inst.state()
	}
	telemetry.ObserveRun(sc.Algorithm, res.Duration, runErr)

	if runErr != nil {
		res.Error = runErr.Error()
		log.Error("run failed", zap.Error(runErr))
		return res, runErr
	}
	log.Info("run finished",
		zap.Int("messages", res.Messages), zap.Int("rounds", res.Rounds), zap.Duration("took", res.Duration))
	return res, nil
}

func build(net *transport.Network, sc Scenario, log *zap.Logger) ([]instance, error) {
	out := make([]instance, sc.Nodes)
	for i := range out {
		port := net.Port(transport.NodeID(i))

		if sc.Algorithm == AlgorithmRouting {
			payloads := sc.Payloads
			if payloads == nil {
				payloads = DefaultPayloads()
			}
			node, err := routing.NewNode(port, routing.WithLogger(log), routing.WithPayloads(payloads...))
			if err != nil {
				return nil, err
			}
			out[i] = instance{proc: node, state: func() NodeState {
				return NodeState{
					ID:        node.ID(),
					Table:     node.Table().Entries(),
					Phase:     node.Phase().String(),
					Delivered: node.Delivered(),
					Dropped:   node.Dropped(),
				}
			}}
			continue
		}

		s, err := gossip.New(gossip.Kind(sc.Algorithm), port,
			gossip.WithRole(sc.rolePolicy()),
			gossip.WithLogger(log),
			gossip.WithPoller(transport.Poller{MaxWait: sc.MaxWait}),
		)
		if err != nil {
			return nil, err
		}
		id := port.ID()
		out[i] = instance{proc: s, state: func() NodeState {
			return NodeState{ID: id, Secrets: s.Secrets()}
		}}
	}
	return out, nil
}
