package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ryandielhenn/ringsim/pkg/gossip"
	"github.com/ryandielhenn/ringsim/pkg/routing"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

func intp(v int) *int { return &v }

func TestCollectorWithMasterTwo(t *testing.T) {
	res, err := Run(context.Background(), Scenario{
		Nodes:     4,
		Algorithm: "collector",
		Role:      intp(2),
		Timeout:   10 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 6, res.Messages)
	assert.True(t, res.Gossip())
	require.Len(t, res.Nodes, 4)
	for _, n := range res.Nodes {
		assert.Equal(t, "{0, 1, 2, 3}", n.Secrets.String(), "node %d", n.ID)
	}
	assert.NotEmpty(t, res.ID)
	assert.Empty(t, res.Error)
}

func TestRingPropagationFourNodes(t *testing.T) {
	for _, mode := range []string{"free-running", "lock-step"} {
		t.Run(mode, func(t *testing.T) {
			res, err := Run(context.Background(), Scenario{
				Nodes:     4,
				Algorithm: "neighbours",
				Mode:      mode,
				Timeout:   10 * time.Second,
			}, nil)
			require.NoError(t, err)

			assert.Equal(t, string(gossip.RingPropagation), res.Scenario.Algorithm)
			assert.Equal(t, 6, res.Messages)
			assert.Equal(t, 6, res.ByKind[gossip.KindGossip])
			for _, n := range res.Nodes {
				assert.Equal(t, 4, n.Secrets.Len(), "node %d has %s", n.ID, n.Secrets)
			}
		})
	}
}

func TestNaiveIsAllToAll(t *testing.T) {
	res, err := Run(context.Background(), Scenario{Nodes: 5, Algorithm: "naive", Timeout: 10 * time.Second}, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Messages)
}

func TestRoutingDefaultPayload(t *testing.T) {
	res, err := Run(context.Background(), Scenario{Nodes: 5, Algorithm: "rip", Timeout: 10 * time.Second}, nil)
	require.NoError(t, err)

	assert.Equal(t, AlgorithmRouting, res.Scenario.Algorithm)
	assert.Equal(t, transport.LockStep.String(), res.Scenario.Mode)
	assert.Positive(t, res.Rounds)

	got := res.Deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, routing.Delivery{FirstNode: 0, LastNode: 1, Content: "message"}, got[0])
	assert.Len(t, res.Nodes[1].Delivered, 1)

	for _, n := range res.Nodes {
		assert.Equal(t, "converged", n.Phase)
		assert.Len(t, n.Table, 5)
		for _, e := range n.Table {
			assert.LessOrEqual(t, e.Distance, 2)
		}
	}
}

func TestRoutingCustomPayloads(t *testing.T) {
	res, err := Run(context.Background(), Scenario{
		Nodes:     6,
		Algorithm: "routing",
		Payloads: []routing.Payload{
			{From: 1, To: 4, Content: "a"},
			{From: 4, To: 1, Content: "b"},
		},
		Timeout: 10 * time.Second,
	}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Nodes[4].Delivered, 1)
	assert.Len(t, res.Nodes[1].Delivered, 1)
	assert.Equal(t, 6, res.ByKind[routing.KindRoutable])
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, Scenario{Nodes: 4, Algorithm: "routing"}, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Error)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Scenario
		algo    string
		mode    string
		wantErr bool
	}{
		{name: "gossip defaults to free-running", in: Scenario{Nodes: 3, Algorithm: "Master"}, algo: "collector", mode: "free-running"},
		{name: "routing defaults to lock-step", in: Scenario{Nodes: 3, Algorithm: "RIP"}, algo: "routing", mode: "lock-step"},
		{name: "gossip lock-step", in: Scenario{Nodes: 3, Algorithm: "naive", Mode: "lockstep"}, algo: "naive", mode: "lock-step"},
		{name: "routing free-running", in: Scenario{Nodes: 3, Algorithm: "routing", Mode: "free-running"}, wantErr: true},
		{name: "no nodes", in: Scenario{Algorithm: "naive"}, wantErr: true},
		{name: "unknown algorithm", in: Scenario{Nodes: 2, Algorithm: "flood"}, wantErr: true},
		{name: "bad mode", in: Scenario{Nodes: 2, Algorithm: "naive", Mode: "eventual"}, wantErr: true},
		{name: "role out of range", in: Scenario{Nodes: 2, Algorithm: "collector", Role: intp(2)}, wantErr: true},
		{name: "payload out of range", in: Scenario{Nodes: 2, Algorithm: "routing", Payloads: []routing.Payload{{From: 0, To: 5}}}, wantErr: true},
		{name: "negative timeout", in: Scenario{Nodes: 2, Algorithm: "naive", Timeout: -time.Second}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidScenario)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.algo, got.Algorithm)
			assert.Equal(t, tt.mode, got.Mode)
		})
	}
}
