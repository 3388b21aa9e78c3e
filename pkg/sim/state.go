package sim

import (
	"time"

	"github.com/ryandielhenn/ringsim/pkg/gossip"
	"github.com/ryandielhenn/ringsim/pkg/routing"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

// NodeState is one node's final state, read once after the run.
type NodeState struct {
	ID        transport.NodeID   `json:"id"`
	Secrets   gossip.SecretSet   `json:"secrets,omitempty"`
	Table     []routing.Entry    `json:"table,omitempty"`
	Phase     string             `json:"phase,omitempty"`
	Delivered []routing.Delivery `json:"delivered,omitempty"`
	Dropped   int                `json:"dropped,omitempty"`
}

// Result summarizes a finished run.
type Result struct {
	ID       string         `json:"id"`
	Scenario Scenario       `json:"scenario"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
	Messages int            `json:"messages"`
	ByKind   map[string]int `json:"byKind"`
	Rounds   int            `json:"rounds,omitempty"`
	Nodes    []NodeState    `json:"nodes"`
	Error    string         `json:"error,omitempty"`
}

// Gossip reports whether the run used a gossip strategy.
func (r *Result) Gossip() bool { return r.Scenario.Algorithm != AlgorithmRouting }

// Deliveries flattens every node's delivered messages.
func (r *Result) Deliveries() []routing.Delivery {
	var out []routing.Delivery
	for _, n := range r.Nodes {
		out = append(out, n.Delivered...)
	}
	return out
}
