// Package registry publishes finished runs to etcd so other tools can read
// per-node outcomes without talking to the simulator.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/pkg/sim"
)

const DefaultPrefix = "/ringsim"

func NewClient(endpoints []string) (*clientv3.Client, error) {
	return clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
}

// Summary is the value stored under a run's own key.
type Summary struct {
	ID        string         `json:"id"`
	Algorithm string         `json:"algorithm"`
	Nodes     int            `json:"nodes"`
	Messages  int            `json:"messages"`
	ByKind    map[string]int `json:"byKind"`
	Rounds    int            `json:"rounds,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Error     string         `json:"error,omitempty"`
}

// Publisher writes results under <prefix>/runs/<id>. When a lease and a
// TTL are set every key is attached to a fresh lease, so old runs age out.
type Publisher struct {
	kv     clientv3.KV
	lease  clientv3.Lease
	ttl    int64
	prefix string
	log    *zap.Logger
}

type Option func(*Publisher)

func WithPrefix(p string) Option {
	return func(pub *Publisher) {
		if p != "" {
			pub.prefix = strings.TrimSuffix(p, "/")
		}
	}
}

// WithLease expires published keys ttl seconds after publishing.
func WithLease(l clientv3.Lease, ttl int64) Option {
	return func(pub *Publisher) {
		pub.lease = l
		pub.ttl = ttl
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(pub *Publisher) {
		if l != nil {
			pub.log = l
		}
	}
}

func NewPublisher(kv clientv3.KV, opts ...Option) *Publisher {
	p := &Publisher{kv: kv, prefix: DefaultPrefix, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) runKey(id string) string {
	return path.Join(p.prefix, "runs", id)
}

func (p *Publisher) nodeKey(id string, node int) string {
	return path.Join(p.runKey(id), "nodes", fmt.Sprint(node))
}

// Publish stores the run summary and one key per node state.
func (p *Publisher) Publish(ctx context.Context, r *sim.Result) error {
	var opts []clientv3.OpOption
	if p.lease != nil && p.ttl > 0 {
		lease, err := p.lease.Grant(ctx, p.ttl)
		if err != nil {
			return fmt.Errorf("grant lease: %w", err)
		}
		opts = append(opts, clientv3.WithLease(lease.ID))
	}

	sum, err := json.Marshal(Summary{
		ID:        r.ID,
		Algorithm: r.Scenario.Algorithm,
		Nodes:     len(r.Nodes),
		Messages:  r.Messages,
		ByKind:    r.ByKind,
		Rounds:    r.Rounds,
		Duration:  r.Duration,
		Error:     r.Error,
	})
	if err != nil {
		return err
	}
	if _, err := p.kv.Put(ctx, p.runKey(r.ID), string(sum), opts...); err != nil {
		return fmt.Errorf("put run %s: %w", r.ID, err)
	}

	for _, n := range r.Nodes {
		val, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if _, err := p.kv.Put(ctx, p.nodeKey(r.ID, int(n.ID)), string(val), opts...); err != nil {
			return fmt.Errorf("put run %s node %d: %w", r.ID, n.ID, err)
		}
	}
	p.log.Info("published run", zap.String("run", r.ID), zap.Int("nodes", len(r.Nodes)))
	return nil
}

// NodeStates reads back the node states of run id, ordered by node.
func (p *Publisher) NodeStates(ctx context.Context, id string) ([]sim.NodeState, error) {
	resp, err := p.kv.Get(ctx, p.runKey(id)+"/nodes/", clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}
	return decodeNodes(resp.Kvs)
}

func decodeNodes(kvs []*mvccpb.KeyValue) ([]sim.NodeState, error) {
	out := make([]sim.NodeState, 0, len(kvs))
	for _, kv := range kvs {
		var n sim.NodeState
		if err := json.Unmarshal(kv.Value, &n); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kv.Key, err)
		}
		out = append(out, n)
	}
	// Keys sort as strings, so "10" comes before "2".
	slices.SortFunc(out, func(a, b sim.NodeState) int { return int(a.ID) - int(b.ID) })
	return out, nil
}
