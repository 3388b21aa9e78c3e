package transport

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/internal/telemetry"
)

// Mode selects how a Network schedules delivery.
type Mode int

const (
	FreeRunning Mode = iota
	LockStep
)

func (m Mode) String() string {
	switch m {
	case FreeRunning:
		return "free-running"
	case LockStep:
		return "lock-step"
	default:
		return "unknown"
	}
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free-running", "free", "async":
		return FreeRunning, nil
	case "lock-step", "lockstep", "sync":
		return LockStep, nil
	default:
		return 0, fmt.Errorf("unknown transport mode %q", s)
	}
}

// Network is an in-process message network for a fixed set of nodes.
// All state is guarded by mu; nodes only ever touch it through their Port.
type Network struct {
	mu   sync.Mutex
	cond *sync.Cond
	mode Mode
	log  *zap.Logger

	ports  []*Port
	inbox  [][]Message // per-node FIFO
	staged []Message   // lock-step: sent this round, delivered at the barrier
	closed []bool

	active    int // open ports taking part in the barrier
	waiting   int // ports blocked in AdvanceRound this round
	gen       uint64
	rounds    int
	quiescent bool

	sent   int
	byKind map[string]int
}

type Option func(*Network)

// WithLogger routes network diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.log = l
		}
	}
}

// NewNetwork creates a network of nodes [0, nodes).
func NewNetwork(nodes int, mode Mode, opts ...Option) *Network {
	if nodes < 0 {
		nodes = 0
	}
	n := &Network{
		mode:   mode,
		log:    zap.NewNop(),
		ports:  make([]*Port, nodes),
		inbox:  make([][]Message, nodes),
		closed: make([]bool, nodes),
		active: nodes,
		byKind: make(map[string]int),
	}
	n.cond = sync.NewCond(&n.mu)
	for _, opt := range opts {
		opt(n)
	}
	for i := range n.ports {
		n.ports[i] = &Port{net: n, id: NodeID(i)}
	}
	return n
}

// Port returns the Medium for node id. It panics if id is out of range,
// which is a programming error rather than a runtime condition.
func (n *Network) Port(id NodeID) *Port {
	if int(id) < 0 || int(id) >= len(n.ports) {
		panic(fmt.Sprintf("transport: node %d out of range [0, %d)", id, len(n.ports)))
	}
	return n.ports[id]
}

func (n *Network) Nodes() int { return len(n.ports) }
func (n *Network) Mode() Mode { return n.mode }

// Sent returns the number of messages accepted for delivery so far.
func (n *Network) Sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}

// SentByKind returns a copy of the per-kind send counters.
func (n *Network) SentByKind() map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]int, len(n.byKind))
	for k, v := range n.byKind {
		out[k] = v
	}
	return out
}

// Rounds returns how many lock-step rounds have completed.
func (n *Network) Rounds() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rounds
}

// Pending returns the number of undelivered messages, staged ones included.
func (n *Network) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := len(n.staged)
	for _, q := range n.inbox {
		total += len(q)
	}
	return total
}

func (n *Network) send(msg Message) {
	dst := msg.Destination()
	kind := msg.Kind()

	n.mu.Lock()
	if int(dst) < 0 || int(dst) >= len(n.inbox) {
		n.mu.Unlock()
		n.log.Warn("dropping message for unknown node",
			zap.String("kind", kind), zap.Int("from", int(msg.Source())), zap.Int("to", int(dst)))
		telemetry.MessagesDropped.WithLabelValues("invalid_destination").Inc()
		return
	}
	n.sent++
	n.byKind[kind]++
	if n.mode == LockStep {
		n.staged = append(n.staged, msg)
	} else {
		n.inbox[dst] = append(n.inbox[dst], msg)
	}
	n.mu.Unlock()

	telemetry.MessagesSent.WithLabelValues(kind).Inc()
	if ce := n.log.Check(zap.DebugLevel, "send"); ce != nil {
		ce.Write(zap.String("kind", kind), zap.Int("from", int(msg.Source())), zap.Int("to", int(dst)))
	}
}

func (n *Network) receive(id NodeID) (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	q := n.inbox[id]
	if len(q) == 0 {
		return nil, false
	}
	msg := q[0]
	q[0] = nil
	n.inbox[id] = q[1:]
	return msg, true
}

func (n *Network) advance(ctx context.Context, id NodeID) error {
	if n.mode == FreeRunning {
		runtime.Gosched()
		return ctx.Err()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed[id] {
		return ErrClosed
	}
	if n.quiescent {
		return ErrQuiescent
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gen := n.gen
	n.waiting++
	if n.waiting >= n.active {
		n.endRoundLocked()
	} else {
		stop := context.AfterFunc(ctx, func() {
			n.mu.Lock()
			n.cond.Broadcast()
			n.mu.Unlock()
		})
		defer stop()
		for gen == n.gen {
			if err := ctx.Err(); err != nil {
				n.waiting--
				return err
			}
			n.cond.Wait()
		}
	}

	if n.quiescent {
		return ErrQuiescent
	}
	return nil
}

// endRoundLocked releases the barrier. Must be called with mu held.
func (n *Network) endRoundLocked() {
	for _, msg := range n.staged {
		dst := msg.Destination()
		n.inbox[dst] = append(n.inbox[dst], msg)
	}
	n.staged = nil
	n.rounds++
	n.waiting = 0
	n.gen++

	idle := true
	for id, q := range n.inbox {
		if !n.closed[id] && len(q) > 0 {
			idle = false
			break
		}
	}
	n.quiescent = idle

	telemetry.Rounds.Inc()
	n.cond.Broadcast()
}

func (n *Network) close(id NodeID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed[id] {
		return
	}
	n.closed[id] = true
	n.active--
	// The departing node may have been the last one the barrier waited on.
	if n.mode == LockStep && n.waiting > 0 && n.waiting >= n.active {
		n.endRoundLocked()
	}
}

// Port is a node's handle on the Network. It implements Medium.
type Port struct {
	net *Network
	id  NodeID
}

var _ Medium = (*Port)(nil)

func (p *Port) ID() NodeID     { return p.id }
func (p *Port) Nodes() int     { return len(p.net.ports) }
func (p *Port) LockStep() bool { return p.net.mode == LockStep }

func (p *Port) Send(msg Message) { p.net.send(msg) }

func (p *Port) Receive() (Message, bool) { return p.net.receive(p.id) }

func (p *Port) AdvanceRound(ctx context.Context) error { return p.net.advance(ctx, p.id) }

// Close takes the node out of the round barrier. Messages still addressed to
// it are kept but no longer hold the network out of quiescence.
func (p *Port) Close() { p.net.close(p.id) }
