package routing

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/internal/telemetry"
	"github.com/ryandielhenn/ringsim/pkg/ring"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

// Phase is where a node is in the protocol.
type Phase int

const (
	Init Phase = iota
	Exchanging
	Converged
)

func (p Phase) String() string {
	switch p {
	case Init:
		return "init"
	case Exchanging:
		return "exchanging"
	case Converged:
		return "converged"
	default:
		return "unknown"
	}
}

// Delivery records a routable message that reached this node as its final
// recipient.
type Delivery struct {
	FirstNode transport.NodeID `json:"firstNode"`
	LastNode  transport.NodeID `json:"lastNode"`
	Content   string           `json:"content"`
}

// Node runs distance-vector route discovery for one ring member and relays
// routable messages with the resulting table. It is meant for a lock-step
// medium: one inbound message is handled per round.
type Node struct {
	m         transport.Medium
	self      transport.NodeID
	nodes     int
	neighbors []transport.NodeID
	diameter  int
	log       *zap.Logger

	table     Table
	phase     Phase
	payloads  []Payload
	sent      bool
	delivered []Delivery
	dropped   int
}

type Option func(*Node)

func WithLogger(l *zap.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.log = l
		}
	}
}

// WithPayloads queues application messages. Only entries whose From is this
// node are kept; they are sent once, after convergence.
func WithPayloads(ps ...Payload) Option {
	return func(n *Node) {
		for _, p := range ps {
			if p.From == n.self {
				n.payloads = append(n.payloads, p)
			}
		}
	}
}

// WithDiameter overrides the distance bound used to decide convergence.
// By default it is the ring diameter.
func WithDiameter(d int) Option {
	return func(n *Node) { n.diameter = d }
}

func NewNode(m transport.Medium, opts ...Option) (*Node, error) {
	r, err := ring.New(m.Nodes())
	if err != nil {
		return nil, err
	}
	self := m.ID()
	if !r.Contains(self) {
		return nil, errors.New("routing: node id outside the ring")
	}

	// Neighbors are distinct and never self, so rings of one and two
	// advertise once per real link.
	var neighbors []transport.NodeID
	for _, nb := range r.Neighbors(self) {
		if nb != self && !slices.Contains(neighbors, nb) {
			neighbors = append(neighbors, nb)
		}
	}

	n := &Node{
		m:         m,
		self:      self,
		nodes:     m.Nodes(),
		neighbors: neighbors,
		diameter:  r.Diameter(),
		log:       zap.NewNop(),
		phase:     Init,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.log = n.log.With(zap.Int("node", int(self)))
	return n, nil
}

// Run seeds the table, then handles at most one message per round until the
// medium reports that nothing is left in flight.
func (n *Node) Run(ctx context.Context) error {
	n.start()
	for {
		if msg, ok := n.m.Receive(); ok {
			n.handle(msg)
		}
		n.sendPayloads()

		if err := n.m.AdvanceRound(ctx); err != nil {
			if errors.Is(err, transport.ErrQuiescent) {
				return nil
			}
			return err
		}
	}
}

func (n *Node) start() {
	n.table = NewTable(n.self, n.neighbors...)
	n.phase = Exchanging
	n.checkConverged()
	n.advertise()
}

func (n *Node) handle(msg transport.Message) {
	switch m := msg.(type) {
	case RipMessage:
		changed := n.table.Merge(m.From, m.Table)
		n.log.Debug("got table", zap.Int("from", int(m.From)), zap.Bool("new_info", changed))
		if changed {
			n.checkConverged()
			n.advertise()
		}
	case RoutableMessage:
		n.relay(m)
	default:
		n.log.Warn("ignoring unexpected message", zap.String("kind", msg.Kind()), zap.Int("from", int(msg.Source())))
	}
}

func (n *Node) advertise() {
	for _, nb := range n.neighbors {
		n.m.Send(RipMessage{
			Header: transport.Header{From: n.self, To: nb},
			Table:  n.table.Clone(),
		})
	}
}

func (n *Node) checkConverged() {
	if n.phase != Converged && n.table.Complete(n.nodes, n.diameter) {
		n.phase = Converged
		n.log.Debug("routing table complete", zap.Stringer("table", n.table))
	}
}

// relay delivers m if it is addressed here, otherwise hands it to the next
// hop toward m.LastNode. Unknown destinations are dropped.
func (n *Node) relay(m RoutableMessage) {
	n.log.Debug("routing",
		zap.Int("first", int(m.FirstNode)), zap.Int("last", int(m.LastNode)), zap.String("content", m.Content))

	if m.LastNode == n.self {
		n.delivered = append(n.delivered, Delivery{FirstNode: m.FirstNode, LastNode: m.LastNode, Content: m.Content})
		telemetry.Delivered.Inc()
		n.log.Info("delivered message",
			zap.Int("first", int(m.FirstNode)), zap.Int("last", int(m.LastNode)), zap.String("content", m.Content))
		return
	}

	r, ok := n.table.Lookup(m.LastNode)
	if !ok {
		n.drop(m)
		return
	}
	n.m.Send(m.nextLeg(n.self, r.NextHop))
	telemetry.Relayed.Inc()
}

func (n *Node) drop(m RoutableMessage) {
	n.dropped++
	telemetry.MessagesDropped.WithLabelValues("unknown_route").Inc()
	n.log.Warn("DROP unknown route",
		zap.Int("first", int(m.FirstNode)), zap.Int("last", int(m.LastNode)), zap.String("content", m.Content))
}

// sendPayloads sends the queued payloads the first time the table is
// complete. It never resends.
func (n *Node) sendPayloads() {
	if n.sent || n.phase != Converged {
		return
	}
	for _, p := range n.payloads {
		n.originate(p)
	}
	n.sent = true
}

func (n *Node) originate(p Payload) {
	m := RoutableMessage{FirstNode: n.self, LastNode: p.To, Content: p.Content}
	r, ok := n.table.Lookup(p.To)
	if !ok {
		n.drop(m)
		return
	}
	n.m.Send(m.nextLeg(n.self, r.NextHop))
}

func (n *Node) ID() transport.NodeID { return n.self }

// Table returns a copy of the current routing table.
func (n *Node) Table() Table { return n.table.Clone() }

func (n *Node) Phase() Phase { return n.phase }

func (n *Node) Delivered() []Delivery { return slices.Clone(n.delivered) }

// Dropped counts routable messages this node could not forward.
func (n *Node) Dropped() int { return n.dropped }
