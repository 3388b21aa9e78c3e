package gossip

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

var ErrUnknownKind = errors.New("gossip: unknown strategy")

// Kind names a dissemination strategy.
type Kind string

const (
	Naive              Kind = "naive"
	CollectorBroadcast Kind = "collector"
	RingPropagation    Kind = "ring"
)

// Kinds lists every strategy in a stable order.
var Kinds = []Kind{Naive, CollectorBroadcast, RingPropagation}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Naive, CollectorBroadcast, RingPropagation:
		return k, nil
	case "all-to-all", "master":
		return CollectorBroadcast, nil
	case "neighbours", "neighbors", "ring-propagation":
		return RingPropagation, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Strategy is one node's instance of a gossip algorithm.
type Strategy interface {
	// Run executes the protocol until this node's local termination
	// condition holds, or ctx is done.
	Run(ctx context.Context) error
	// Secrets returns a copy of the secrets known so far. It must not be
	// called concurrently with Run.
	Secrets() SecretSet
}

type settings struct {
	role   RolePolicy
	log    *zap.Logger
	poller transport.Poller
}

type Option func(*settings)

// WithRole injects the master/initiator policy. Defaults to Lowest.
func WithRole(p RolePolicy) Option {
	return func(s *settings) {
		if p != nil {
			s.role = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPoller sets the backoff used between empty polls.
func WithPoller(p transport.Poller) Option {
	return func(s *settings) { s.poller = p }
}

// New builds the strategy kind for the node behind m.
func New(kind Kind, m transport.Medium, opts ...Option) (Strategy, error) {
	s := settings{role: Lowest(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	b := newBase(m, s)

	switch kind {
	case Naive:
		return &naive{base: b}, nil
	case CollectorBroadcast:
		master, err := designate(s.role, m.Nodes())
		if err != nil {
			return nil, err
		}
		return &collector{base: b, master: master}, nil
	case RingPropagation:
		return newRingPropagation(b, s.role)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// base holds what every strategy shares: the node's medium, its secrets and
// the receive loop.
type base struct {
	m       transport.Medium
	self    transport.NodeID
	nodes   int
	secrets SecretSet
	log     *zap.Logger
	poller  transport.Poller
}

func newBase(m transport.Medium, s settings) base {
	return base{
		m:       m,
		self:    m.ID(),
		nodes:   m.Nodes(),
		secrets: NewSecretSet(m.ID()),
		log:     s.log.With(zap.Int("node", int(m.ID()))),
		poller:  s.poller,
	}
}

func (b *base) Secrets() SecretSet { return b.secrets.Clone() }

func (b *base) complete() bool { return b.secrets.Len() >= b.nodes }

func (b *base) send(to transport.NodeID) {
	b.m.Send(newMessage(b.self, to, b.secrets))
}

// next blocks until a gossip message arrives. Other message kinds are
// logged and skipped.
func (b *base) next(ctx context.Context) (Message, error) {
	for {
		raw, err := b.poller.Receive(ctx, b.m)
		if err != nil {
			return Message{}, err
		}
		if msg, ok := raw.(Message); ok {
			return msg, nil
		}
		b.log.Warn("ignoring non-gossip message", zap.String("kind", raw.Kind()), zap.Int("from", int(raw.Source())))
	}
}

func (b *base) absorb(msg Message) {
	added := b.secrets.Merge(msg.Secrets)
	b.log.Debug("merged secrets",
		zap.Int("from", int(msg.From)), zap.Int("new", added), zap.Int("known", b.secrets.Len()))
}

// drain receives and merges until this node knows every secret.
func (b *base) drain(ctx context.Context) error {
	for !b.complete() {
		msg, err := b.next(ctx)
		if err != nil {
			return err
		}
		b.absorb(msg)
	}
	return nil
}
