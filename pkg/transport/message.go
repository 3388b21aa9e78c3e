package transport

import (
	"context"
	"errors"
	"strconv"
)

// NodeID identifies a node in a network of N nodes; valid ids are [0, N).
type NodeID int

func (id NodeID) String() string {
	return strconv.Itoa(int(id))
}

var (
	// ErrQuiescent is returned by AdvanceRound in lock-step mode once a round
	// ends with nothing in flight: no node can ever receive another message.
	ErrQuiescent = errors.New("transport: network is quiescent")
	// ErrClosed is returned when a closed port is used for a blocking call.
	ErrClosed = errors.New("transport: port closed")
)

// Message is anything that can travel over a Medium.
// Implementations must be treated as immutable once sent.
type Message interface {
	Source() NodeID
	Destination() NodeID
	// Kind is a short label used for accounting and logs, e.g. "gossip".
	Kind() string
}

// Header carries the addressing shared by every message type.
// Embed it to satisfy the addressing half of Message.
type Header struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

func (h Header) Source() NodeID      { return h.From }
func (h Header) Destination() NodeID { return h.To }

// Identity gives an algorithm instance its own id and the network size.
// Both are available before any message exchange and never change.
type Identity interface {
	ID() NodeID
	Nodes() int
}

// Medium is the per-node view of the network.
type Medium interface {
	Identity
	// Send enqueues msg for msg.Destination(). Fire-and-forget: there is no
	// acknowledgment and no error.
	Send(msg Message)
	// Receive pops the next inbound message, or reports ok=false if none is
	// available right now.
	Receive() (msg Message, ok bool)
	// AdvanceRound is the cooperative yield point. In lock-step mode it blocks
	// until every active node has arrived and pending sends have settled; in
	// free-running mode it only yields the processor.
	AdvanceRound(ctx context.Context) error
}
