package routing

import (
	"fmt"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

const (
	KindRIP      = "rip"
	KindRoutable = "routable"
)

// RipMessage advertises a snapshot of the sender's table to a neighbor.
type RipMessage struct {
	transport.Header
	Table Table `json:"table"`
}

func (RipMessage) Kind() string { return KindRIP }

func (m RipMessage) String() string {
	return fmt.Sprintf("RipMessage: %d -> %d : %s", m.From, m.To, m.Table)
}

// RoutableMessage is an application payload travelling hop by hop. Only the
// header changes between legs; FirstNode, LastNode and Content are fixed.
type RoutableMessage struct {
	transport.Header
	FirstNode transport.NodeID `json:"firstNode"`
	LastNode  transport.NodeID `json:"lastNode"`
	Content   string           `json:"content"`
}

func (RoutableMessage) Kind() string { return KindRoutable }

func (m RoutableMessage) String() string {
	return fmt.Sprintf("RoutableMessage: %d -> %d : %s", m.From, m.To, m.Content)
}

// nextLeg readdresses m for the hop from via to.
func (m RoutableMessage) nextLeg(via, to transport.NodeID) RoutableMessage {
	m.Header = transport.Header{From: via, To: to}
	return m
}

// Payload is application data queued at From for delivery to To once From's
// table has converged.
type Payload struct {
	From    transport.NodeID `json:"from" yaml:"from"`
	To      transport.NodeID `json:"to" yaml:"to"`
	Content string           `json:"content" yaml:"content"`
}
