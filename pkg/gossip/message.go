package gossip

import (
	"fmt"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

const KindGossip = "gossip"

// Message carries a snapshot of the sender's secrets. The set is copied when
// the message is built, so later growth at the sender is never visible to
// the receiver.
type Message struct {
	transport.Header
	Secrets SecretSet `json:"secrets"`
}

func newMessage(from, to transport.NodeID, secrets SecretSet) Message {
	return Message{
		Header:  transport.Header{From: from, To: to},
		Secrets: secrets.Clone(),
	}
}

func (Message) Kind() string { return KindGossip }

func (m Message) String() string {
	return fmt.Sprintf("%d -> %d : %s", m.From, m.To, m.Secrets)
}
