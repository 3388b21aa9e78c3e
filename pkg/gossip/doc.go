// Package gossip implements secret dissemination over a transport.Medium.
// Every node starts knowing one secret (its own id) and the run is over for
// a node once it knows all N of them.
//
// Three interchangeable strategies share the SecretSet/Message data model:
//
//   - Naive: every node sends its own secret straight to every other node
//     and waits. N(N-1) messages, no relaying.
//   - CollectorBroadcast: slaves send their secret to one master; once the
//     master knows everything it sends the full set back to each slave.
//     Exactly 2(N-1) messages.
//   - RingPropagation: an initiator starts a message around the ring; the
//     initiator's last unvisited neighbor reverses direction so the full set
//     flows back without crossing the initiator. 2N-2 messages.
//
// Typical usage:
//
//	s, err := gossip.New(gossip.CollectorBroadcast, port, gossip.WithRole(gossip.Fixed(2)))
//	if err != nil { ... }
//	err = s.Run(ctx)
//	fmt.Println(s.Secrets())
//
// The master/initiator is chosen by an injected RolePolicy.
package gossip
