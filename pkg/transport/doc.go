// Package transport is the message-passing substrate every ringsim
// algorithm runs on. It defines an abstract Medium (identity, send,
// non-blocking receive and a round barrier) and provides an in-process
// Network implementation with two scheduling modes:
//
//   - FreeRunning: sends land in the destination inbox immediately and
//     nodes poll at their own pace.
//   - LockStep: sends are staged and only become visible after every
//     active node has called AdvanceRound, so exchanges proceed in
//     synchronized rounds.
//
// Typical usage:
//
//	net := transport.NewNetwork(5, transport.LockStep)
//	port := net.Port(2)
//	port.Send(msg)
//	if m, ok := port.Receive(); ok { ... }
//	err := port.AdvanceRound(ctx)
//
// Absence of a message is never an error: Receive reports it with ok=false
// and callers either retry (see Poller) or advance the round.
package transport
