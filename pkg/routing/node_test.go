package routing

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ryandielhenn/ringsim/pkg/ring"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

func runRing(t *testing.T, n int, logger *zap.Logger, payloads ...Payload) ([]*Node, *transport.Network) {
	t.Helper()
	net := transport.NewNetwork(n, transport.LockStep)
	nodes := make([]*Node, n)
	for i := range n {
		node, err := NewNode(net.Port(transport.NodeID(i)), WithLogger(logger), WithPayloads(payloads...))
		if err != nil {
			t.Fatalf("NewNode(%d): %v", i, err)
		}
		nodes[i] = node
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, node := range nodes {
		wg.Add(1)
		go func(i int, node *Node) {
			defer wg.Done()
			defer net.Port(transport.NodeID(i)).Close()
			errs[i] = node.Run(ctx)
		}(i, node)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("node %d: Run = %v", i, err)
		}
	}
	return nodes, net
}

func TestRingConvergesToShortestPaths(t *testing.T) {
	for n := 1; n <= 9; n++ {
		nodes, _ := runRing(t, n, zap.NewNop())
		r, _ := ring.New(n)

		for _, node := range nodes {
			if node.Phase() != Converged {
				t.Fatalf("N=%d: node %d ended in phase %s", n, node.ID(), node.Phase())
			}
			tbl := node.Table()
			if len(tbl) != n {
				t.Fatalf("N=%d: node %d table %s has %d entries, want %d", n, node.ID(), tbl, len(tbl), n)
			}
			for dst, rt := range tbl {
				if want := r.Distance(node.ID(), dst); rt.Distance != want {
					t.Fatalf("N=%d: node %d distance to %d = %d, want %d", n, node.ID(), dst, rt.Distance, want)
				}
				if dst != node.ID() && rt.NextHop != r.Left(node.ID()) && rt.NextHop != r.Right(node.ID()) {
					t.Fatalf("N=%d: node %d next hop to %d is %d, not a neighbor", n, node.ID(), dst, rt.NextHop)
				}
			}
		}
	}
}

func TestSixNodeRingStaysWithinDiameter(t *testing.T) {
	nodes, _ := runRing(t, 6, zap.NewNop())
	for _, node := range nodes {
		for dst, rt := range node.Table() {
			if rt.Distance > 3 {
				t.Fatalf("node %d distance to %d = %d, want <= 3", node.ID(), dst, rt.Distance)
			}
		}
	}
}

func TestPayloadDeliveredAfterConvergence(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	nodes, net := runRing(t, 5, zap.New(core), Payload{From: 0, To: 1, Content: "message"})

	got := nodes[1].Delivered()
	if len(got) != 1 {
		t.Fatalf("node 1 delivered %d messages, want 1", len(got))
	}
	if want := (Delivery{FirstNode: 0, LastNode: 1, Content: "message"}); got[0] != want {
		t.Fatalf("delivery = %+v, want %+v", got[0], want)
	}
	for _, node := range nodes {
		if node.ID() != 1 && len(node.Delivered()) != 0 {
			t.Fatalf("node %d delivered %v, want nothing", node.ID(), node.Delivered())
		}
	}

	entries := logs.FilterMessage("delivered message").All()
	if len(entries) != 1 {
		t.Fatalf("delivery log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["node"] != int64(1) || fields["first"] != int64(0) || fields["last"] != int64(1) {
		t.Fatalf("delivery log fields = %v, want node=1 first=0 last=1", fields)
	}
	if got := net.SentByKind()[KindRoutable]; got != 1 {
		t.Fatalf("routable messages sent = %d, want 1", got)
	}
}

func TestPayloadRelayedAcrossRing(t *testing.T) {
	nodes, net := runRing(t, 7, zap.NewNop(),
		Payload{From: 0, To: 3, Content: "far"},
		Payload{From: 5, To: 2, Content: "back"},
	)

	if d := nodes[3].Delivered(); len(d) != 1 || d[0].Content != "far" || d[0].FirstNode != 0 {
		t.Fatalf("node 3 delivered %+v, want one 'far' from 0", d)
	}
	if d := nodes[2].Delivered(); len(d) != 1 || d[0].Content != "back" || d[0].FirstNode != 5 {
		t.Fatalf("node 2 delivered %+v, want one 'back' from 5", d)
	}
	// 0→1→2→3 and 5→4→3→2: three legs each.
	if got := net.SentByKind()[KindRoutable]; got != 6 {
		t.Fatalf("routable legs = %d, want 6", got)
	}
}

// recorder is a Medium that only records sends.
type recorder struct {
	id    transport.NodeID
	nodes int
	out   []transport.Message
}

func (r *recorder) ID() transport.NodeID { return r.id }

func (r *recorder) Nodes() int { return r.nodes }

func (r *recorder) Send(msg transport.Message) { r.out = append(r.out, msg) }

func (r *recorder) Receive() (transport.Message, bool) { return nil, false }

func (r *recorder) AdvanceRound(context.Context) error { return transport.ErrQuiescent }

func TestUnknownRouteDroppedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := &recorder{id: 2, nodes: 5}
	node, err := NewNode(m, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	node.start()
	m.out = nil // discard the initial advertisements

	// Node 2 only knows 1, 2 and 3 so far.
	node.originate(Payload{From: 2, To: 4, Content: "early"})

	if len(m.out) != 0 {
		t.Fatalf("sent %v, want nothing", m.out)
	}
	if node.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", node.Dropped())
	}
	if got := logs.FilterMessage("DROP unknown route").Len(); got != 1 {
		t.Fatalf("drop log entries = %d, want 1", got)
	}
}

func TestRelayKeepsEndpointsAndContent(t *testing.T) {
	m := &recorder{id: 1, nodes: 5}
	node, err := NewNode(m)
	if err != nil {
		t.Fatal(err)
	}
	node.start()
	m.out = nil

	node.handle(RoutableMessage{
		Header:    transport.Header{From: 0, To: 1},
		FirstNode: 0,
		LastNode:  2,
		Content:   "pass",
	})

	if len(m.out) != 1 {
		t.Fatalf("sent %d messages, want 1", len(m.out))
	}
	got := m.out[0].(RoutableMessage)
	want := RoutableMessage{Header: transport.Header{From: 1, To: 2}, FirstNode: 0, LastNode: 2, Content: "pass"}
	if got != want {
		t.Fatalf("relayed %+v, want %+v", got, want)
	}
}

func TestNoReadvertiseWithoutNewInfo(t *testing.T) {
	m := &recorder{id: 0, nodes: 3}
	node, err := NewNode(m)
	if err != nil {
		t.Fatal(err)
	}
	node.start()
	if len(m.out) != 2 {
		t.Fatalf("initial advertisements = %d, want 2", len(m.out))
	}
	m.out = nil

	node.handle(RipMessage{Header: transport.Header{From: 1, To: 0}, Table: NewTable(1, 0, 2)})
	if len(m.out) != 0 {
		t.Fatalf("re-advertised %d times after a merge with no news", len(m.out))
	}
}

func TestAdvertisedTableIsSnapshot(t *testing.T) {
	m := &recorder{id: 0, nodes: 6}
	node, err := NewNode(m)
	if err != nil {
		t.Fatal(err)
	}
	node.start()
	adv := m.out[0].(RipMessage)

	node.handle(RipMessage{Header: transport.Header{From: 1, To: 0}, Table: NewTable(1, 0, 2)})

	if _, ok := adv.Table[2]; ok {
		t.Fatal("advertisement already sent now shows a route learned later")
	}
}
