package routing

import (
	"math/rand"
	"testing"

	"github.com/ryandielhenn/ringsim/pkg/ring"
	"github.com/ryandielhenn/ringsim/pkg/transport"
)

func TestNewTableSeedsSelfAndNeighbors(t *testing.T) {
	tbl := NewTable(2, 1, 3)

	want := Table{
		1: {NextHop: 1, Distance: 1},
		2: {NextHop: 2, Distance: 0},
		3: {NextHop: 3, Distance: 1},
	}
	if len(tbl) != len(want) {
		t.Fatalf("table = %s, want %s", tbl, want)
	}
	for dst, r := range want {
		if got := tbl[dst]; got != r {
			t.Fatalf("table[%d] = %+v, want %+v", dst, got, r)
		}
	}
}

func TestMergeTakesUnknownAndShorterRoutes(t *testing.T) {
	tbl := NewTable(0, 4, 1)
	tbl[3] = Route{NextHop: 1, Distance: 3}

	advertised := Table{
		4: {NextHop: 4, Distance: 0},
		3: {NextHop: 3, Distance: 1},
		2: {NextHop: 3, Distance: 2},
		0: {NextHop: 0, Distance: 1},
	}
	if changed := tbl.Merge(4, advertised); !changed {
		t.Fatal("Merge = false, want true")
	}

	tests := map[transport.NodeID]Route{
		0: {NextHop: 0, Distance: 0}, // self untouched
		4: {NextHop: 4, Distance: 1}, // 0+1 is not better than 1
		3: {NextHop: 4, Distance: 2}, // improved from 3
		2: {NextHop: 4, Distance: 3}, // newly learned
		1: {NextHop: 1, Distance: 1},
	}
	for dst, want := range tests {
		if got := tbl[dst]; got != want {
			t.Fatalf("table[%d] = %+v, want %+v", dst, got, want)
		}
	}
}

func TestMergeWithoutNewInfoReportsNoChange(t *testing.T) {
	tbl := NewTable(1, 0, 2)
	if !tbl.Merge(0, NewTable(0, 4, 1)) {
		t.Fatal("first merge should learn node 4")
	}
	if tbl.Merge(0, NewTable(0, 4, 1)) {
		t.Fatal("repeating the same advertisement reported a change")
	}
}

func TestMergeIsMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tbl := NewTable(0, 1, 7)

	for range 500 {
		before := tbl.Clone()
		adv := Table{}
		for range 1 + rng.Intn(5) {
			adv[transport.NodeID(rng.Intn(8))] = Route{NextHop: 0, Distance: rng.Intn(10)}
		}
		tbl.Merge(transport.NodeID(rng.Intn(8)), adv)

		for dst, old := range before {
			if tbl[dst].Distance > old.Distance {
				t.Fatalf("distance to %d grew from %d to %d", dst, old.Distance, tbl[dst].Distance)
			}
		}
		if tbl[0] != (Route{NextHop: 0, Distance: 0}) {
			t.Fatalf("self entry changed to %+v", tbl[0])
		}
	}
}

func TestComplete(t *testing.T) {
	tbl := Table{
		0: {0, 0}, 1: {1, 1}, 2: {1, 2}, 3: {3, 1},
	}
	if !tbl.Complete(4, 2) {
		t.Fatal("Complete(4, 2) = false, want true")
	}
	if tbl.Complete(5, 2) {
		t.Fatal("Complete(5, 2) = true for a table of 4")
	}
	tbl[2] = Route{NextHop: 1, Distance: 3}
	if tbl.Complete(4, 2) {
		t.Fatal("Complete accepted a distance above the diameter")
	}
}

// Synchronous exchange generations: every node merges both neighbors'
// previous tables at once.
func TestConvergesWithinHalfRingGenerations(t *testing.T) {
	for n := 2; n <= 12; n++ {
		r, _ := ring.New(n)
		tables := make([]Table, n)
		for i := range n {
			id := transport.NodeID(i)
			tables[i] = NewTable(id, r.Neighbors(id)...)
		}

		allComplete := func() bool {
			for _, tbl := range tables {
				if !tbl.Complete(n, r.Diameter()) {
					return false
				}
			}
			return true
		}

		gens := 0
		for !allComplete() {
			snap := make([]Table, n)
			for i := range tables {
				snap[i] = tables[i].Clone()
			}
			for i := range tables {
				id := transport.NodeID(i)
				for _, nb := range r.Neighbors(id) {
					tables[i].Merge(nb, snap[nb])
				}
			}
			gens++
			if gens > n {
				t.Fatalf("N=%d: no convergence after %d generations", n, gens)
			}
		}

		if limit := (n + 1) / 2; gens > limit {
			t.Fatalf("N=%d: converged in %d generations, want at most %d", n, gens, limit)
		}
		for i, tbl := range tables {
			for dst, rt := range tbl {
				if want := r.Distance(transport.NodeID(i), dst); rt.Distance != want {
					t.Fatalf("N=%d: node %d distance to %d = %d, want %d", n, i, dst, rt.Distance, want)
				}
			}
		}
	}
}

func TestTableString(t *testing.T) {
	if got, want := NewTable(1, 0, 2).String(), "{0: (0, 1), 1: (1, 0), 2: (2, 1)}"; got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}
}
