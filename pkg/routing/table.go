package routing

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ryandielhenn/ringsim/pkg/transport"
)

// Route is how to reach one destination: the neighbor to hand the message
// to and the number of hops from here.
type Route struct {
	NextHop  transport.NodeID `json:"nextHop"`
	Distance int              `json:"distance"`
}

// Table maps destinations to the best route discovered so far.
type Table map[transport.NodeID]Route

// NewTable seeds a table with the self entry (self, 0) and a one-hop route
// to each direct neighbor.
func NewTable(self transport.NodeID, neighbors ...transport.NodeID) Table {
	t := Table{}
	for _, nb := range neighbors {
		t[nb] = Route{NextHop: nb, Distance: 1}
	}
	t[self] = Route{NextHop: self, Distance: 0}
	return t
}

func (t Table) Clone() Table {
	c := make(Table, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

func (t Table) Lookup(dst transport.NodeID) (Route, bool) {
	r, ok := t[dst]
	return r, ok
}

// Merge relaxes t with the table advertised by neighbor from. A destination
// is taken over when it is unknown locally or reachable strictly faster
// through from. Distances never increase. Merge reports whether anything
// changed.
func (t Table) Merge(from transport.NodeID, advertised Table) bool {
	changed := false
	for dst, adv := range advertised {
		candidate := adv.Distance + 1
		if cur, ok := t[dst]; !ok || candidate < cur.Distance {
			t[dst] = Route{NextHop: from, Distance: candidate}
			changed = true
		}
	}
	return changed
}

// Complete reports whether the table names every one of nodes destinations
// with no distance above diameter.
func (t Table) Complete(nodes, diameter int) bool {
	if len(t) < nodes {
		return false
	}
	for _, r := range t {
		if r.Distance > diameter {
			return false
		}
	}
	return true
}

// Destinations returns the known destinations in ascending order.
func (t Table) Destinations() []transport.NodeID {
	out := make([]transport.NodeID, 0, len(t))
	for dst := range t {
		out = append(out, dst)
	}
	slices.Sort(out)
	return out
}

func (t Table) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, dst := range t.Destinations() {
		if i > 0 {
			b.WriteString(", ")
		}
		r := t[dst]
		fmt.Fprintf(&b, "%d: (%d, %d)", dst, r.NextHop, r.Distance)
	}
	b.WriteByte('}')
	return b.String()
}

// Entry is one row of a table in flattened form, for reports and JSON.
type Entry struct {
	Destination transport.NodeID `json:"destination"`
	Route
}

// Entries returns the rows sorted by destination.
func (t Table) Entries() []Entry {
	dsts := t.Destinations()
	out := make([]Entry, len(dsts))
	for i, dst := range dsts {
		out[i] = Entry{Destination: dst, Route: t[dst]}
	}
	return out
}
