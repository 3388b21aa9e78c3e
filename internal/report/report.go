// Package report prints a run's final state as tables for people to read.
package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/ryandielhenn/ringsim/pkg/sim"
)

// Render writes a summary line followed by the per-node state table and,
// for routing runs with deliveries, a delivery table.
func Render(w io.Writer, r *sim.Result) {
	fmt.Fprintln(w, Summary(r))

	if r.Gossip() {
		t := newTable(w, "Node", "Secrets", "Count")
		for _, n := range r.Nodes {
			t.Append([]string{n.ID.String(), n.Secrets.String(), strconv.Itoa(n.Secrets.Len())})
		}
		t.Render()
		return
	}

	t := newTable(w, "Node", "Phase", "Destination", "Next hop", "Distance")
	t.SetAutoMergeCells(true)
	for _, n := range r.Nodes {
		for _, e := range n.Table {
			t.Append([]string{n.ID.String(), n.Phase, e.Destination.String(), e.NextHop.String(), strconv.Itoa(e.Distance)})
		}
	}
	t.Render()

	deliveries := r.Deliveries()
	if len(deliveries) == 0 {
		return
	}
	fmt.Fprintln(w)
	d := newTable(w, "From", "To", "Content")
	for _, m := range deliveries {
		d.Append([]string{m.FirstNode.String(), m.LastNode.String(), m.Content})
	}
	d.Render()
}

// Summary is a one-line description of r.
func Summary(r *sim.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s on %d nodes (%s), %d messages",
		r.ID, r.Scenario.Algorithm, len(r.Nodes), r.Scenario.Mode, r.Messages)

	kinds := make([]string, 0, len(r.ByKind))
	for k := range r.ByKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	if len(kinds) > 1 {
		parts := make([]string, len(kinds))
		for i, k := range kinds {
			parts[i] = fmt.Sprintf("%s=%d", k, r.ByKind[k])
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, " "))
	}
	if r.Rounds > 0 {
		fmt.Fprintf(&b, ", %d rounds", r.Rounds)
	}
	fmt.Fprintf(&b, ", took %s", r.Duration)
	if r.Error != "" {
		fmt.Fprintf(&b, ", error: %s", r.Error)
	}
	return b.String()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}
