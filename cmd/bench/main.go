package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"

	"github.com/ryandielhenn/ringsim/pkg/sim"
)

type row struct {
	algorithm string
	nodes     int
	messages  int
	rounds    int
	took      time.Duration
}

func main() {
	minN := flag.Int("min", 2, "smallest ring")
	maxN := flag.Int("max", 16, "largest ring")
	algos := flag.String("algorithms", "naive,collector,ring,routing", "comma separated algorithms")
	mode := flag.String("mode", "", "transport mode for gossip runs")
	conc := flag.Int("c", 8, "concurrent runs")
	timeout := flag.Duration("timeout", time.Minute, "per-run timeout")
	flag.Parse()

	var scenarios []sim.Scenario
	for _, a := range strings.Split(*algos, ",") {
		a = strings.TrimSpace(a)
		for n := *minN; n <= *maxN; n++ {
			sc := sim.Scenario{Nodes: n, Algorithm: a, Timeout: *timeout}
			if *mode != "" && a != sim.AlgorithmRouting {
				sc.Mode = *mode
			}
			scenarios = append(scenarios, sc)
		}
	}

	rows := make([]row, len(scenarios))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*conc)
	start := time.Now()
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := sim.Run(ctx, sc, nil)
			if err != nil {
				return fmt.Errorf("%s N=%d: %w", sc.Algorithm, sc.Nodes, err)
			}
			rows[i] = row{res.Scenario.Algorithm, sc.Nodes, res.Messages, res.Rounds, res.Duration}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"Algorithm", "Nodes", "Messages", "Rounds", "Took"})
	t.SetAutoMergeCells(true)
	for _, r := range rows {
		t.Append([]string{r.algorithm, strconv.Itoa(r.nodes), strconv.Itoa(r.messages), strconv.Itoa(r.rounds), r.took.String()})
	}
	t.Render()
	fmt.Printf("Completed %d runs in %s\n", len(rows), time.Since(start))
}
