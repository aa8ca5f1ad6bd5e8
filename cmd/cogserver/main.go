// Command cogserver is a small demo CLI wiring the graph, ECAN, PLN, and
// scheduler packages together, in the teacher's cobra-based command style
// (cmd/echo.go: XHandler(cmd *cobra.Command, args []string) error
// functions reading flags via cmd.Flags().GetX).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/opencog-go/atomspace/core/atom"
	"github.com/opencog-go/atomspace/core/ecan"
	"github.com/opencog-go/atomspace/core/graph"
	"github.com/opencog-go/atomspace/core/pln"
	"github.com/opencog-go/atomspace/core/scheduler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cogserver",
		Short: "A small hypergraph knowledge store with ECAN attention and PLN inference",
	}

	demo := &cobra.Command{
		Use:   "demo",
		Short: "Build a toy knowledge base and run attention/inference/scheduling cycles over it",
		RunE:  DemoHandler,
	}
	demo.Flags().Int("cycles", 3, "number of ECAN cycles to run")
	demo.Flags().Int("pln-iterations", 5, "max PLN inference iterations per round")
	demo.Flags().Duration("job-timeout", 2*time.Second, "per-job timeout for scheduled plugins")

	root.AddCommand(demo)
	return root
}

// DemoHandler seeds a small knowledge base, runs ECAN/PLN/scheduler cycles
// over it, and prints resulting statistics as a table.
func DemoHandler(cmd *cobra.Command, args []string) error {
	cycles, _ := cmd.Flags().GetInt("cycles")
	plnIterations, _ := cmd.Flags().GetInt("pln-iterations")
	jobTimeout, _ := cmd.Flags().GetDuration("job-timeout")

	g := seedDemoGraph()

	ecanEngine := ecan.New(g, ecan.DefaultConfig())
	plnEngine := pln.New(g, pln.DefaultConfig())
	schedCfg := scheduler.DefaultConfig()
	schedCfg.JobTimeout = jobTimeout
	sched := scheduler.New(g, schedCfg)
	sched.Register(&scheduler.ECANPlugin{Engine: ecanEngine})
	sched.Register(&scheduler.PLNPlugin{Engine: plnEngine, MaxIterations: plnIterations})
	sched.Register(&scheduler.PatternMiningPlugin{})
	sched.Register(&scheduler.GoalProcessingPlugin{})
	sched.Register(&scheduler.MemoryConsolidationPlugin{})

	ctx := cmd.Context()
	for i := 0; i < cycles; i++ {
		var ids []string
		ecanJob, err := sched.Enqueue("ecan", 10, jobTimeout, 1)
		if err != nil {
			return err
		}
		ids = append(ids, ecanJob.ID)
		plnJob, err := sched.Enqueue("pln", 5, jobTimeout, 1)
		if err != nil {
			return err
		}
		ids = append(ids, plnJob.ID)
		if i == cycles-1 {
			for _, name := range []string{"pattern-mining", "goal-processing", "memory-consolidation"} {
				job, err := sched.Enqueue(name, 1, jobTimeout, 0)
				if err != nil {
					return err
				}
				ids = append(ids, job.ID)
			}
		}
		waitForTerminal(ctx, sched, ids)
	}

	printGraphStatistics(g)
	printAttentionStatistics(ecanEngine)
	return nil
}

// waitForTerminal repeatedly ticks the scheduler until every listed job
// reaches a terminal state, standing in for a long-lived process that would
// otherwise have called Start and let the cycle timer do this.
func waitForTerminal(ctx context.Context, sched *scheduler.Scheduler, ids []string) {
	for {
		sched.Tick(ctx)
		done := true
		for _, id := range ids {
			job, ok := sched.Job(id)
			if !ok {
				continue
			}
			switch job.State {
			case scheduler.Completed, scheduler.Failed, scheduler.TimedOut, scheduler.Cancelled:
			default:
				done = false
			}
		}
		if done {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func seedDemoGraph() *graph.Graph {
	g := graph.New()

	bird, _ := g.AddNode(atom.ConceptNode, "bird", nil)
	animal, _ := g.AddNode(atom.ConceptNode, "animal", nil)
	canFly, _ := g.AddNode(atom.ConceptNode, "can-fly", nil)

	tv1 := atom.TruthValue{Strength: 0.9, Confidence: 0.8}
	tv2 := atom.TruthValue{Strength: 0.7, Confidence: 0.6}
	g.AddLink(atom.InheritanceLink, []string{bird.ID, animal.ID}, &tv1)
	g.AddLink(atom.InheritanceLink, []string{bird.ID, canFly.ID}, &tv2)

	goal, _ := g.AddNode(atom.GoalNode, "understand-flight", nil)
	goal.SetTruthValue(atom.TruthValue{Strength: 0.85, Confidence: 0.7})

	return g
}

func printGraphStatistics(g *graph.Graph) {
	stats := g.Statistics()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Total atoms", fmt.Sprintf("%d", stats.Total)})
	table.Append([]string{"Nodes", fmt.Sprintf("%d", stats.Nodes)})
	table.Append([]string{"Links", fmt.Sprintf("%d", stats.Links)})
	table.Append([]string{"Focus size", fmt.Sprintf("%d", stats.FocusSize)})
	table.Render()
}

func printAttentionStatistics(e *ecan.Engine) {
	stats := e.Statistics()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ECAN stat", "Value"})
	table.Append([]string{"Cycles run", fmt.Sprintf("%d", stats.CyclesRun)})
	table.Append([]string{"Avg focus size", fmt.Sprintf("%.2f", stats.AverageFocusSize)})
	table.Append([]string{"STI pool", fmt.Sprintf("%d", stats.STIPool)})
	table.Append([]string{"LTI pool", fmt.Sprintf("%d", stats.LTIPool)})
	table.Render()
}
