package scheduler

import (
	"context"

	"github.com/opencog-go/atomspace/core/atom"
	"github.com/opencog-go/atomspace/core/ecan"
	"github.com/opencog-go/atomspace/core/graph"
	"github.com/opencog-go/atomspace/core/pln"
)

// PLNPlugin runs a bounded round of PLN inference each invocation.
type PLNPlugin struct {
	Engine        *pln.Engine
	MaxIterations int
}

func (p *PLNPlugin) Name() string { return "pln" }

func (p *PLNPlugin) Run(ctx context.Context, g *graph.Graph) (interface{}, error) {
	iterations := p.MaxIterations
	if iterations <= 0 {
		iterations = 10
	}
	return p.Engine.Infer(iterations)
}

// ECANPlugin runs one ECAN attention cycle each invocation.
type ECANPlugin struct {
	Engine *ecan.Engine
}

func (p *ECANPlugin) Name() string { return "ecan" }

func (p *ECANPlugin) Run(ctx context.Context, g *graph.Graph) (interface{}, error) {
	p.Engine.Cycle()
	return p.Engine.Statistics(), nil
}

// PatternMiningResult reports node types whose population meets minSupport.
type PatternMiningResult struct {
	Patterns   []string
	TypeCounts map[string]int
}

// PatternMiningPlugin counts node types and emits those with a population
// of at least MinSupport (spec §4.E built-in `patternMining`).
type PatternMiningPlugin struct {
	MinSupport int
}

func (p *PatternMiningPlugin) Name() string { return "pattern-mining" }

func (p *PatternMiningPlugin) Run(ctx context.Context, g *graph.Graph) (interface{}, error) {
	minSupport := p.MinSupport
	if minSupport <= 0 {
		minSupport = 2
	}

	counts := make(map[string]int)
	for _, a := range g.All() {
		if a.IsLink() {
			continue
		}
		counts[string(a.Type)]++
	}

	var patterns []string
	for typ, n := range counts {
		if n >= minSupport {
			patterns = append(patterns, typ)
		}
	}
	return PatternMiningResult{Patterns: patterns, TypeCounts: counts}, nil
}

// GoalProcessingPlugin returns goal atoms whose STI is above a threshold
// (spec §4.E built-in `goalProcessing`).
type GoalProcessingPlugin struct {
	STIThreshold int
}

func (p *GoalProcessingPlugin) Name() string { return "goal-processing" }

func (p *GoalProcessingPlugin) Run(ctx context.Context, g *graph.Graph) (interface{}, error) {
	threshold := p.STIThreshold
	if threshold == 0 {
		threshold = 100
	}

	var goals []*atom.Atom
	for _, goal := range g.ByType(atom.GoalNode) {
		if goal.AttentionValue().STI > threshold {
			goals = append(goals, goal)
		}
	}
	return goals, nil
}

// MemoryConsolidationResult reports how many atoms were consolidated into
// long-term memory this cycle.
type MemoryConsolidationResult struct {
	AtomsConsolidated int
}

// MemoryConsolidationPlugin promotes every atom whose current STI is at or
// above STIThreshold (500 when unset) to long-term memory by incrementing LTI — this is this spec's resolution of
// open question 4: the plugin reports the actual count of atoms it
// consolidates, not a constant.
type MemoryConsolidationPlugin struct {
	STIThreshold int
}

func (p *MemoryConsolidationPlugin) Name() string { return "memory-consolidation" }

func (p *MemoryConsolidationPlugin) Run(ctx context.Context, g *graph.Graph) (interface{}, error) {
	threshold := p.STIThreshold
	if threshold == 0 {
		threshold = 500
	}

	consolidated := 0
	for _, a := range g.All() {
		av := a.AttentionValue()
		if av.STI < threshold {
			continue
		}
		av.LTI++
		a.SetAttentionValue(av)
		consolidated++
	}
	return MemoryConsolidationResult{AtomsConsolidated: consolidated}, nil
}
