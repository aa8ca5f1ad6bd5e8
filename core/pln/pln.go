package pln

import (
	"log"

	"github.com/opencog-go/atomspace/cogerr"
	"github.com/opencog-go/atomspace/core/atom"
	"github.com/opencog-go/atomspace/core/graph"
)

func notFoundErr(op, id string) error {
	return cogerr.NotFoundf(op, "atom %q not found", id)
}

func invalidChainErr(op, id string) error {
	return cogerr.Invalidf(op, "link %q is not a valid implication from the given fact", id)
}

// chainTypes are the binary relation links PLN chains inference across.
// Both InheritanceLink and ImplicationLink carry the same (A,B) shape, so
// they're treated identically by the rule formulas.
var chainTypes = []atom.Type{atom.InheritanceLink, atom.ImplicationLink}

// Inference is one conclusion PLN derived: the rule applied, its two
// premises, and the resulting atom.
type Inference struct {
	Rule     RuleName
	Premise1 string
	Premise2 string
	Result   *atom.Atom
}

// Result is the outcome of a call to Infer.
type Result struct {
	Inferences      []Inference
	Iterations      int
	TotalInferences int
}

// Engine runs PLN inference over a graph.
type Engine struct {
	g   *graph.Graph
	cfg Config
}

// New creates a PLN engine over g with the given tunables.
func New(g *graph.Graph, cfg Config) *Engine {
	return &Engine{g: g, cfg: cfg}
}

// Config returns the engine's active tunables.
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) chainLinks() []*atom.Atom {
	var out []*atom.Atom
	for _, typ := range chainTypes {
		out = append(out, e.g.ByType(typ)...)
	}
	return out
}

// Infer runs up to maxIterations rounds of deduction/induction/abduction
// chaining over every ordered pair of binary relation links in the graph
// (this spec's resolution of open question 2: ALL ordered pairs are
// enumerated, not just j>i, so every pair of links is tried in both
// orders). Iteration stops early after a round that derives no new or
// changed conclusion.
// Conclusions overwrite any existing link of the same (type, outgoing) per
// this spec's resolution of open question 1.
func (e *Engine) Infer(maxIterations int) (*Result, error) {
	result := &Result{}

	for iter := 0; iter < maxIterations; iter++ {
		links := e.chainLinks()
		newThisRound := 0

		for _, l1 := range links {
			for _, l2 := range links {
				if l1.ID == l2.ID {
					continue
				}
				if inf, ok := e.tryChain(l1, l2); ok {
					result.Inferences = append(result.Inferences, inf)
					newThisRound++
				}
			}
		}

		result.Iterations = iter + 1
		result.TotalInferences += newThisRound
		if newThisRound == 0 {
			break
		}
	}

	log.Printf("pln: inference complete after %d iterations, %d conclusions", result.Iterations, result.TotalInferences)
	return result, nil
}

// tryChain attempts every applicable rule for the ordered pair (l1, l2),
// returning the first that fires. At most one rule applies to any given
// pair of binary links, since deduction/induction/abduction key on
// disjoint sharing patterns (middle term, first term, last term).
func (e *Engine) tryChain(l1, l2 *atom.Atom) (Inference, bool) {
	a, b := l1.Outgoing[0], l1.Outgoing[len(l1.Outgoing)-1]
	c, d := l2.Outgoing[0], l2.Outgoing[len(l2.Outgoing)-1]

	switch {
	case b == c && a != d: // A->B, B->D: deduction gives A->D
		return e.conclude(RuleDeduction, l1, l2, l1.Type, a, d, Deduction(l1.TruthValue(), l2.TruthValue()))
	case a == c && b != d: // A->B, A->D: induction gives D->B
		return e.conclude(RuleInduction, l1, l2, l1.Type, d, b, Induction(l1.TruthValue(), l2.TruthValue()))
	case b == d && a != c: // A->B, C->B: abduction gives A->C
		return e.conclude(RuleAbduction, l1, l2, l1.Type, a, c, Abduction(l1.TruthValue(), l2.TruthValue()))
	}
	return Inference{}, false
}

// conclude writes a rule's conclusion edge, but only if its truth value
// clears both of PLN's acceptance tunables (spec §4.D: "if the resulting
// truth value satisfies c >= minConfidence and s >= strengthThreshold, add
// the conclusion edge").
func (e *Engine) conclude(rule RuleName, l1, l2 *atom.Atom, typ atom.Type, from, to string, tv atom.TruthValue) (Inference, bool) {
	if from == to {
		return Inference{}, false
	}
	if tv.Confidence < e.cfg.MinConfidence || tv.Strength < e.cfg.StrengthThreshold {
		return Inference{}, false
	}
	if existing, ok := e.g.Find(typ, []string{from, to}); ok && existing.TruthValue() == tv {
		return Inference{}, false // already derived, nothing new
	}

	link, err := e.g.AddLink(typ, []string{from, to}, &tv)
	if err != nil {
		return Inference{}, false
	}
	return Inference{Rule: rule, Premise1: l1.ID, Premise2: l2.ID, Result: link}, true
}

// ModusPonensOn applies the modus ponens rule using factID's own truth
// value as the premise and implicationID (a link from factID) as the
// implication, writing the conclusion's truth value onto the link's
// target atom: directly if the target's current value is vacuous, otherwise
// via revision with its current value.
func (e *Engine) ModusPonensOn(factID, implicationID string) error {
	fact, ok := e.g.Get(factID)
	if !ok {
		return notFoundErr("pln.ModusPonensOn", factID)
	}
	impl, ok := e.g.Get(implicationID)
	if !ok {
		return notFoundErr("pln.ModusPonensOn", implicationID)
	}
	if len(impl.Outgoing) < 2 || impl.Outgoing[0] != factID {
		return invalidChainErr("pln.ModusPonensOn", implicationID)
	}

	target, ok := e.g.Get(impl.Outgoing[len(impl.Outgoing)-1])
	if !ok {
		return notFoundErr("pln.ModusPonensOn", impl.Outgoing[len(impl.Outgoing)-1])
	}

	concluded := ModusPonens(fact.TruthValue(), impl.TruthValue())
	if target.TruthValue().Vacuous() {
		target.SetTruthValue(concluded)
	} else {
		target.SetTruthValue(RevisionWithFactor(target.TruthValue(), concluded, e.cfg.RevisionInflationFactor))
	}
	return nil
}
