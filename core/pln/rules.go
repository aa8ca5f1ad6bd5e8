// Package pln implements the probabilistic inference engine (spec §4.D):
// deduction, induction, abduction, modus ponens, and revision formulas over
// (strength, confidence) truth values, chained across the graph's
// inheritance/implication edges. It is grounded on the teacher's
// PLNEngine/InferenceEngine in
// core/_opencog.disabled/hypercyclic_reactor.go — same rule-table-of-
// formulas shape (Formula func([]*TruthValue) *TruthValue), same
// deduction/induction/abduction naming.
package pln

import "github.com/opencog-go/atomspace/core/atom"

// Formula combines two premise truth values into a conclusion truth value.
type Formula func(tv1, tv2 atom.TruthValue) atom.TruthValue

// Config holds PLN's tunables (spec §4.D), the same shape as ecan.Config.
type Config struct {
	MinConfidence     float64
	StrengthThreshold float64
	// MaxInferenceDepth is reserved: the spec marks it reserved and no
	// rule currently needs chain-depth bookkeeping to terminate.
	MaxInferenceDepth       int
	RevisionInflationFactor float64
	DefaultStrength         float64
	DefaultConfidence       float64
}

// DefaultConfig returns spec §9's default PLN tunables.
func DefaultConfig() Config {
	return Config{
		MinConfidence:           0.01,
		StrengthThreshold:       0.1,
		MaxInferenceDepth:       0,
		RevisionInflationFactor: 1.2,
		DefaultStrength:         0.5,
		DefaultConfidence:       0.0,
	}
}

// Deduction computes sAC from sAB, sBC under the independence assumption:
// AB and BC chain through a shared middle term.
func Deduction(ab, bc atom.TruthValue) atom.TruthValue {
	s := ab.Strength * bc.Strength
	c := ab.Confidence * bc.Confidence * (1 - ab.Strength + ab.Strength*bc.Strength)
	return atom.TruthValue{Strength: s, Confidence: c}.Clamp()
}

// Induction infers CB from AB and AC, which share their first term (A).
func Induction(ab, ac atom.TruthValue) atom.TruthValue {
	s := ac.Strength
	c := ab.Confidence * ac.Confidence * ab.Strength
	return atom.TruthValue{Strength: s, Confidence: c}.Clamp()
}

// Abduction infers AC from AB and CB, which share their second term (B).
func Abduction(ab, cb atom.TruthValue) atom.TruthValue {
	s := ab.Strength * cb.Strength
	c := ab.Confidence * cb.Confidence
	return atom.TruthValue{Strength: s, Confidence: c}.Clamp()
}

// ModusPonens infers B's truth value from A's truth value and A->B's truth
// value.
func ModusPonens(a, aImpliesB atom.TruthValue) atom.TruthValue {
	s := a.Strength * aImpliesB.Strength
	c := a.Confidence * aImpliesB.Confidence
	return atom.TruthValue{Strength: s, Confidence: c}.Clamp()
}

// RevisionWithFactor merges two independent estimates of the same statement's truth
// value, weighting by confidence and discounting for their overlap, then
// inflates the merged confidence by inflationFactor (clamped to 1) since
// two independent estimates of the same statement are worth more together
// than either alone (spec §4.D, `revisionInflationFactor`).
func RevisionWithFactor(tv1, tv2 atom.TruthValue, inflationFactor float64) atom.TruthValue {
	c1, c2 := tv1.Confidence, tv2.Confidence
	denom := c1 + c2 - c1*c2
	if denom <= 0 {
		// Neither estimate carries evidence; split the difference.
		return atom.TruthValue{Strength: (tv1.Strength + tv2.Strength) / 2, Confidence: 0}.Clamp()
	}
	s := (tv1.Strength*c1 + tv2.Strength*c2 - tv1.Strength*tv2.Strength*c1*c2) / denom
	c := denom * inflationFactor
	if c > 1 {
		c = 1
	}
	return atom.TruthValue{Strength: s, Confidence: c}.Clamp()
}

// Revision applies RevisionWithFactor using the default revisionInflationFactor.
func Revision(tv1, tv2 atom.TruthValue) atom.TruthValue {
	return RevisionWithFactor(tv1, tv2, DefaultConfig().RevisionInflationFactor)
}

// RuleName identifies one of the five PLN formulas by name.
type RuleName string

const (
	RuleDeduction   RuleName = "deduction"
	RuleInduction   RuleName = "induction"
	RuleAbduction   RuleName = "abduction"
	RuleModusPonens RuleName = "modus-ponens"
	RuleRevision    RuleName = "revision"
)

// rules is the name -> formula table, mirroring the teacher's
// map[string]Formula rule registries.
var rules = map[RuleName]Formula{
	RuleDeduction:   Deduction,
	RuleInduction:   Induction,
	RuleAbduction:   Abduction,
	RuleModusPonens: ModusPonens,
	RuleRevision:    Revision,
}
