package ecan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencog-go/atomspace/core/atom"
	"github.com/opencog-go/atomspace/core/graph"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAF = 2
	return cfg
}

func TestStimulateRaisesSTIAndDrainsPool(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	e := New(g, DefaultConfig())

	before := e.Statistics().STIPool
	require.NoError(t, e.Stimulate(a.ID, 50))

	assert.Equal(t, 50, a.AttentionValue().STI)
	assert.Equal(t, before-50, e.Statistics().STIPool)
}

func TestStimulateClampsAtMaxSTI(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	cfg := DefaultConfig()
	e := New(g, cfg)

	require.NoError(t, e.Stimulate(a.ID, cfg.MaxSTI+500))
	assert.Equal(t, cfg.MaxSTI, a.AttentionValue().STI)
}

func TestStimulateUnknownAtomIsError(t *testing.T) {
	g := graph.New()
	e := New(g, DefaultConfig())
	err := e.Stimulate("ghost", 10)
	assert.Error(t, err)
}

func TestFocusUpdateCapsAtMaxAF(t *testing.T) {
	g := graph.New()
	e := New(g, testConfig()) // MaxAF=2

	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	c, _ := g.AddNode(atom.ConceptNode, "c", nil)
	e.Stimulate(a.ID, 300)
	e.Stimulate(b.ID, 200)
	e.Stimulate(c.ID, 100)

	n := e.updateFocus()
	assert.Equal(t, 2, n)
	assert.True(t, g.InFocus(a.ID))
	assert.True(t, g.InFocus(b.ID))
	assert.False(t, g.InFocus(c.ID))
}

func TestRentDeductsFromFocusMembersOnly(t *testing.T) {
	g := graph.New()
	e := New(g, DefaultConfig())

	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	e.Stimulate(a.ID, 100)
	e.Stimulate(b.ID, 100)
	require.NoError(t, g.AddToFocus(a.ID))

	e.rent()

	assert.Equal(t, 99, a.AttentionValue().STI)
	assert.Equal(t, 100, b.AttentionValue().STI)
}

func TestDecayOnlyAffectsPositiveSTI(t *testing.T) {
	g := graph.New()
	cfg := DefaultConfig()
	cfg.DecayRate = 0.5
	e := New(g, cfg)

	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	e.Stimulate(a.ID, 100)
	e.Stimulate(b.ID, -50)

	e.decay()

	assert.Equal(t, 50, a.AttentionValue().STI)
	assert.Equal(t, -50, b.AttentionValue().STI)
}

func TestHebbianCreatesLinkOnFirstCall(t *testing.T) {
	g := graph.New()
	e := New(g, DefaultConfig())
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)

	require.NoError(t, e.Hebbian(a.ID, b.ID))

	link, ok := g.FindUndirected(atom.HebbianLink, a.ID, b.ID)
	require.True(t, ok)
	assert.Greater(t, link.TruthValue().Strength, 0.5)
}

func TestHebbianReusesExistingLinkRegardlessOfOrder(t *testing.T) {
	g := graph.New()
	e := New(g, DefaultConfig())
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)

	require.NoError(t, e.Hebbian(a.ID, b.ID))
	sizeAfterFirst := g.Size()

	require.NoError(t, e.Hebbian(b.ID, a.ID))
	assert.Equal(t, sizeAfterFirst, g.Size())
}

func TestHebbianStrengthensTowardOne(t *testing.T) {
	g := graph.New()
	cfg := DefaultConfig()
	cfg.HebbianLearningRate = 0.5
	e := New(g, cfg)
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)

	require.NoError(t, e.Hebbian(a.ID, b.ID))
	link, _ := g.FindUndirected(atom.HebbianLink, a.ID, b.ID)
	first := link.TruthValue().Strength

	require.NoError(t, e.Hebbian(a.ID, b.ID))
	second := link.TruthValue().Strength

	assert.Greater(t, second, first)
	assert.LessOrEqual(t, second, 1.0)
}

func TestHebbianUnknownAtomIsError(t *testing.T) {
	g := graph.New()
	e := New(g, DefaultConfig())
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	assert.Error(t, e.Hebbian(a.ID, "ghost"))
}

func TestCycleRunsAllPhasesWithoutPanicking(t *testing.T) {
	g := graph.New()
	e := New(g, DefaultConfig())

	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	g.AddLink(atom.ListLink, []string{a.ID, b.ID}, nil)
	e.Stimulate(a.ID, 500)

	for i := 0; i < 5; i++ {
		e.Cycle()
	}

	stats := e.Statistics()
	assert.Equal(t, 5, stats.CyclesRun)
}

func TestStatisticsTracksAverageFocusSize(t *testing.T) {
	g := graph.New()
	e := New(g, testConfig())
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	e.Stimulate(a.ID, 500)

	e.Cycle()
	e.Cycle()

	stats := e.Statistics()
	assert.Equal(t, 2, stats.CyclesRun)
	assert.GreaterOrEqual(t, stats.AverageFocusSize, 0.0)
}
