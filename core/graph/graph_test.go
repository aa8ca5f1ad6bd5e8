package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencog-go/atomspace/core/atom"
)

func TestAddNodeDeduplication(t *testing.T) {
	g := New()

	a1, err := g.AddNode(atom.ConceptNode, "cat", nil)
	require.NoError(t, err)

	a2, err := g.AddNode(atom.ConceptNode, "cat", nil)
	require.NoError(t, err)

	assert.Equal(t, a1.ID, a2.ID)
	assert.Equal(t, 1, g.Size())
}

func TestAddNodeOverwritesTruthValueOnReAdd(t *testing.T) {
	g := New()
	_, err := g.AddNode(atom.ConceptNode, "cat", nil)
	require.NoError(t, err)

	tv := atom.TruthValue{Strength: 0.9, Confidence: 0.8}
	a2, err := g.AddNode(atom.ConceptNode, "cat", &tv)
	require.NoError(t, err)
	assert.Equal(t, tv, a2.TruthValue())
}

func TestAddLinkDeduplication(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)

	l1, err := g.AddLink(atom.ListLink, []string{a.ID, b.ID}, nil)
	require.NoError(t, err)
	sizeAfterFirst := g.Size()

	l2, err := g.AddLink(atom.ListLink, []string{a.ID, b.ID}, nil)
	require.NoError(t, err)

	assert.Equal(t, l1.ID, l2.ID)
	assert.Equal(t, sizeAfterFirst, g.Size())
	assert.Equal(t, 3, g.Size()) // S3
}

func TestAddLinkUnknownReferenceIsError(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	_, err := g.AddLink(atom.ListLink, []string{a.ID, "ghost"}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, g.Size())
}

func TestIncomingSetConsistency(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	l, err := g.AddLink(atom.ListLink, []string{a.ID, b.ID}, nil)
	require.NoError(t, err)

	assert.Contains(t, g.IncomingOf(a.ID), l.ID)
	assert.Contains(t, g.IncomingOf(b.ID), l.ID)

	require.True(t, g.Remove(l.ID))
	assert.NotContains(t, g.IncomingOf(a.ID), l.ID)
}

func TestRemoveNonExistent(t *testing.T) {
	g := New()
	assert.False(t, g.Remove("nope"))
	assert.Equal(t, 0, g.Size())
}

func TestRemovePrunesDanglingOutgoingReferences(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	c, _ := g.AddNode(atom.ConceptNode, "c", nil)
	l, err := g.AddLink(atom.ListLink, []string{a.ID, b.ID, c.ID}, nil)
	require.NoError(t, err)

	require.True(t, g.Remove(b.ID))

	survivor, ok := g.Get(l.ID)
	require.True(t, ok)
	assert.NotContains(t, survivor.Outgoing, b.ID)
	assert.Equal(t, []string{a.ID, c.ID}, survivor.Outgoing)
}

func TestFocusMembership(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)

	require.NoError(t, g.AddToFocus(a.ID))
	assert.True(t, g.InFocus(a.ID))
	assert.Len(t, g.Focus(), 1)

	g.RemoveFromFocus(a.ID)
	assert.False(t, g.InFocus(a.ID))
	assert.Empty(t, g.Focus())
}

func TestRemoveClearsFocus(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	require.NoError(t, g.AddToFocus(a.ID))

	require.True(t, g.Remove(a.ID))
	assert.Empty(t, g.Focus())
}

func TestQueryPattern(t *testing.T) {
	g := New()
	g.AddNode(atom.ConceptNode, "cat", nil)
	g.AddNode(atom.ConceptNode, "dog", nil)
	g.AddNode(atom.PredicateNode, "likes", nil)

	typ := atom.ConceptNode
	results := g.Query(Pattern{Type: &typ})
	assert.Len(t, results, 2)

	name := "dog"
	results = g.Query(Pattern{Type: &typ, Name: &name})
	require.Len(t, results, 1)
	assert.Equal(t, "dog", results[0].Name)
}

func TestStatistics(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	g.AddLink(atom.ListLink, []string{a.ID, b.ID}, nil)

	stats := g.Statistics()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.Links)
	assert.Equal(t, 2, stats.ByType[atom.ConceptNode])
}

func TestExportImportRoundTrip(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	tv := atom.TruthValue{Strength: 0.7, Confidence: 0.6}
	g.AddLink(atom.ListLink, []string{a.ID, b.ID}, &tv)

	snap := g.Export()
	assert.Equal(t, 3, snap.Size)

	restored := Import(snap)
	assert.Equal(t, g.Size(), restored.Size())

	restoredSnap := restored.Export()
	sortSnapshot(snap.Atoms)
	sortSnapshot(restoredSnap.Atoms)
	if diff := cmp.Diff(snap.Atoms, restoredSnap.Atoms); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestImportDropsUnknownOutgoingIDs(t *testing.T) {
	snap := Snapshot{Atoms: []ExportedAtom{
		{ID: "link1", Type: atom.ListLink, Outgoing: []string{"ghost"}},
	}}
	g := Import(snap)
	a, ok := g.Get("link1")
	require.True(t, ok)
	assert.Empty(t, a.Outgoing)
}

func TestFindUndirected(t *testing.T) {
	g := New()
	a, _ := g.AddNode(atom.ConceptNode, "a", nil)
	b, _ := g.AddNode(atom.ConceptNode, "b", nil)
	l, err := g.AddLink(atom.HebbianLink, []string{a.ID, b.ID}, nil)
	require.NoError(t, err)

	found, ok := g.FindUndirected(atom.HebbianLink, b.ID, a.ID)
	require.True(t, ok)
	assert.Equal(t, l.ID, found.ID)
}

func sortSnapshot(atoms []ExportedAtom) {
	for i := 1; i < len(atoms); i++ {
		for j := i; j > 0 && atoms[j-1].ID > atoms[j].ID; j-- {
			atoms[j-1], atoms[j] = atoms[j], atoms[j-1]
		}
	}
}

