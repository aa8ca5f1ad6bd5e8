// Package graph implements the typed hypergraph knowledge store (spec §4.B):
// indexed storage of nodes and links, incoming sets, and the
// attentional-focus set. It is grounded on the teacher's AtomSpace in
// core/_opencog.disabled/atomspace.go — same coarse-grained sync.RWMutex
// over a handful of maps, same structural de-duplication idea — adapted to
// this spec's invariants (§3) and operation set (§4.B).
package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencog-go/atomspace/cogerr"
	"github.com/opencog-go/atomspace/core/atom"
)

// Graph is the indexed, mutex-guarded atom store. All structural mutations
// (add, remove) are total or a no-op: a failed AddLink leaves the graph
// exactly as it was (spec §7 policy).
type Graph struct {
	mu sync.RWMutex

	atoms map[string]*atom.Atom

	// structural de-duplication: key -> id
	byKey map[string]string

	// secondary indexes
	byType map[atom.Type]map[string]struct{}
	byName map[string]map[string]struct{}

	focusOrder []string
	focusSet   map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		atoms:    make(map[string]*atom.Atom),
		byKey:    make(map[string]string),
		byType:   make(map[atom.Type]map[string]struct{}),
		byName:   make(map[string]map[string]struct{}),
		focusSet: make(map[string]struct{}),
	}
}

func (g *Graph) indexAdd(a *atom.Atom) {
	set, ok := g.byType[a.Type]
	if !ok {
		set = make(map[string]struct{})
		g.byType[a.Type] = set
	}
	set[a.ID] = struct{}{}

	if !a.IsLink() && a.Name != "" {
		nset, ok := g.byName[a.Name]
		if !ok {
			nset = make(map[string]struct{})
			g.byName[a.Name] = nset
		}
		nset[a.ID] = struct{}{}
	}
}

func (g *Graph) indexRemove(a *atom.Atom) {
	if set, ok := g.byType[a.Type]; ok {
		delete(set, a.ID)
		if len(set) == 0 {
			delete(g.byType, a.Type)
		}
	}
	if !a.IsLink() && a.Name != "" {
		if nset, ok := g.byName[a.Name]; ok {
			delete(nset, a.ID)
			if len(nset) == 0 {
				delete(g.byName, a.Name)
			}
		}
	}
}

// AddNode returns the existing node of (typ, name) if one exists — updating
// its truth value when tv is supplied — otherwise creates it (spec
// invariant 1).
func (g *Graph) AddNode(typ atom.Type, name string, tv *atom.TruthValue) (*atom.Atom, error) {
	if !atom.Valid(typ) || atom.IsLink(typ) {
		return nil, cogerr.Invalidf("graph.AddNode", "not a node type: %s", typ)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := atom.NodeKey(typ, name)
	if id, ok := g.byKey[key]; ok {
		existing := g.atoms[id]
		if tv != nil {
			existing.SetTruthValue(*tv)
		}
		return existing, nil
	}

	value := atom.DefaultTruthValue()
	if tv != nil {
		value = *tv
	}
	id := fmt.Sprintf("atom_%s_%s", typ, uuid.NewString())
	a := atom.NewNode(id, typ, name, value)

	g.atoms[id] = a
	g.byKey[key] = id
	g.indexAdd(a)

	return a, nil
}

// AddLink returns the existing link of (typ, outgoing) if one exists —
// updating its truth value when tv is supplied — otherwise creates it,
// wiring the incoming sets of every referenced atom (spec invariants 1-3).
func (g *Graph) AddLink(typ atom.Type, outgoing []string, tv *atom.TruthValue) (*atom.Atom, error) {
	if !atom.Valid(typ) || atom.IsNode(typ) {
		return nil, cogerr.Invalidf("graph.AddLink", "not a link type: %s", typ)
	}
	if len(outgoing) == 0 {
		return nil, cogerr.Invalidf("graph.AddLink", "link must have non-empty outgoing set")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, ref := range outgoing {
		if _, ok := g.atoms[ref]; !ok {
			return nil, cogerr.NotFoundf("graph.AddLink", "unknown outgoing reference %q", ref)
		}
	}

	key := atom.LinkKey(typ, outgoing)
	if id, ok := g.byKey[key]; ok {
		existing := g.atoms[id]
		if tv != nil {
			existing.SetTruthValue(*tv)
		}
		return existing, nil
	}

	value := atom.DefaultTruthValue()
	if tv != nil {
		value = *tv
	}
	id := fmt.Sprintf("atom_%s_%s", typ, uuid.NewString())
	a := atom.NewLink(id, typ, outgoing, value)

	g.atoms[id] = a
	g.byKey[key] = id
	g.indexAdd(a)

	for _, ref := range outgoing {
		g.atoms[ref].AddIncoming(id)
	}

	return a, nil
}

// Remove deletes the atom with id, if it exists. It unwires the atom from
// the incoming sets of its outgoing references, removes it from focus, and
// prunes dangling references to it from the outgoing sequences of any
// surviving links (this spec's resolution of open question 3: dangling-id
// pruning rather than cascading removal — see DESIGN.md).
func (g *Graph) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeLocked(id)
}

func (g *Graph) removeLocked(id string) bool {
	a, ok := g.atoms[id]
	if !ok {
		return false
	}

	for _, ref := range a.Outgoing {
		if referenced, ok := g.atoms[ref]; ok {
			referenced.RemoveIncoming(id)
		}
	}

	for _, referrer := range a.Incoming() {
		if r, ok := g.atoms[referrer]; ok {
			oldKey := r.StructuralKey()
			r.Outgoing = pruneID(r.Outgoing, id)
			delete(g.byKey, oldKey)
			g.byKey[r.StructuralKey()] = r.ID
		}
	}

	g.indexRemove(a)
	delete(g.byKey, a.StructuralKey())
	delete(g.atoms, id)
	delete(g.focusSet, id)
	g.focusOrder = pruneID(g.focusOrder, id)

	return true
}

func pruneID(ids []string, target string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// Get retrieves an atom by id.
func (g *Graph) Get(id string) (*atom.Atom, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.atoms[id]
	return a, ok
}

// Has reports whether id is a live atom.
func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.atoms[id]
	return ok
}

// ByType returns all live atoms of the given type.
func (g *Graph) ByType(typ atom.Type) []*atom.Atom {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.byType[typ]
	out := make([]*atom.Atom, 0, len(set))
	for id := range set {
		out = append(out, g.atoms[id])
	}
	return out
}

// ByName returns all live nodes with the given name.
func (g *Graph) ByName(name string) []*atom.Atom {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.byName[name]
	out := make([]*atom.Atom, 0, len(set))
	for id := range set {
		out = append(out, g.atoms[id])
	}
	return out
}

// IncomingOf returns the ids of atoms referencing id.
func (g *Graph) IncomingOf(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.atoms[id]
	if !ok {
		return nil
	}
	return a.Incoming()
}

// All returns every live atom. Order is unspecified.
func (g *Graph) All() []*atom.Atom {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*atom.Atom, 0, len(g.atoms))
	for _, a := range g.atoms {
		out = append(out, a)
	}
	return out
}

// Size returns the number of live atoms.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.atoms)
}

// AddToFocus adds id to the attentional-focus set. The caller (typically
// ECAN) is responsible for the |focus| <= maxAF and STI >= minSTI
// invariants (spec invariant 4); the graph only guarantees focus stays a
// subset of live atoms.
func (g *Graph) AddToFocus(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.atoms[id]; !ok {
		return cogerr.NotFoundf("graph.AddToFocus", "unknown atom %q", id)
	}
	if _, already := g.focusSet[id]; !already {
		g.focusSet[id] = struct{}{}
		g.focusOrder = append(g.focusOrder, id)
	}
	return nil
}

// RemoveFromFocus removes id from the focus set, if present.
func (g *Graph) RemoveFromFocus(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.focusSet, id)
	g.focusOrder = pruneID(g.focusOrder, id)
}

// ClearFocus empties the focus set. Used by ECAN at the start of its
// focus-update phase.
func (g *Graph) ClearFocus() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.focusSet = make(map[string]struct{})
	g.focusOrder = nil
}

// Focus returns the atoms currently in the attentional-focus set, in
// insertion order.
func (g *Graph) Focus() []*atom.Atom {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*atom.Atom, 0, len(g.focusOrder))
	for _, id := range g.focusOrder {
		if a, ok := g.atoms[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// FocusSize returns the number of atoms currently in focus.
func (g *Graph) FocusSize() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.focusSet)
}

// InFocus reports whether id is currently in the focus set.
func (g *Graph) InFocus(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.focusSet[id]
	return ok
}

// Pattern is a conjunction of optional predicates used by Query. A nil
// field means "don't constrain on this field".
type Pattern struct {
	Type  *atom.Type
	Name  *string
	Arity *int
}

// Query returns every atom matching every supplied field of pattern. No
// variable binding happens at this layer (spec §4.B).
func (g *Graph) Query(p Pattern) []*atom.Atom {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*atom.Atom, 0)
	for _, a := range g.atoms {
		if p.Type != nil && a.Type != *p.Type {
			continue
		}
		if p.Name != nil && a.Name != *p.Name {
			continue
		}
		if p.Arity != nil && a.Arity() != *p.Arity {
			continue
		}
		out = append(out, a)
	}
	return out
}

// FindUndirected returns a link of type typ whose outgoing set is exactly
// {a, b} in either order — used by ECAN to locate an existing unordered
// hebbian link (spec §4.C).
func (g *Graph) FindUndirected(typ atom.Type, a, b string) (*atom.Atom, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, candidate := range []string{atom.LinkKey(typ, []string{a, b}), atom.LinkKey(typ, []string{b, a})} {
		if id, ok := g.byKey[candidate]; ok {
			return g.atoms[id], true
		}
	}
	return nil, false
}

// Find returns the link of type typ whose outgoing sequence is exactly
// outgoing, in order — used by PLN to detect whether an inference's
// conclusion already exists before overwriting it (spec's resolution of
// open question 1: later inferences overwrite rather than merge).
func (g *Graph) Find(typ atom.Type, outgoing []string) (*atom.Atom, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.byKey[atom.LinkKey(typ, outgoing)]
	if !ok {
		return nil, false
	}
	return g.atoms[id], true
}

// Stats summarizes the graph's current contents (spec §4.B "statistics()").
type Stats struct {
	Total      int
	Nodes      int
	Links      int
	ByType     map[atom.Type]int
	FocusSize  int
}

// Statistics computes totals, node/link counts, per-type distribution, and
// focus size.
func (g *Graph) Statistics() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{ByType: make(map[atom.Type]int, len(g.byType))}
	for typ, set := range g.byType {
		s.ByType[typ] = len(set)
		s.Total += len(set)
		if atom.IsLink(typ) {
			s.Links += len(set)
		} else {
			s.Nodes += len(set)
		}
	}
	s.FocusSize = len(g.focusSet)
	return s
}

// SortByDescendingSTI returns atoms sorted by STI descending, ties broken
// by ID for determinism. Exposed for callers that need a full ranking
// instead of ECAN's bounded top-K selection.
func SortByDescendingSTI(atoms []*atom.Atom) []*atom.Atom {
	out := append([]*atom.Atom(nil), atoms...)
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].AttentionValue().STI, out[j].AttentionValue().STI
		if si != sj {
			return si > sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExportedAtom is the wire form of an atom (spec §6 "Serialisation").
type ExportedAtom struct {
	ID        string                 `json:"id"`
	Type      atom.Type              `json:"type"`
	Name      string                 `json:"name,omitempty"`
	Outgoing  []string               `json:"outgoing,omitempty"`
	TV        ExportedTruthValue     `json:"tv"`
	AV        ExportedAttentionValue `json:"av"`
	Timestamp time.Time              `json:"timestamp"`
}

type ExportedTruthValue struct {
	Strength   float64 `json:"strength"`
	Confidence float64 `json:"confidence"`
}

type ExportedAttentionValue struct {
	STI  int  `json:"sti"`
	LTI  int  `json:"lti"`
	VLTI bool `json:"vlti"`
}

// Snapshot is the wire form of an entire graph export.
type Snapshot struct {
	Atoms     []ExportedAtom `json:"atoms"`
	Size      int            `json:"size"`
	Timestamp time.Time      `json:"timestamp"`
}

// Export serializes every live atom (spec §6).
func (g *Graph) Export() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{Atoms: make([]ExportedAtom, 0, len(g.atoms)), Timestamp: time.Now()}
	for _, a := range g.atoms {
		tv := a.TruthValue()
		av := a.AttentionValue()
		snap.Atoms = append(snap.Atoms, ExportedAtom{
			ID:        a.ID,
			Type:      a.Type,
			Name:      a.Name,
			Outgoing:  append([]string(nil), a.Outgoing...),
			TV:        ExportedTruthValue{Strength: tv.Strength, Confidence: tv.Confidence},
			AV:        ExportedAttentionValue{STI: av.STI, LTI: av.LTI, VLTI: av.VLTI},
			Timestamp: a.CreatedAt(),
		})
	}
	snap.Size = len(snap.Atoms)
	return snap
}

// Import reconstructs a graph from snap in two passes: first every atom is
// created by id, with outgoing references that don't resolve to an id in
// snap dropped silently (spec §6); then the incoming sets are wired from the
// surviving outgoing references. Import returns a new graph; it does not
// modify any existing one.
func Import(snap Snapshot) *Graph {
	g := New()

	known := make(map[string]bool, len(snap.Atoms))
	for _, ea := range snap.Atoms {
		known[ea.ID] = true
	}

	for _, ea := range snap.Atoms {
		outgoing := make([]string, 0, len(ea.Outgoing))
		for _, ref := range ea.Outgoing {
			if known[ref] {
				outgoing = append(outgoing, ref)
			}
		}

		tv := atom.TruthValue{Strength: ea.TV.Strength, Confidence: ea.TV.Confidence}
		var a *atom.Atom
		if len(outgoing) > 0 || atom.IsLink(ea.Type) {
			a = atom.NewLink(ea.ID, ea.Type, outgoing, tv)
		} else {
			a = atom.NewNode(ea.ID, ea.Type, ea.Name, tv)
		}
		a.SetAttentionValue(atom.AttentionValue{STI: ea.AV.STI, LTI: ea.AV.LTI, VLTI: ea.AV.VLTI})
		a.SetCreatedAt(ea.Timestamp)

		g.atoms[a.ID] = a
		g.byKey[a.StructuralKey()] = a.ID
		g.indexAdd(a)
	}

	for _, a := range g.atoms {
		for _, ref := range a.Outgoing {
			if referenced, ok := g.atoms[ref]; ok {
				referenced.AddIncoming(a.ID)
			}
		}
	}

	return g
}
