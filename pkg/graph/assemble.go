package graph

import (
	"fmt"
	"sort"
)

// GraphNode is one normalized entity materialized as a vertex. Label is
// the display form chosen from the observed aliases; Provenance lists the
// chunks the entity appeared in.
type GraphNode struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Aliases    []string `json:"aliases"`
	Provenance []int    `json:"provenance"`
}

// GraphEdge is a directed relation between two node keys. Its identity is
// (Source, Target, Relation); refolding the same identity increments
// Multiplicity and unions Provenance instead of duplicating the edge.
// Inferred edges come from refinement, carry no provenance, and are never
// counted as extracted facts.
type GraphEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relation     string `json:"relation"`
	Multiplicity int    `json:"multiplicity"`
	Provenance   []int  `json:"provenance"`
	Inferred     bool   `json:"inferred,omitempty"`
}

// KnowledgeGraph is the read-only consolidated result of a run. Node and
// edge slices are sorted deterministically, so two graphs assembled from
// the same fact multiset compare equal with reflect.DeepEqual regardless
// of fold order.
type KnowledgeGraph struct {
	nodes []GraphNode
	edges []GraphEdge
}

// Nodes returns the graph vertices sorted by canonical key.
func (g *KnowledgeGraph) Nodes() []GraphNode {
	return g.nodes
}

// Edges returns the directed edges sorted by (source, target, relation).
func (g *KnowledgeGraph) Edges() []GraphEdge {
	return g.edges
}

// Node returns the node with the given canonical key, if present.
func (g *KnowledgeGraph) Node(key string) (GraphNode, bool) {
	i := sort.Search(len(g.nodes), func(i int) bool { return g.nodes[i].Key >= key })
	if i < len(g.nodes) && g.nodes[i].Key == key {
		return g.nodes[i], true
	}
	return GraphNode{}, false
}

type aliasStat struct {
	count    int
	minChunk int
}

type nodeState struct {
	aliases map[string]*aliasStat
	chunks  map[int]struct{}
}

type edgeKey struct {
	source   string
	target   string
	relation string
}

type edgeState struct {
	multiplicity int
	chunks       map[int]struct{}
	inferred     bool
}

// Assembler folds normalized facts from all chunks into one graph. It is
// the single owner of the in-progress graph and is not safe for
// concurrent use; callers serialize Add through a mutex or a dedicated
// folding goroutine.
type Assembler struct {
	dropSelfLoops bool

	nodes map[string]*nodeState
	edges map[edgeKey]*edgeState
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithoutSelfLoops drops facts whose subject and object normalize to the
// same key. Self-loops are retained by default.
func WithoutSelfLoops() AssemblerOption {
	return func(a *Assembler) {
		a.dropSelfLoops = true
	}
}

// NewAssembler creates an empty Assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		nodes: make(map[string]*nodeState),
		edges: make(map[edgeKey]*edgeState),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Assembler) touchNode(key, surface string, chunk int) {
	n, ok := a.nodes[key]
	if !ok {
		n = &nodeState{
			aliases: make(map[string]*aliasStat),
			chunks:  make(map[int]struct{}),
		}
		a.nodes[key] = n
	}

	s, ok := n.aliases[surface]
	if !ok {
		s = &aliasStat{minChunk: chunk}
		n.aliases[surface] = s
	}
	s.count++
	if chunk < s.minChunk {
		s.minChunk = chunk
	}
	n.chunks[chunk] = struct{}{}
}

// Add folds one fact into the graph. Folding is commutative and
// associative over the fact multiset: any feed order produces an
// identical materialized graph.
func (a *Assembler) Add(f Fact) error {
	subjectKey := NormalizeEntity(f.Subject)
	objectKey := NormalizeEntity(f.Object)
	if subjectKey == "" || objectKey == "" {
		return fmt.Errorf("%w: subject=%q object=%q", ErrNormalization, f.Subject, f.Object)
	}

	a.touchNode(subjectKey, f.Subject, f.Chunk)
	a.touchNode(objectKey, f.Object, f.Chunk)

	if subjectKey == objectKey && a.dropSelfLoops {
		return nil
	}

	ek := edgeKey{source: subjectKey, target: objectKey, relation: f.Relation}
	e, ok := a.edges[ek]
	if !ok {
		e = &edgeState{chunks: make(map[int]struct{})}
		a.edges[ek] = e
	}
	e.multiplicity++
	e.chunks[f.Chunk] = struct{}{}

	return nil
}

// AddInferred records a model-suggested relation between entities that
// are already part of the graph. It reports false without mutating
// anything when either endpoint is unknown or the edge already exists.
func (a *Assembler) AddInferred(subject, relation, object string) bool {
	subjectKey := NormalizeEntity(subject)
	objectKey := NormalizeEntity(object)
	if relation == "" {
		return false
	}
	if _, ok := a.nodes[subjectKey]; !ok {
		return false
	}
	if _, ok := a.nodes[objectKey]; !ok {
		return false
	}
	if subjectKey == objectKey && a.dropSelfLoops {
		return false
	}

	ek := edgeKey{source: subjectKey, target: objectKey, relation: relation}
	if _, ok := a.edges[ek]; ok {
		return false
	}
	a.edges[ek] = &edgeState{
		multiplicity: 1,
		chunks:       make(map[int]struct{}),
		inferred:     true,
	}
	return true
}

// Fold merges the complete state of another assembler into this one:
// alias counts are summed, chunk sets unioned, edge multiplicities added.
// The other assembler is left untouched. Chunk indices are assumed to be
// disjoint or intentionally shared between the two.
func (a *Assembler) Fold(other *Assembler) {
	for key, on := range other.nodes {
		n, ok := a.nodes[key]
		if !ok {
			n = &nodeState{
				aliases: make(map[string]*aliasStat),
				chunks:  make(map[int]struct{}),
			}
			a.nodes[key] = n
		}
		for alias, os := range on.aliases {
			s, ok := n.aliases[alias]
			if !ok {
				s = &aliasStat{minChunk: os.minChunk}
				n.aliases[alias] = s
			}
			s.count += os.count
			if os.minChunk < s.minChunk {
				s.minChunk = os.minChunk
			}
		}
		for c := range on.chunks {
			n.chunks[c] = struct{}{}
		}
	}

	for ek, oe := range other.edges {
		e, ok := a.edges[ek]
		if !ok {
			e = &edgeState{chunks: make(map[int]struct{}), inferred: oe.inferred}
			a.edges[ek] = e
		}
		e.multiplicity += oe.multiplicity
		for c := range oe.chunks {
			e.chunks[c] = struct{}{}
		}
		// An extracted observation outranks an inferred one.
		if !oe.inferred {
			e.inferred = false
		}
	}
}

// displayLabel picks the canonical display form for a node: the most
// frequent alias, ties broken by the lowest chunk index it was first seen
// in, then lexicographically. The tie-break depends only on the fact
// multiset, which keeps materialization order-insensitive.
func displayLabel(n *nodeState) string {
	var best string
	var bestStat *aliasStat
	for alias, stat := range n.aliases {
		if bestStat == nil {
			best, bestStat = alias, stat
			continue
		}
		switch {
		case stat.count != bestStat.count:
			if stat.count > bestStat.count {
				best, bestStat = alias, stat
			}
		case stat.minChunk != bestStat.minChunk:
			if stat.minChunk < bestStat.minChunk {
				best, bestStat = alias, stat
			}
		case alias < best:
			best, bestStat = alias, stat
		}
	}
	return best
}

func sortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Graph materializes the current state as a read-only KnowledgeGraph.
// The assembler can keep folding afterwards; the returned graph is a
// deep snapshot.
func (a *Assembler) Graph() *KnowledgeGraph {
	nodes := make([]GraphNode, 0, len(a.nodes))
	for key, n := range a.nodes {
		aliases := make([]string, 0, len(n.aliases))
		for alias := range n.aliases {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)

		nodes = append(nodes, GraphNode{
			Key:        key,
			Label:      displayLabel(n),
			Aliases:    aliases,
			Provenance: sortedInts(n.chunks),
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })

	edges := make([]GraphEdge, 0, len(a.edges))
	for ek, e := range a.edges {
		edges = append(edges, GraphEdge{
			Source:       ek.source,
			Target:       ek.target,
			Relation:     ek.relation,
			Multiplicity: e.multiplicity,
			Provenance:   sortedInts(e.chunks),
			Inferred:     e.inferred,
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Relation < b.Relation
	})

	return &KnowledgeGraph{nodes: nodes, edges: edges}
}
