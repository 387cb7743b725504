// Package render rasterizes a knowledge graph to an image via the
// embedded Graphviz layout engine.
package render

import (
	"context"
	"fmt"

	"kgraph/pkg/graph"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// PNG lays out kg and writes a PNG image to the file at path.
func PNG(ctx context.Context, kg *graph.KnowledgeGraph, path string) error {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize graphviz: %w", err)
	}
	defer gv.Close()

	g, err := gv.Graph()
	if err != nil {
		return fmt.Errorf("failed to create render graph: %w", err)
	}
	defer g.Close()

	g.SetRankDir(cgraph.LRRank)

	nodes := map[string]*cgraph.Node{}
	for _, n := range kg.Nodes() {
		gn, err := g.CreateNodeByName(n.Key)
		if err != nil {
			return fmt.Errorf("failed to create node %q: %w", n.Key, err)
		}
		gn.SetLabel(n.Label)
		gn.SetShape(cgraph.BoxShape)
		nodes[n.Key] = gn
	}

	for _, e := range kg.Edges() {
		ge, err := g.CreateEdgeByName(e.Relation, nodes[e.Source], nodes[e.Target])
		if err != nil {
			return fmt.Errorf("failed to create edge %q: %w", e.Relation, err)
		}
		label := e.Relation
		if e.Multiplicity > 1 {
			label = fmt.Sprintf("%s (x%d)", e.Relation, e.Multiplicity)
		}
		ge.SetLabel(label)
		if e.Inferred {
			ge.SetStyle(cgraph.DashedEdgeStyle)
		}
	}

	if err := gv.RenderFilename(ctx, g, graphviz.PNG, path); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}
