// Package export serializes a consolidated knowledge graph into the
// interchange JSON document and into Graphviz DOT.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"kgraph/pkg/graph"
)

// Document is the JSON interchange shape for a consolidated graph.
// Edges lists the distinct relation labels occurring in Relations,
// sorted, so consumers can enumerate the vocabulary without a scan.
type Document struct {
	Entities  []graph.GraphNode `json:"entities"`
	Relations []graph.GraphEdge `json:"relations"`
	Edges     []string          `json:"edges"`
}

// Encode builds the interchange document for kg.
func Encode(kg *graph.KnowledgeGraph) Document {
	relations := kg.Edges()

	seen := map[string]bool{}
	labels := []string{}
	for _, e := range relations {
		if !seen[e.Relation] {
			seen[e.Relation] = true
			labels = append(labels, e.Relation)
		}
	}
	sort.Strings(labels)

	return Document{
		Entities:  kg.Nodes(),
		Relations: relations,
		Edges:     labels,
	}
}

// WriteJSON writes the interchange document for kg to w, indented.
func WriteJSON(w io.Writer, kg *graph.KnowledgeGraph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(kg)); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// SaveJSON writes the interchange document for kg to the file at path.
func SaveJSON(path string, kg *graph.KnowledgeGraph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteJSON(f, kg); err != nil {
		return err
	}
	return f.Close()
}

// WriteDOT writes kg to w as a Graphviz digraph. Edge labels carry the
// relation, with the multiplicity appended when a relation was stated
// more than once; inferred edges are drawn dashed.
func WriteDOT(w io.Writer, kg *graph.KnowledgeGraph) error {
	var b strings.Builder
	b.WriteString("digraph knowledge {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")

	for _, n := range kg.Nodes() {
		fmt.Fprintf(&b, "  %s [label=%s];\n", quote(n.Key), quote(n.Label))
	}
	for _, e := range kg.Edges() {
		label := e.Relation
		if e.Multiplicity > 1 {
			label = fmt.Sprintf("%s (x%d)", e.Relation, e.Multiplicity)
		}
		attrs := fmt.Sprintf("label=%s", quote(label))
		if e.Inferred {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", quote(e.Source), quote(e.Target), attrs)
	}
	b.WriteString("}\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write dot output: %w", err)
	}
	return nil
}

// SaveDOT writes kg as DOT to the file at path.
func SaveDOT(path string, kg *graph.KnowledgeGraph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteDOT(f, kg); err != nil {
		return err
	}
	return f.Close()
}

func quote(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
