package graph

import (
	"errors"
	"reflect"
	"testing"
)

func mustAdd(t *testing.T, a *Assembler, facts []Fact) {
	t.Helper()
	for _, f := range facts {
		if err := a.Add(f); err != nil {
			t.Fatalf("Add(%+v) error = %v", f, err)
		}
	}
}

func TestAssemblerMergesAcrossChunks(t *testing.T) {
	a := NewAssembler()
	mustAdd(t, a, []Fact{
		{Subject: "Paris", Relation: "is capital of", Object: "France", Chunk: 0},
		{Subject: `"paris"`, Relation: "is capital of", Object: "FRANCE", Chunk: 3},
		{Subject: "Seine", Relation: "flows through", Object: "Paris", Chunk: 1},
	})

	kg := a.Graph()

	if len(kg.Nodes()) != 3 {
		t.Fatalf("got %d nodes, want 3", len(kg.Nodes()))
	}
	if len(kg.Edges()) != 2 {
		t.Fatalf("got %d edges, want 2", len(kg.Edges()))
	}

	paris, ok := kg.Node("paris")
	if !ok {
		t.Fatal("node paris missing")
	}
	if paris.Label != "Paris" {
		t.Errorf("paris label = %q, want %q", paris.Label, "Paris")
	}
	if want := []string{"Paris", `"paris"`}; len(paris.Aliases) != 2 {
		t.Errorf("paris aliases = %v, want the two of %v", paris.Aliases, want)
	}
	if want := []int{0, 1, 3}; !reflect.DeepEqual(paris.Provenance, want) {
		t.Errorf("paris provenance = %v, want %v", paris.Provenance, want)
	}

	capital := kg.Edges()[0]
	if capital.Source != "paris" || capital.Target != "france" {
		t.Fatalf("unexpected first edge %+v", capital)
	}
	if capital.Multiplicity != 2 {
		t.Errorf("multiplicity = %d, want 2", capital.Multiplicity)
	}
	if want := []int{0, 3}; !reflect.DeepEqual(capital.Provenance, want) {
		t.Errorf("edge provenance = %v, want %v", capital.Provenance, want)
	}
}

func TestAssemblerOrderInsensitive(t *testing.T) {
	facts := []Fact{
		{Subject: "Ada", Relation: "born in", Object: "London", Chunk: 0},
		{Subject: "ada", Relation: "wrote", Object: "Notes", Chunk: 1},
		{Subject: "ADA", Relation: "born in", Object: "london", Chunk: 2},
		{Subject: "Babbage", Relation: "designed", Object: "Analytical Engine", Chunk: 1},
		{Subject: "Ada", Relation: "worked with", Object: "Babbage", Chunk: 2},
	}

	permutations := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
	}

	var graphs []*KnowledgeGraph
	for _, perm := range permutations {
		a := NewAssembler()
		for _, i := range perm {
			if err := a.Add(facts[i]); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
		}
		graphs = append(graphs, a.Graph())
	}

	for i := 1; i < len(graphs); i++ {
		if !reflect.DeepEqual(graphs[0], graphs[i]) {
			t.Errorf("permutation %d produced a different graph", i)
		}
	}
}

func TestAssemblerDisplayLabel(t *testing.T) {
	t.Run("most frequent alias wins", func(t *testing.T) {
		a := NewAssembler()
		mustAdd(t, a, []Fact{
			{Subject: "USA", Relation: "borders", Object: "Canada", Chunk: 0},
			{Subject: "United States", Relation: "borders", Object: "Mexico", Chunk: 1},
			{Subject: "usa", Relation: "contains", Object: "Texas", Chunk: 2},
			{Subject: "usa", Relation: "contains", Object: "Ohio", Chunk: 3},
		})

		n, ok := a.Graph().Node("usa")
		if !ok {
			t.Fatal("node usa missing")
		}
		if n.Label != "usa" {
			t.Errorf("label = %q, want %q", n.Label, "usa")
		}
	})

	t.Run("frequency tie falls back to earliest chunk", func(t *testing.T) {
		a := NewAssembler()
		mustAdd(t, a, []Fact{
			{Subject: "UK", Relation: "contains", Object: "Scotland", Chunk: 5},
			{Subject: "United Kingdom", Relation: "contains", Object: "Wales", Chunk: 1},
		})

		n, ok := a.Graph().Node("uk")
		if !ok {
			t.Fatal("node uk missing")
		}
		if n.Label != "United Kingdom" {
			t.Errorf("label = %q, want %q", n.Label, "United Kingdom")
		}
	})
}

func TestAssemblerSelfLoops(t *testing.T) {
	loop := Fact{Subject: "Ouroboros", Relation: "eats", Object: "ouroboros", Chunk: 0}

	t.Run("kept by default", func(t *testing.T) {
		a := NewAssembler()
		mustAdd(t, a, []Fact{loop})

		kg := a.Graph()
		if len(kg.Nodes()) != 1 || len(kg.Edges()) != 1 {
			t.Errorf("got %d nodes and %d edges, want 1 and 1", len(kg.Nodes()), len(kg.Edges()))
		}
	})

	t.Run("dropped when configured", func(t *testing.T) {
		a := NewAssembler(WithoutSelfLoops())
		mustAdd(t, a, []Fact{loop})

		kg := a.Graph()
		if len(kg.Edges()) != 0 {
			t.Errorf("got %d edges, want 0", len(kg.Edges()))
		}
		// The entity itself still counts as observed.
		if len(kg.Nodes()) != 1 {
			t.Errorf("got %d nodes, want 1", len(kg.Nodes()))
		}
	})
}

func TestAssemblerFold(t *testing.T) {
	facts := []Fact{
		{Subject: "Paris", Relation: "is capital of", Object: "France", Chunk: 0},
		{Subject: "paris", Relation: "is capital of", Object: "France", Chunk: 1},
		{Subject: "Seine", Relation: "flows through", Object: "Paris", Chunk: 2},
	}

	// One assembler fed everything directly.
	direct := NewAssembler()
	mustAdd(t, direct, facts)

	// The same facts split across two assemblers and folded together.
	first, second := NewAssembler(), NewAssembler()
	mustAdd(t, first, facts[:2])
	mustAdd(t, second, facts[2:])
	first.Fold(second)

	if !reflect.DeepEqual(direct.Graph(), first.Graph()) {
		t.Error("folded graph differs from directly assembled graph")
	}
}

func TestAssemblerRejectsUnnormalizableFacts(t *testing.T) {
	a := NewAssembler()
	err := a.Add(Fact{Subject: `""`, Relation: "is", Object: "something"})
	if !errors.Is(err, ErrNormalization) {
		t.Errorf("Add() error = %v, want ErrNormalization", err)
	}
}

func TestAssemblerAddInferred(t *testing.T) {
	a := NewAssembler()
	mustAdd(t, a, []Fact{
		{Subject: "Ada", Relation: "wrote", Object: "Notes", Chunk: 0},
		{Subject: "Babbage", Relation: "designed", Object: "Analytical Engine", Chunk: 1},
	})

	t.Run("adds edge between known nodes", func(t *testing.T) {
		if !a.AddInferred("Ada", "collaborated with", "Babbage") {
			t.Fatal("AddInferred() = false, want true")
		}
		for _, e := range a.Graph().Edges() {
			if e.Relation == "collaborated with" {
				if !e.Inferred {
					t.Error("edge not marked inferred")
				}
				if len(e.Provenance) != 0 {
					t.Errorf("inferred edge has provenance %v", e.Provenance)
				}
				return
			}
		}
		t.Fatal("inferred edge missing from graph")
	})

	t.Run("rejects unknown endpoints", func(t *testing.T) {
		if a.AddInferred("Ada", "met", "Turing") {
			t.Error("AddInferred() accepted an unknown target")
		}
		if a.AddInferred("Turing", "admired", "Ada") {
			t.Error("AddInferred() accepted an unknown source")
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		if a.AddInferred("Ada", "collaborated with", "Babbage") {
			t.Error("AddInferred() accepted a duplicate edge")
		}
		if a.AddInferred("Ada", "wrote", "Notes") {
			t.Error("AddInferred() accepted an existing extracted edge")
		}
	})
}
