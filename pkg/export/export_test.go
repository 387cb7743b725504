package export

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"kgraph/pkg/graph"
)

func buildGraph(t *testing.T) *graph.KnowledgeGraph {
	t.Helper()
	a := graph.NewAssembler()
	facts := []graph.Fact{
		{Subject: "Paris", Relation: "is capital of", Object: "France", Chunk: 0},
		{Subject: "paris", Relation: "is capital of", Object: "France", Chunk: 1},
		{Subject: "Seine", Relation: "flows through", Object: "Paris", Chunk: 1},
	}
	for _, f := range facts {
		if err := a.Add(f); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if !a.AddInferred("Seine", "is located in", "France") {
		t.Fatal("AddInferred() = false")
	}
	return a.Graph()
}

func TestEncode(t *testing.T) {
	doc := Encode(buildGraph(t))

	if len(doc.Entities) != 3 {
		t.Errorf("got %d entities, want 3", len(doc.Entities))
	}
	if len(doc.Relations) != 3 {
		t.Errorf("got %d relations, want 3", len(doc.Relations))
	}
	want := []string{"flows through", "is capital of", "is located in"}
	if !reflect.DeepEqual(doc.Edges, want) {
		t.Errorf("edge vocabulary = %v, want %v", doc.Edges, want)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	kg := buildGraph(t)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, kg); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !reflect.DeepEqual(doc, Encode(kg)) {
		t.Error("decoded document differs from Encode() result")
	}
}

func TestWriteDOT(t *testing.T) {
	kg := buildGraph(t)

	var buf bytes.Buffer
	if err := WriteDOT(&buf, kg); err != nil {
		t.Fatalf("WriteDOT() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"digraph knowledge {",
		`"paris" [label="Paris"];`,
		`"paris" -> "france" [label="is capital of (x2)"];`,
		`"seine" -> "paris" [label="flows through"];`,
		`"seine" -> "france" [label="is located in", style=dashed];`,
		"}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteDOTEscapesQuotes(t *testing.T) {
	a := graph.NewAssembler()
	err := a.Add(graph.Fact{Subject: `the "Sun King"`, Relation: "ruled", Object: "France", Chunk: 0})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteDOT(&buf, a.Graph()); err != nil {
		t.Fatalf("WriteDOT() error = %v", err)
	}
	if !strings.Contains(buf.String(), `label="the \"Sun King\""`) {
		t.Errorf("quotes not escaped:\n%s", buf.String())
	}
}
