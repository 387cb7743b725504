package graph

import (
	"reflect"
	"testing"
)

func TestParseFactsEnvelope(t *testing.T) {
	raw := RawExtraction{
		ChunkIndex: 2,
		Text: `{
			"nodes": [
				{"id": 1, "label": "Paris"},
				{"id": 2, "label": "France"},
				{"id": 3, "label": "Seine"}
			],
			"edges": [
				{"source": 1, "target": 2, "relation": "is capital of"},
				{"source": 3, "target": 1, "relation": "flows through"}
			]
		}`,
	}

	facts, stats := ParseFacts(raw)

	want := []Fact{
		{Subject: "Paris", Relation: "is capital of", Object: "France", Chunk: 2},
		{Subject: "Seine", Relation: "flows through", Object: "Paris", Chunk: 2},
	}
	if !reflect.DeepEqual(facts, want) {
		t.Errorf("facts = %+v, want %+v", facts, want)
	}
	if stats.Parsed != 2 || stats.Dropped != 0 {
		t.Errorf("stats = %+v, want Parsed=2 Dropped=0", stats)
	}
}

func TestParseFactsFencedWithProse(t *testing.T) {
	raw := RawExtraction{
		Text: "Sure! Here is the extracted graph:\n" +
			"```json\n" +
			`{"nodes": [{"id": 1, "label": "Ada"}, {"id": 2, "label": "London"}],` +
			`"edges": [{"source": 1, "target": 2, "relation": "born in"}]}` +
			"\n```\nLet me know if you need anything else.",
	}

	facts, stats := ParseFacts(raw)

	want := []Fact{{Subject: "Ada", Relation: "born in", Object: "London"}}
	if !reflect.DeepEqual(facts, want) {
		t.Errorf("facts = %+v, want %+v", facts, want)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}
}

func TestParseFactsMalformedJSON(t *testing.T) {
	// Trailing comma and unquoted keys, the kind of JSON local models emit.
	raw := RawExtraction{
		Text: `{nodes: [{id: 1, label: "Mars"}, {id: 2, label: "Sol"},], edges: [{source: 1, target: 2, relation: "orbits"},]}`,
	}

	facts, _ := ParseFacts(raw)

	want := []Fact{{Subject: "Mars", Relation: "orbits", Object: "Sol"}}
	if !reflect.DeepEqual(facts, want) {
		t.Errorf("facts = %+v, want %+v", facts, want)
	}
}

func TestParseFactsEdgeLabelsWithoutNodeTable(t *testing.T) {
	raw := RawExtraction{
		Text: `{"nodes": [], "edges": [{"source": "Rhine", "target": "Basel", "relation": "flows through"}]}`,
	}

	facts, _ := ParseFacts(raw)

	want := []Fact{{Subject: "Rhine", Relation: "flows through", Object: "Basel"}}
	if !reflect.DeepEqual(facts, want) {
		t.Errorf("facts = %+v, want %+v", facts, want)
	}
}

func TestParseFactsDropsIncompleteEdges(t *testing.T) {
	raw := RawExtraction{
		Text: `{
			"nodes": [{"id": 1, "label": "Kepler"}, {"id": 2, "label": ""}],
			"edges": [
				{"source": 1, "target": 2, "relation": "studied"},
				{"source": 1, "target": 9, "relation": ""},
				{"source": 1, "target": 1, "relation": "wrote about himself"}
			]
		}`,
	}

	facts, stats := ParseFacts(raw)

	// Edge 1 resolves to an empty label, edge 2 has no relation.
	want := []Fact{{Subject: "Kepler", Relation: "wrote about himself", Object: "Kepler"}}
	if !reflect.DeepEqual(facts, want) {
		t.Errorf("facts = %+v, want %+v", facts, want)
	}
	if stats.Parsed != 1 || stats.Dropped != 2 {
		t.Errorf("stats = %+v, want Parsed=1 Dropped=2", stats)
	}
}

func TestParseFactsEmptyEnvelope(t *testing.T) {
	raw := RawExtraction{Text: `{"nodes": [], "edges": []}`}

	facts, stats := ParseFacts(raw)

	if len(facts) != 0 {
		t.Errorf("facts = %+v, want none", facts)
	}
	if stats.Parsed != 0 || stats.Dropped != 0 {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestParseFactsLineFallback(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		want        []Fact
		wantDropped int
	}{
		{
			name: "pipe separated",
			text: "Curie | discovered | radium\nCurie | won | Nobel Prize.",
			want: []Fact{
				{Subject: "Curie", Relation: "discovered", Object: "radium"},
				{Subject: "Curie", Relation: "won", Object: "Nobel Prize"},
			},
		},
		{
			name: "parenthesized tuples",
			text: "(Danube, flows into, Black Sea)\n(Danube, crosses, Vienna)",
			want: []Fact{
				{Subject: "Danube", Relation: "flows into", Object: "Black Sea"},
				{Subject: "Danube", Relation: "crosses", Object: "Vienna"},
			},
		},
		{
			name: "noise lines are dropped",
			text: "Here are the triples:\nCurie | discovered | radium\nThat is all.",
			want: []Fact{
				{Subject: "Curie", Relation: "discovered", Object: "radium"},
			},
			wantDropped: 2,
		},
		{
			name:        "wrong arity is dropped",
			text:        "Curie | radium",
			want:        []Fact{},
			wantDropped: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, stats := ParseFacts(RawExtraction{Text: tt.text})
			if !reflect.DeepEqual(facts, tt.want) {
				t.Errorf("facts = %+v, want %+v", facts, tt.want)
			}
			if stats.Dropped != tt.wantDropped {
				t.Errorf("Dropped = %d, want %d", stats.Dropped, tt.wantDropped)
			}
		})
	}
}

func TestParseFactsDeduplicatesWithinChunk(t *testing.T) {
	raw := RawExtraction{
		ChunkIndex: 1,
		Text: `{
			"nodes": [{"id": 1, "label": "Ada"}, {"id": 2, "label": "London"}],
			"edges": [
				{"source": 1, "target": 2, "relation": "born in"},
				{"source": 1, "target": 2, "relation": "born in"}
			]
		}`,
	}

	facts, stats := ParseFacts(raw)

	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}
	if stats.Parsed != 1 {
		t.Errorf("Parsed = %d, want 1", stats.Parsed)
	}
}
