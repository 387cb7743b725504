package graph

import (
	"strconv"
	"strings"

	"kgraph/pkg/ai"
)

// RawExtraction is the unparsed model output for one chunk.
type RawExtraction struct {
	ChunkIndex int
	Text       string
}

// Fact is one (subject, relation, object) assertion extracted from a chunk.
type Fact struct {
	Subject  string
	Relation string
	Object   string
	Chunk    int
}

// ParseStats counts the outcome of parsing one raw extraction. Dropped
// segments are a diagnostic, never an abort.
type ParseStats struct {
	Parsed  int
	Dropped int
}

// envelope is the nodes/edges shape the extraction prompt asks for. Node
// ids are numbers by contract but models drift, so ids are decoded loosely
// and stringified for lookup.
type envelope struct {
	Nodes []envelopeNode `json:"nodes"`
	Edges []envelopeEdge `json:"edges"`
}

type envelopeNode struct {
	ID    any    `json:"id"`
	Label string `json:"label"`
}

type envelopeEdge struct {
	Source   any    `json:"source"`
	Target   any    `json:"target"`
	Relation string `json:"relation"`
}

// idKey stringifies a node id reference. JSON decoding into any only
// produces strings and float64 numbers for the shapes models emit.
func idKey(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// ParseFacts converts raw model output for one chunk into a deduplicated
// set of facts. It is tolerant of the noise local models produce: prose
// around the payload, markdown fences, malformed JSON (repaired via
// ai.UnmarshalFlexible), and, when no JSON envelope can be recovered at
// all, line-oriented "subject | relation | object" output. Segments that
// do not yield a well-formed triple are dropped and counted.
func ParseFacts(raw RawExtraction) ([]Fact, ParseStats) {
	var stats ParseStats

	text := ai.StripCodeFences(raw.Text)

	var candidates []Fact
	if env, ok := decodeEnvelope(text); ok {
		candidates = envelopeFacts(env, &stats)
	} else {
		candidates = lineFacts(text, &stats)
	}

	seen := make(map[Fact]struct{}, len(candidates))
	facts := make([]Fact, 0, len(candidates))
	for _, f := range candidates {
		f.Chunk = raw.ChunkIndex
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		facts = append(facts, f)
	}

	stats.Parsed = len(facts)
	return facts, stats
}

func decodeEnvelope(text string) (*envelope, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, false
	}

	var env envelope
	if err := ai.UnmarshalFlexible(text[start:end+1], &env); err != nil {
		return nil, false
	}
	if len(env.Nodes) == 0 && len(env.Edges) == 0 {
		// An empty envelope is a valid "nothing to extract" answer, but
		// only when the payload actually mentions the expected keys.
		if strings.Contains(text, "nodes") || strings.Contains(text, "edges") {
			return &env, true
		}
		return nil, false
	}
	return &env, true
}

func envelopeFacts(env *envelope, stats *ParseStats) []Fact {
	labels := make(map[string]string, len(env.Nodes))
	for _, n := range env.Nodes {
		if key := idKey(n.ID); key != "" {
			labels[key] = n.Label
		}
	}

	resolve := func(ref any) string {
		key := idKey(ref)
		if label, ok := labels[key]; ok {
			return label
		}
		// Models sometimes put the label straight into the edge.
		return key
	}

	var facts []Fact
	for _, e := range env.Edges {
		f := Fact{
			Subject:  strings.TrimSpace(resolve(e.Source)),
			Relation: strings.TrimSpace(e.Relation),
			Object:   strings.TrimSpace(resolve(e.Target)),
		}
		if f.Subject == "" || f.Relation == "" || f.Object == "" {
			stats.Dropped++
			continue
		}
		facts = append(facts, f)
	}
	return facts
}

// lineFacts handles models that ignore the JSON instruction and answer in
// plain lines. Accepted shapes: "subject | relation | object" and
// "(subject, relation, object)". Everything else on a non-empty line is a
// dropped segment.
func lineFacts(text string, stats *ParseStats) []Fact {
	var facts []Fact
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var parts []string
		switch {
		case strings.Contains(line, "|"):
			parts = strings.Split(line, "|")
		case strings.HasPrefix(line, "(") && strings.Contains(line, ","):
			inner := strings.TrimSuffix(strings.TrimPrefix(line, "("), ")")
			inner = strings.TrimSuffix(strings.TrimSpace(inner), ")")
			parts = strings.Split(inner, ",")
		}

		if len(parts) != 3 {
			stats.Dropped++
			continue
		}

		f := Fact{
			Subject:  strings.TrimSpace(parts[0]),
			Relation: strings.TrimSpace(parts[1]),
			Object:   strings.TrimRight(strings.TrimSpace(parts[2]), ".!?;,"),
		}
		if f.Subject == "" || f.Relation == "" || f.Object == "" {
			stats.Dropped++
			continue
		}
		facts = append(facts, f)
	}
	return facts
}
