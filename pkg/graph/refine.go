package graph

import (
	"context"
	"fmt"
	"strings"

	"kgraph/pkg/ai"
	"kgraph/pkg/logger"
)

const (
	refineEntityLimit   = 50
	refineRelationLimit = 5
	refineMaxRounds     = 3
)

type refineRelation struct {
	Source   string `json:"source" jsonschema_description:"Label of an existing entity"`
	Relation string `json:"relation" jsonschema_description:"Short verb phrase"`
	Target   string `json:"target" jsonschema_description:"Label of an existing entity"`
}

type refineResponse struct {
	Relations []refineRelation `json:"relations" jsonschema_description:"New relations between known entities"`
}

// RefineGraph asks the model to propose additional relations between
// entities already present in the assembler and folds the accepted ones
// back in as inferred edges. Proposals naming unknown entities or
// duplicating existing edges are discarded. It iterates until a round
// yields nothing new or refineMaxRounds is reached, and reports the
// number of edges added.
func RefineGraph(ctx context.Context, aiClient ai.GraphAIClient, assembler *Assembler) (int, error) {
	total := 0

	for round := 0; round < refineMaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		kg := assembler.Graph()
		if len(kg.Nodes()) < 2 {
			return total, nil
		}

		prompt := fmt.Sprintf(ai.RefinePrompt, entityList(kg), relationSample(kg))

		var resp refineResponse
		err := aiClient.GenerateCompletionWithFormat(
			ctx,
			"graph_refinement",
			"New relations between known entities",
			prompt,
			&resp,
		)
		if err != nil {
			return total, fmt.Errorf("refinement round %d failed: %w", round+1, err)
		}

		added := 0
		for _, rel := range resp.Relations {
			if assembler.AddInferred(rel.Source, rel.Relation, rel.Target) {
				added++
			}
		}
		logger.Debug("[Graph] Refinement round", "round", round+1, "proposed", len(resp.Relations), "added", added)

		total += added
		if added == 0 {
			break
		}
	}

	return total, nil
}

func entityList(kg *KnowledgeGraph) string {
	nodes := kg.Nodes()
	if len(nodes) > refineEntityLimit {
		nodes = nodes[:refineEntityLimit]
	}
	labels := make([]string, 0, len(nodes))
	for _, n := range nodes {
		labels = append(labels, n.Label)
	}
	return strings.Join(labels, ", ")
}

func relationSample(kg *KnowledgeGraph) string {
	edges := kg.Edges()
	if len(edges) > refineRelationLimit {
		edges = edges[:refineRelationLimit]
	}
	lines := make([]string, 0, len(edges))
	for _, e := range edges {
		lines = append(lines, fmt.Sprintf("%s | %s | %s", e.Source, e.Relation, e.Target))
	}
	if len(lines) == 0 {
		return "(none yet)"
	}
	return strings.Join(lines, "\n")
}
