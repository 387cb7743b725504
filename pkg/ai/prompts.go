package ai

// ExtractPrompt is the default per-chunk extraction instruction. The model
// is asked for a nodes/edges envelope: numeric node ids keep edge
// references short, labels carry the entity surface forms. %s receives the
// chunk text.
const ExtractPrompt = `Analyze this text and generate a knowledge graph in JSON format with:
- "nodes": list of objects with "id" (number) and "label" (string)
- "edges": list of objects with "source", "target" (node ids), and "relation" (string)

Example format:
{
  "nodes": [{"id": 1, "label": "Concept1"}, {"id": 2, "label": "Concept2"}],
  "edges": [{"source": 1, "target": 2, "relation": "related_to"}]
}

Rules:
- Node labels are short noun phrases naming concrete entities or concepts from the text.
- Relations are short snake_case verb phrases (e.g. "capital_of", "works_at").
- Only extract facts asserted by the text. Do not invent relations.
- Return only the JSON, no additional text or markdown.

Text to analyze:
%s`

// RefinePrompt asks the model for plausible relations missing between
// entities already present in the graph. First %s receives the entity
// list, second %s a sample of known relations for grounding.
const RefinePrompt = `You are completing a knowledge graph.

Known entities:
%s

Some existing relations (for reference):
%s

Suggest up to 5 NEW plausible relations that are missing between the known
entities. Only use entities from the list above, and do not repeat existing
relations. Return a JSON object with a "relations" list where every item has
"source", "relation" and "target" strings.`
