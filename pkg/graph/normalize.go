package graph

import "strings"

// surrounding quote and bracket characters stripped from entity surface
// forms before keying. Interior punctuation is left alone.
const entityCutset = "\"'`“”‘’„«»()[]{}<>"

// NormalizeEntity maps an entity surface form to its canonical key: trim,
// strip surrounding quote/bracket characters, collapse internal whitespace
// runs to single spaces, lowercase. It is a pure function and idempotent:
// NormalizeEntity(NormalizeEntity(s)) == NormalizeEntity(s) for all s.
// Merging decisions live in the assembler, not here.
func NormalizeEntity(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, entityCutset)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
