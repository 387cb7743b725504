package graph

import (
	"strings"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Chunk is one bounded unit of source text submitted to the model in a
// single call. Text is always the exact substring source[Start:End];
// adjacent chunks are separated by the newline the chunker split on.
// Chunks are immutable once created and only their Index survives into
// the assembled graph as provenance.
type Chunk struct {
	ID    string
	Index int
	Text  string
	Start int
	End   int
}

type span struct {
	start int
	end   int
}

// ChunkText splits text into ordered chunks on newline boundaries.
// Consecutive lines are accumulated greedily until adding another line
// would exceed maxChars. A single line longer than maxChars is force-split
// at maxChars boundaries, backing up to a nearby space when one exists.
// Chunks shorter than minChars are merged into their successor (the last
// one merges backwards) so the model never sees a degenerate near-empty
// prompt.
func ChunkText(text string, minChars, maxChars int) ([]Chunk, error) {
	if minChars < 0 || maxChars <= 0 || minChars > maxChars {
		return nil, ErrChunkBounds
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	spans := groupLines(text, maxChars)
	spans = mergeSmall(spans, minChars)

	// Merging can overflow the upper bound again, so force-split last.
	var final []span
	for _, s := range spans {
		if s.end-s.start > maxChars {
			final = append(final, forceSplit(text, s, maxChars)...)
		} else {
			final = append(final, s)
		}
	}

	chunks := make([]Chunk, 0, len(final))
	for i, s := range final {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, Chunk{
			ID:    id,
			Index: i,
			Text:  text[s.start:s.end],
			Start: s.start,
			End:   s.end,
		})
	}
	return chunks, nil
}

// groupLines accumulates newline-delimited lines into spans no longer
// than maxChars. Lines that alone exceed maxChars are force-split.
func groupLines(text string, maxChars int) []span {
	var spans []span
	cur := span{start: -1}

	flush := func() {
		if cur.start >= 0 && cur.end > cur.start {
			spans = append(spans, cur)
		}
		cur = span{start: -1}
	}

	lineStart := 0
	for lineStart <= len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}

		if lineEnd-lineStart > maxChars {
			flush()
			spans = append(spans, forceSplit(text, span{lineStart, lineEnd}, maxChars)...)
		} else if cur.start < 0 {
			cur = span{lineStart, lineEnd}
		} else if lineEnd-cur.start > maxChars {
			flush()
			cur = span{lineStart, lineEnd}
		} else {
			cur.end = lineEnd
		}

		lineStart = lineEnd + 1
	}
	flush()

	return spans
}

// mergeSmall folds spans shorter than minChars into the following span.
// A short trailing span merges backwards instead.
func mergeSmall(spans []span, minChars int) []span {
	if minChars == 0 || len(spans) < 2 {
		return spans
	}

	var merged []span
	carry := -1
	for i, s := range spans {
		start := s.start
		if carry >= 0 {
			start = carry
			carry = -1
		}
		if s.end-start < minChars && i < len(spans)-1 {
			carry = start
			continue
		}
		merged = append(merged, span{start, s.end})
	}

	if last := len(merged) - 1; last > 0 && merged[last].end-merged[last].start < minChars {
		merged[last-1].end = merged[last].end
		merged = merged[:last]
	}

	return merged
}

// forceSplit cuts s into pieces of at most maxChars. The cut backs up to
// the last space inside a trailing window so words stay intact when a
// space is nearby; otherwise it is a hard cut moved back to the nearest
// rune boundary so multibyte text stays valid UTF-8.
func forceSplit(text string, s span, maxChars int) []span {
	window := maxChars / 5
	var pieces []span

	start := s.start
	for s.end-start > maxChars {
		cut := start + maxChars
		if idx := strings.LastIndexByte(text[cut-window:cut], ' '); idx >= 0 {
			cut = cut - window + idx + 1
		} else {
			for cut > start && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == start {
				// A rune wider than maxChars; nothing sane to do.
				cut = start + maxChars
			}
		}
		pieces = append(pieces, span{start, cut})
		start = cut
	}
	if start < s.end {
		pieces = append(pieces, span{start, s.end})
	}
	return pieces
}
