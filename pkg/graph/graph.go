package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kgraph/internal/util"
	"kgraph/pkg/ai"
	"kgraph/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const failureSampleLimit = 10

// GraphClient runs the chunk-extract-merge pipeline. It manages chunk
// sizing, extraction concurrency, retries and per-call timeouts.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	minChunkChars  int
	maxChunkChars  int
	concurrency    int
	maxRetries     int
	retryBackoff   time.Duration
	requestTimeout time.Duration
	dropSelfLoops  bool
	instruction    string
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// Concurrency controls how many chunks are extracted in parallel; it
// defaults to 1 because a locally loaded model is usually a
// single-consumer resource. Instruction overrides the default extraction
// prompt template and must contain exactly one %s verb for the chunk text.
type NewGraphClientParams struct {
	MinChunkChars  int
	MaxChunkChars  int
	Concurrency    int
	MaxRetries     int
	RetryBackoff   time.Duration
	RequestTimeout time.Duration
	DropSelfLoops  bool
	Instruction    string
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		MinChunkChars: 64,
//		MaxChunkChars: 4000,
//		Concurrency:   1,
//	})
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	g := &GraphClient{
		minChunkChars:  params.MinChunkChars,
		maxChunkChars:  params.MaxChunkChars,
		concurrency:    params.Concurrency,
		maxRetries:     params.MaxRetries,
		retryBackoff:   params.RetryBackoff,
		requestTimeout: params.RequestTimeout,
		dropSelfLoops:  params.DropSelfLoops,
		instruction:    params.Instruction,
	}
	if g.minChunkChars <= 0 {
		g.minChunkChars = 64
	}
	if g.maxChunkChars <= 0 {
		g.maxChunkChars = 4000
	}
	if g.concurrency <= 0 {
		g.concurrency = 1
	}
	if g.maxRetries <= 0 {
		g.maxRetries = 3
	}
	if g.retryBackoff <= 0 {
		g.retryBackoff = time.Second
	}
	if g.requestTimeout <= 0 {
		g.requestTimeout = 2 * time.Minute
	}
	if g.instruction == "" {
		g.instruction = ai.ExtractPrompt
	}
	if g.minChunkChars > g.maxChunkChars {
		return nil, ErrChunkBounds
	}
	return g, nil
}

// ChunkFailure is one recorded per-chunk extraction failure.
type ChunkFailure struct {
	Chunk int    `json:"chunk"`
	Err   string `json:"error"`
}

// Diagnostics summarizes a run: how many chunks succeeded and failed and
// how many triples were dropped during parsing. Failures holds a bounded
// sample of per-chunk errors.
type Diagnostics struct {
	ChunksTotal     int            `json:"chunks_total"`
	ChunksSucceeded int            `json:"chunks_succeeded"`
	ChunksFailed    int            `json:"chunks_failed"`
	FactsExtracted  int            `json:"facts_extracted"`
	TriplesDropped  int            `json:"triples_dropped"`
	Failures        []ChunkFailure `json:"failures,omitempty"`
}

func (d *Diagnostics) recordFailure(chunk int, err error) {
	d.ChunksFailed++
	if len(d.Failures) < failureSampleLimit {
		d.Failures = append(d.Failures, ChunkFailure{Chunk: chunk, Err: err.Error()})
	}
}

// BuildGraph runs the full pipeline over text: chunk, extract per chunk
// against the model, parse, normalize and fold into one consolidated
// graph. Per-chunk failures contribute zero facts and are recorded in the
// returned Diagnostics; only an empty document or a model endpoint that
// is unreachable on the very first call abort the run.
func (g *GraphClient) BuildGraph(
	ctx context.Context,
	text string,
	aiClient ai.GraphAIClient,
) (*KnowledgeGraph, *Diagnostics, error) {
	var opts []AssemblerOption
	if g.dropSelfLoops {
		opts = append(opts, WithoutSelfLoops())
	}
	assembler := NewAssembler(opts...)

	diag, err := g.BuildGraphWith(ctx, text, aiClient, assembler, 0)
	if err != nil {
		return nil, nil, err
	}
	return assembler.Graph(), diag, nil
}

// BuildGraphWith is BuildGraph folding into a caller-owned assembler, so
// several documents can be merged into one aggregate graph. Chunk indices
// recorded as provenance are offset by baseChunk to keep them unique
// across documents.
func (g *GraphClient) BuildGraphWith(
	ctx context.Context,
	text string,
	aiClient ai.GraphAIClient,
	assembler *Assembler,
	baseChunk int,
) (*Diagnostics, error) {
	chunks, err := ChunkText(text, g.minChunkChars, g.maxChunkChars)
	if err != nil {
		return nil, fmt.Errorf("chunking failed: %w", err)
	}

	diag := &Diagnostics{ChunksTotal: len(chunks)}
	logger.Info("[Graph] Processing", "chunks", len(chunks), "concurrency", g.concurrency)

	// Probe with the first chunk before spinning up workers. An endpoint
	// that is unreachable right away is a configuration problem, not a
	// transient per-chunk failure.
	if err := g.processChunk(ctx, chunks[0], aiClient, assembler, diag, baseChunk, nil); err != nil {
		if errors.Is(err, ai.ErrModelUnavailable) {
			return nil, fmt.Errorf("model endpoint unreachable: %w", err)
		}
		return nil, err
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	mergeMu := &sync.Mutex{}

	for _, chunk := range chunks[1:] {
		c := chunk
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
				return g.processChunk(gCtx, c, aiClient, assembler, diag, baseChunk, mergeMu)
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to process chunks:\n%w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("[Graph] Run completed",
		"chunks_ok", diag.ChunksSucceeded,
		"chunks_failed", diag.ChunksFailed,
		"facts", diag.FactsExtracted,
		"triples_dropped", diag.TriplesDropped,
	)

	return diag, nil
}

// processChunk extracts and parses one chunk and folds the resulting
// facts. A nil mergeMu means the caller is already serialized. Extraction
// failures are recorded, not returned; the only errors escaping are
// context cancellation and assembler invariant violations.
func (g *GraphClient) processChunk(
	ctx context.Context,
	chunk Chunk,
	aiClient ai.GraphAIClient,
	assembler *Assembler,
	diag *Diagnostics,
	baseChunk int,
	mergeMu *sync.Mutex,
) error {
	raw, err := g.extractChunk(ctx, chunk, aiClient)

	// Failure samples and fact provenance use the same offset index so
	// aggregate runs stay traceable.
	chunkIndex := baseChunk + chunk.Index

	if mergeMu != nil {
		mergeMu.Lock()
		defer mergeMu.Unlock()
	}

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.Warn("[Graph] Chunk failed", "chunk", chunkIndex, "err", err)
		diag.recordFailure(chunkIndex, err)
		if mergeMu == nil {
			// First-chunk probe: let the caller decide whether this is fatal.
			if errors.Is(err, ai.ErrModelUnavailable) {
				return err
			}
		}
		return nil
	}

	facts, stats := ParseFacts(RawExtraction{ChunkIndex: chunkIndex, Text: raw})
	for _, f := range facts {
		if err := assembler.Add(f); err != nil {
			return err
		}
	}

	diag.ChunksSucceeded++
	diag.FactsExtracted += stats.Parsed
	diag.TriplesDropped += stats.Dropped
	logger.Debug("[Graph] Chunk parsed", "chunk", chunkIndex, "facts", stats.Parsed, "dropped", stats.Dropped)

	return nil
}

// extractChunk queries the model for one chunk with retries and a
// per-call timeout. A timeout against a live run is translated to
// ErrModelTimeout so it stays retryable and recordable.
func (g *GraphClient) extractChunk(
	ctx context.Context,
	chunk Chunk,
	aiClient ai.GraphAIClient,
) (string, error) {
	prompt := fmt.Sprintf(g.instruction, chunk.Text)

	return util.RetryWithContext(ctx, g.maxRetries, g.retryBackoff, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()

		out, err := aiClient.GenerateCompletion(callCtx, prompt)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return "", fmt.Errorf("%w after %s", ErrModelTimeout, g.requestTimeout)
			}
			return "", err
		}
		return out, nil
	})
}
