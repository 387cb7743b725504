package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kgraph/internal/util"
	"kgraph/pkg/ai"
	"kgraph/pkg/ai/ollama"
	"kgraph/pkg/ai/openai"
	"kgraph/pkg/export"
	"kgraph/pkg/graph"
	"kgraph/pkg/logger"
	"kgraph/pkg/render"

	"github.com/spf13/cobra"
)

// extractOptions holds the settings shared by the generate and batch
// commands, resolved from flags with environment variable fallbacks.
type extractOptions struct {
	outPath       string
	dotPath       string
	imagePath     string
	refine        bool
	dropSelfLoops bool

	adapter     string
	endpoint    string
	apiKey      string
	model       string
	instruction string

	minChunkChars int
	maxChunkChars int
	concurrency   int
	retries       int
	timeoutSec    int
}

func (o *extractOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.outPath, "out", "o", "", "Path for the JSON graph (default: <input>.graph.json)")
	cmd.Flags().StringVar(&o.dotPath, "dot", "", "Also write the graph as Graphviz DOT to this path")
	cmd.Flags().StringVar(&o.imagePath, "image", "", "Also render the graph as a PNG to this path")
	cmd.Flags().BoolVar(&o.refine, "refine", false, "Ask the model for additional relations between extracted entities")
	cmd.Flags().BoolVar(&o.dropSelfLoops, "drop-self-loops", util.GetEnvBool("KGRAPH_DROP_SELF_LOOPS", false), "Drop relations whose subject and object normalize to the same entity")

	cmd.Flags().StringVar(&o.adapter, "adapter", util.GetEnvString("KGRAPH_AI_ADAPTER", "ollama"), "Model backend, \"ollama\" or \"openai\"")
	cmd.Flags().StringVar(&o.endpoint, "endpoint", util.GetEnv("KGRAPH_AI_URL"), "Backend base URL")
	cmd.Flags().StringVar(&o.apiKey, "api-key", util.GetEnv("KGRAPH_AI_KEY"), "API key, if the backend requires one")
	cmd.Flags().StringVar(&o.model, "model", util.GetEnvString("KGRAPH_AI_MODEL", "gemma3:4b"), "Model name")
	cmd.Flags().StringVar(&o.instruction, "instruction", util.GetEnv("KGRAPH_INSTRUCTION"), "Custom extraction prompt template with one %s for the chunk")

	cmd.Flags().IntVar(&o.minChunkChars, "min-chunk-chars", util.GetEnvInt("KGRAPH_MIN_CHUNK_CHARS", 64), "Minimum chunk size in characters")
	cmd.Flags().IntVar(&o.maxChunkChars, "max-chunk-chars", util.GetEnvInt("KGRAPH_MAX_CHUNK_CHARS", 4000), "Maximum chunk size in characters")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", util.GetEnvInt("KGRAPH_CONCURRENCY", 1), "Number of chunks extracted in parallel")
	cmd.Flags().IntVar(&o.retries, "retries", util.GetEnvInt("KGRAPH_MAX_RETRIES", 3), "Model call attempts per chunk")
	cmd.Flags().IntVar(&o.timeoutSec, "timeout", util.GetEnvInt("KGRAPH_TIMEOUT", 120), "Per-call timeout in seconds")
}

func (o *extractOptions) graphClient() (*graph.GraphClient, error) {
	return graph.NewGraphClient(graph.NewGraphClientParams{
		MinChunkChars:  o.minChunkChars,
		MaxChunkChars:  o.maxChunkChars,
		Concurrency:    o.concurrency,
		MaxRetries:     o.retries,
		RequestTimeout: time.Duration(o.timeoutSec) * time.Second,
		DropSelfLoops:  o.dropSelfLoops,
		Instruction:    o.instruction,
	})
}

func (o *extractOptions) assembler() *graph.Assembler {
	var asmOpts []graph.AssemblerOption
	if o.dropSelfLoops {
		asmOpts = append(asmOpts, graph.WithoutSelfLoops())
	}
	return graph.NewAssembler(asmOpts...)
}

func (o *extractOptions) aiClient() (ai.GraphAIClient, error) {
	switch o.adapter {
	case "ollama":
		baseURL := o.endpoint
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewGraphOllamaClient(ollama.NewGraphOllamaClientParams{
			ExtractionModel:       o.model,
			BaseURL:               baseURL,
			ApiKey:                o.apiKey,
			MaxConcurrentRequests: int64(o.concurrency),
		})
	case "openai":
		return openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
			ExtractionModel: o.model,
			BaseURL:         o.endpoint,
			ApiKey:          o.apiKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ai adapter %q (expected \"ollama\" or \"openai\")", o.adapter)
	}
}

// GenerateCmd creates the generate command.
func GenerateCmd() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "generate <input.txt>",
		Short: "Extract a knowledge graph from one text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), args[0], opts)
		},
	}

	opts.register(cmd)

	return cmd
}

func runGenerate(ctx context.Context, inputPath string, opts *extractOptions) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	client, err := opts.graphClient()
	if err != nil {
		return err
	}
	aiClient, err := opts.aiClient()
	if err != nil {
		return err
	}

	assembler := opts.assembler()

	diag, err := client.BuildGraphWith(ctx, string(data), aiClient, assembler, 0)
	if err != nil {
		return err
	}

	if opts.refine {
		added, err := graph.RefineGraph(ctx, aiClient, assembler)
		if err != nil {
			logger.Warn("Refinement failed, keeping extracted graph", "err", err)
		} else {
			logger.Info("Refinement added relations", "count", added)
		}
	}

	kg := assembler.Graph()
	metrics := aiClient.GetMetrics()
	logger.Info("Extraction finished",
		"nodes", len(kg.Nodes()),
		"edges", len(kg.Edges()),
		"chunks_failed", diag.ChunksFailed,
		"tokens", metrics.TotalTokens,
	)

	outPath := opts.outPath
	if outPath == "" {
		outPath = defaultOutPath(inputPath)
	}
	return writeOutputs(ctx, kg, outPath, opts)
}

func writeOutputs(ctx context.Context, kg *graph.KnowledgeGraph, outPath string, opts *extractOptions) error {
	if err := export.SaveJSON(outPath, kg); err != nil {
		return err
	}
	logger.Info("Wrote graph", "path", outPath)

	if opts.dotPath != "" {
		if err := export.SaveDOT(opts.dotPath, kg); err != nil {
			return err
		}
		logger.Info("Wrote DOT", "path", opts.dotPath)
	}
	if opts.imagePath != "" {
		if err := render.PNG(ctx, kg, opts.imagePath); err != nil {
			return err
		}
		logger.Info("Wrote image", "path", opts.imagePath)
	}
	return nil
}

func defaultOutPath(inputPath string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + ".graph.json"
}
