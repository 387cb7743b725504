package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kgraph/internal/util"
	"kgraph/pkg/logger"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Flag defaults read KGRAPH_* variables, so the .env file has to be
	// loaded before the commands are constructed.
	util.LoadEnv()

	var debug bool

	rootCmd := &cobra.Command{
		Use:   "kgraph",
		Short: "Extract knowledge graphs from text with a local language model",
		Long: `kgraph chunks plain-text documents, queries a language model for
subject-relation-object triples per chunk and merges the results into one
consolidated knowledge graph.

Environment variables:
  KGRAPH_AI_ADAPTER       Model backend, "ollama" or "openai" (default: ollama)
  KGRAPH_AI_URL           Backend base URL (default: http://localhost:11434)
  KGRAPH_AI_KEY           API key, if the backend requires one
  KGRAPH_AI_MODEL         Model name (default: gemma3:4b)
  KGRAPH_MIN_CHUNK_CHARS  Minimum chunk size (default: 64)
  KGRAPH_MAX_CHUNK_CHARS  Maximum chunk size (default: 4000)
  KGRAPH_CONCURRENCY      Parallel chunk extractions (default: 1)
  KGRAPH_MAX_RETRIES      Attempts per chunk (default: 3)
  KGRAPH_TIMEOUT          Per-call timeout in seconds (default: 120)
  KGRAPH_INSTRUCTION      Custom extraction prompt, one %s for the chunk
  KGRAPH_DROP_SELF_LOOPS  Drop self-referential relations (default: false)`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(debug)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(GenerateCmd())
	rootCmd.AddCommand(BatchCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
