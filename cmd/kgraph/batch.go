package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kgraph/pkg/export"
	"kgraph/pkg/graph"
	"kgraph/pkg/logger"

	"github.com/spf13/cobra"
)

// BatchCmd creates the batch command. It processes every text file in a
// directory and merges all of them into one aggregate graph, offsetting
// chunk indices so provenance stays unique across files.
func BatchCmd() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Extract one merged knowledge graph from a directory of text files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), args[0], opts)
		},
	}

	opts.register(cmd)

	return cmd
}

func runBatch(ctx context.Context, dir string, opts *extractOptions) error {
	inputs, err := collectInputs(dir)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no .txt or .md files found in %s", dir)
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

	baseChunk := 0
	failedFiles := 0
	for _, path := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		logger.Info("[Batch] Processing file", "path", path)
		fileAsm := opts.assembler()
		diag, err := client.BuildGraphWith(ctx, string(data), aiClient, fileAsm, baseChunk)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Warn("[Batch] File failed", "path", path, "err", err)
			failedFiles++
			continue
		}
		baseChunk += diag.ChunksTotal

		if err := export.SaveJSON(defaultOutPath(path), fileAsm.Graph()); err != nil {
			return err
		}
		assembler.Fold(fileAsm)
	}

	if failedFiles == len(inputs) {
		return fmt.Errorf("all %d input files failed", failedFiles)
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
	logger.Info("[Batch] Completed",
		"files", len(inputs),
		"files_failed", failedFiles,
		"nodes", len(kg.Nodes()),
		"edges", len(kg.Edges()),
	)

	outPath := opts.outPath
	if outPath == "" {
		outPath = filepath.Join(dir, "graph.json")
	}
	return writeOutputs(ctx, kg, outPath, opts)
}

func collectInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var inputs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".txt" || ext == ".md" {
			inputs = append(inputs, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(inputs)
	return inputs, nil
}
