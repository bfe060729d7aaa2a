package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ykosuru/vsix-sub002/internal/corpus"
	"github.com/ykosuru/vsix-sub002/internal/indexer"
	"github.com/ykosuru/vsix-sub002/internal/workspace"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

var (
	flagOut     string
	flagNoStore bool
	flagWorkers int
)

var indexCmd = &cobra.Command{
	Use:   "index <folder>...",
	Short: "Index one or more folders for search",
	Long: `Index loads every file under the given folders, builds the search
structures and stores the snapshot in the database so later commands and the
MCP server can use it. Several folders are indexed as one corpus and must be
written to a snapshot file with --out.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if flagWorkers > 0 {
			cfg.Index.Workers = flagWorkers
		}
		if len(args) > 1 && flagOut == "" {
			return fmt.Errorf("indexing %d folders together requires --out", len(args))
		}

		fmt.Printf("Indexing %d folder(s)...\n", len(args))
		start := time.Now()

		var (
			stats *types.BuildStats
			ix    *indexer.Index
			err   error
		)
		if len(args) == 1 && !flagNoStore {
			err = withManager(func(m *workspace.Manager) error {
				stats, err = m.Build(ctx, args[0])
				if err != nil {
					return err
				}
				ix, _ = m.Loaded(args[0])
				return nil
			})
		} else {
			ix, stats, err = buildUnstored(cmd, args)
		}
		if err != nil {
			return err
		}

		printBuildStats(stats, time.Since(start))

		if flagOut != "" && ix != nil {
			if err := writeSnapshot(ix, flagOut); err != nil {
				return err
			}
			fmt.Printf("  Snapshot: %s\n", flagOut)
		}
		return nil
	},
}

// buildUnstored indexes folders in memory without touching the database
func buildUnstored(cmd *cobra.Command, roots []string) (*indexer.Index, *types.BuildStats, error) {
	docs, loadStats, err := corpus.Load(cmd.Context(), roots, cfg.CorpusOptions(logger))
	if err != nil {
		return nil, nil, err
	}
	ix := indexer.New(cfg.IndexerConfig(logger))
	stats, err := ix.Build(cmd.Context(), docs, cfg.BuildOptions())
	if err != nil {
		return nil, nil, err
	}
	stats.FilesSkipped += loadStats.FilesSkipped
	stats.FilesFailed += loadStats.FilesFailed
	stats.ErrorMessages = append(loadStats.ErrorMessages, stats.ErrorMessages...)
	return ix, stats, nil
}

func writeSnapshot(ix *indexer.Index, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := ix.Export(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printBuildStats(stats *types.BuildStats, elapsed time.Duration) {
	fmt.Printf("\nDone in %s (build %s)\n", elapsed.Round(time.Millisecond), stats.BuildID)
	fmt.Printf("  Files:    %d indexed, %d skipped, %d failed (%d source)\n",
		stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.SourceFiles)
	fmt.Printf("  Symbols:  %d (%d functions, %d variables)\n", stats.Symbols, stats.Functions, stats.Variables)
	fmt.Printf("  Calls:    %d edges\n", stats.CallEdges)
	fmt.Printf("  Modules:  %d\n", stats.Modules)
	for i, msg := range stats.ErrorMessages {
		if i == 5 {
			fmt.Printf("  ... and %d more errors\n", len(stats.ErrorMessages)-i)
			break
		}
		fmt.Printf("  ! %s\n", msg)
	}
}

func init() {
	indexCmd.Flags().StringVarP(&flagOut, "out", "o", "", "also write the snapshot to this file")
	indexCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "do not save the snapshot in the database")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel workers (default: number of CPUs)")
	rootCmd.AddCommand(indexCmd)
}
