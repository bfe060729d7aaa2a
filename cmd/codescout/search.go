package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ykosuru/vsix-sub002/internal/indexer"
)

var (
	flagLimit    int
	flagJSON     bool
	flagNoBlocks bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search an indexed workspace",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		snapshotFile, path := sourceFlags(cmd)
		return openIndex(cmd.Context(), snapshotFile, path, func(ix *indexer.Index) error {
			req := cfg.SearchRequest(query)
			if flagLimit > 0 {
				req.MaxResults = flagLimit
			}
			if flagNoBlocks {
				req.CodeBlockCount = -1
			}
			resp, err := ix.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(resp)
			}

			fmt.Printf("Terms: %s\n", strings.Join(resp.Stats.Terms, ", "))
			if len(resp.Stats.ExpandedTerms) > 0 {
				fmt.Printf("Expanded: %s\n", strings.Join(resp.Stats.ExpandedTerms, ", "))
			}
			fmt.Printf("\nSymbols (%d of %d):\n", len(resp.Symbols), resp.Stats.TotalSymbols)
			for _, h := range resp.Symbols {
				fmt.Printf("  %6.1f  %-12s %s  %s:%d\n", h.Score, h.MatchType, h.Symbol.Name, h.Symbol.File, h.Symbol.StartLine)
			}
			fmt.Printf("\nFiles (%d of %d):\n", len(resp.Files), resp.Stats.TotalFiles)
			for _, h := range resp.Files {
				fmt.Printf("  %6.1f  %-12s %s\n", h.Score, h.MatchType, h.Path)
			}
			for _, b := range resp.CodeBlocks {
				fmt.Printf("\n--- %s (%s:%d-%d)\n%s\n", b.SymbolName, b.File, b.StartLine, b.EndLine, b.Content)
			}
			return nil
		})
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <query>",
	Short: "Classify the intent of a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		snapshotFile, path := sourceFlags(cmd)
		if path == "" && snapshotFile == "" {
			return printJSON(indexer.New(nil).Classify(query))
		}
		return openIndex(cmd.Context(), snapshotFile, path, func(ix *indexer.Index) error {
			return printJSON(ix.Classify(query))
		})
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// addSourceFlags registers the flags selecting which index a command reads
func addSourceFlags(cmd *cobra.Command, defaultPath string) {
	cmd.Flags().StringP("path", "p", defaultPath, "workspace whose stored snapshot is used")
	cmd.Flags().StringP("snapshot", "s", "", "read the index from a snapshot file instead")
}

func sourceFlags(cmd *cobra.Command) (snapshotFile, path string) {
	snapshotFile, _ = cmd.Flags().GetString("snapshot")
	path, _ = cmd.Flags().GetString("path")
	return snapshotFile, path
}

func init() {
	addSourceFlags(searchCmd, ".")
	searchCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "maximum results (default from config)")
	searchCmd.Flags().BoolVar(&flagJSON, "json", false, "print the response as JSON")
	searchCmd.Flags().BoolVar(&flagNoBlocks, "no-code", false, "omit code blocks")
	rootCmd.AddCommand(searchCmd)

	addSourceFlags(classifyCmd, "")
	rootCmd.AddCommand(classifyCmd)
}
