package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ykosuru/vsix-sub002/internal/indexer"
)

func callGraphCmd(use, short string, edges func(*indexer.Index, string) []string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshotFile, path := sourceFlags(cmd)
			return openIndex(cmd.Context(), snapshotFile, path, func(ix *indexer.Index) error {
				names := edges(ix, args[0])
				if len(names) == 0 {
					fmt.Printf("no %s of %s\n", use, args[0])
					return nil
				}
				for _, n := range names {
					defs := ix.SymbolsByName(n)
					if len(defs) == 0 {
						fmt.Printf("  %s\n", n)
						continue
					}
					for _, d := range defs {
						fmt.Printf("  %s  %s:%d\n", n, d.File, d.StartLine)
					}
				}
				return nil
			})
		},
	}
	addSourceFlags(cmd, ".")
	return cmd
}

func init() {
	rootCmd.AddCommand(callGraphCmd("callers", "List the functions that call a function", (*indexer.Index).Callers))
	rootCmd.AddCommand(callGraphCmd("callees", "List the functions a function calls", (*indexer.Index).Callees))
}
