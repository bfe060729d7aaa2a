package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ykosuru/vsix-sub002/internal/storage"
	"github.com/ykosuru/vsix-sub002/internal/workspace"
)

var flagHistory int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored snapshots and recent builds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withManager(func(m *workspace.Manager) error {
			store := m.Store()
			snaps, err := store.ListSnapshots(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database: %s (%s driver, %s build)\n", cfg.Storage.DBPath, storage.DriverName, storage.BuildMode)
			if len(snaps) == 0 {
				fmt.Println("No workspaces indexed. Run: codescout index <folder>")
				return nil
			}
			for _, s := range snaps {
				fmt.Printf("\n%s\n", s.RootPath)
				fmt.Printf("  Snapshot: v%s, %d files, %d symbols, %d call edges, %.1f KiB, %s\n",
					s.FormatVersion, s.TotalFiles, s.TotalSymbols, s.CallEdges,
					float64(s.SizeBytes)/1024, s.CreatedAt.Format(time.RFC3339))
				builds, err := store.ListBuilds(ctx, s.RootPath, flagHistory)
				if err != nil {
					return err
				}
				for _, b := range builds {
					fmt.Printf("  Build %s  %s  %d indexed, %d skipped, %d failed in %s\n",
						b.BuildID, b.CompletedAt.Format(time.RFC3339),
						b.FilesIndexed, b.FilesSkipped, b.FilesFailed, b.Duration.Round(time.Millisecond))
				}
			}
			return nil
		})
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <folder>",
	Short: "Delete the stored snapshot and build history of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(m *workspace.Manager) error {
			if err := m.Drop(cmd.Context(), args[0], true); err != nil {
				return err
			}
			fmt.Printf("Forgot %s\n", args[0])
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codescout %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
	},
}

func init() {
	statusCmd.Flags().IntVar(&flagHistory, "history", 3, "builds to show per workspace")
	rootCmd.AddCommand(statusCmd, forgetCmd, versionCmd)
}
