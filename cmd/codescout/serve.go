package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ykosuru/vsix-sub002/internal/mcp"
	"github.com/ykosuru/vsix-sub002/internal/watcher"
)

var flagWatch []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools on stdio",
	Long: `Serve speaks the Model Context Protocol on stdin and stdout. With --watch,
each named folder is indexed on start and rebuilt whenever its files change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := mcp.NewServer(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		for _, root := range flagWatch {
			rebuild := func(ctx context.Context) error {
				_, err := srv.Workspaces().Build(ctx, root)
				return err
			}
			if err := rebuild(ctx); err != nil {
				logger.Error("initial index failed", "root", root, "error", err)
			}
			w, err := watcher.New([]string{root}, rebuild, &watcher.Options{
				Debounce:      cfg.Watch.Debounce,
				SkipDirs:      cfg.Index.SkipDirs,
				IncludeHidden: cfg.Index.IncludeHidden,
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			g.Go(func() error { return w.Run(gctx) })
		}

		g.Go(func() error {
			// stdio ends when the client disconnects; stop the watchers with it
			defer cancel()
			err := srv.Serve(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringSliceVarP(&flagWatch, "watch", "w", nil, "folders to index and keep up to date")
	rootCmd.AddCommand(serveCmd)
}
