package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/loader"
	"docrag/internal/service"
	"docrag/internal/watcher"
)

func NewWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir ...]",
		Short: "Watch directories and re-index markdown files as they change",
		Long: `Watch directories and re-index markdown files as they change.
Chunk ids are content-addressed by (path, index), so re-indexing an edited
file overwrites its previous chunks in place. Without arguments the
directories from the config's watch section are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = a.cfg.Watch.Directories
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no directories to watch; pass them as arguments or set watch.directories in the config")
			}
			client, err := a.newClient(true)
			if err != nil {
				return err
			}
			if err := client.Initialize(cmd.Context()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := watcher.New(dirs,
				func(path string) { reindex(ctx, cmd, client, path) },
				func(path string) { removeSource(ctx, cmd, client, path) },
				watcher.WithLogger(a.logger),
				watcher.WithDebounce(time.Duration(a.cfg.Watch.DebounceMsec)*time.Millisecond),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "watching %v (ctrl-c to stop)\n", dirs)
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func reindex(ctx context.Context, cmd *cobra.Command, client *service.DocStore, path string) {
	f, err := loader.LoadFile(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "read %s: %v\n", path, err)
		return
	}
	report, err := client.IngestFiles(ctx, []loader.File{f})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "index %s: %v\n", path, err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %s (%d chunk(s), %d failed)\n", path, report.Ingested, len(report.Failed))
}

func removeSource(ctx context.Context, cmd *cobra.Command, client *service.DocStore, path string) {
	n, err := client.DeleteBySource(ctx, filepath.ToSlash(path))
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "remove %s: %v\n", path, err)
		return
	}
	if n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%d chunk(s))\n", path, n)
	}
}
