package main

import (
	"github.com/spf13/cobra"

	"docrag/internal/loader"
)

func NewIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path> [path ...]",
		Short: "Chunk and index markdown files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := loader.Load(args)
			if err != nil {
				return err
			}
			client, err := a.newClient(true)
			if err != nil {
				return err
			}
			if err := client.Initialize(cmd.Context()); err != nil {
				return err
			}
			report, err := client.IngestFiles(cmd.Context(), files)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
}
