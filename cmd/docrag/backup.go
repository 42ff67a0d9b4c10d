package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export the collection to a line-delimited JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			includeEmbeddings, _ := cmd.Flags().GetBool("embeddings")
			client, err := a.newClient(false)
			if err != nil {
				return err
			}
			if err := client.Initialize(cmd.Context()); err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := client.ExportBackup(cmd.Context(), f, includeEmbeddings); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().Bool("embeddings", false, "Include embedding vectors in the backup")
	return cmd
}

func NewImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a line-delimited JSON backup into the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clear, _ := cmd.Flags().GetBool("clear")
			// Records without embeddings are re-embedded on import.
			client, err := a.newClient(true)
			if err != nil {
				return err
			}
			if err := client.Initialize(cmd.Context()); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			report, err := client.ImportBackup(cmd.Context(), f, clear)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
	cmd.Flags().Bool("clear", false, "Drop and recreate the collection before importing")
	return cmd
}
