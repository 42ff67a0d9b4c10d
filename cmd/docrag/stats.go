package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient(false)
			if err != nil {
				return err
			}
			if err := client.Initialize(cmd.Context()); err != nil {
				return err
			}
			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "documents: %d (sampled %d)\n", stats.TotalDocuments, stats.Sampled)
			fmt.Fprintf(out, "avg chunk size: %.0f bytes\n", stats.AvgChunkSize)
			fmt.Fprintln(out, "by category:")
			for cat, n := range stats.ByCategory {
				fmt.Fprintf(out, "  %-20s %d\n", cat, n)
			}
			fmt.Fprintf(out, "sources: %d\n", len(stats.BySource))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Emit stats as JSON")
	return cmd
}
