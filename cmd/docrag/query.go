package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
)

func NewQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the collection for semantically similar chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := queryOptionsFromFlags(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			client, err := a.newClient(true)
			if err != nil {
				return err
			}
			if err := client.Initialize(cmd.Context()); err != nil {
				return err
			}
			results, err := client.Query(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no results above threshold %.2f\n", opts.Threshold)
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%.3f] %s (%s)\n", i+1, r.Score, r.ID, metaField(r, "source"))
				fmt.Fprintf(cmd.OutOrStdout(), "   %s\n", snippet(r.Content, 200))
			}
			return nil
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().Bool("json", false, "Emit results as JSON")
	return cmd
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "n", domain.DefaultQueryLimit, "Maximum results")
	cmd.Flags().Float64P("threshold", "t", domain.DefaultQueryThreshold, "Minimum similarity score (0-1)")
	cmd.Flags().String("category", "", "Only documents of this category")
	cmd.Flags().String("source", "", "Only chunks of this source file")
	cmd.Flags().StringSlice("tags", nil, "Only documents carrying any of these tags")
	cmd.Flags().String("since", "", "Only documents modified at or after this RFC 3339 time")
	cmd.Flags().String("until", "", "Only documents modified at or before this RFC 3339 time")
}

func queryOptionsFromFlags(cmd *cobra.Command) (*domain.QueryOptions, error) {
	limit, _ := cmd.Flags().GetInt("limit")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	category, _ := cmd.Flags().GetString("category")
	source, _ := cmd.Flags().GetString("source")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")

	opts := &domain.QueryOptions{
		Limit:     limit,
		Threshold: threshold,
		Category:  category,
		Source:    source,
		Tags:      tags,
	}
	if since != "" || until != "" {
		dr := &domain.DateRange{}
		if since != "" {
			t, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return nil, fmt.Errorf("invalid --since: %w", err)
			}
			dr.From = t
		}
		if until != "" {
			t, err := time.Parse(time.RFC3339, until)
			if err != nil {
				return nil, fmt.Errorf("invalid --until: %w", err)
			}
			dr.To = t
		}
		opts.DateRange = dr
	}
	return opts, nil
}

func metaField(r domain.QueryResult, key string) string {
	if s, ok := r.Metadata[key].(string); ok {
		return s
	}
	return "?"
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
