package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docrag/internal/tui"
)

func NewSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Interactively search the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := queryOptionsFromFlags(cmd)
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
			m := tui.New(client, *opts)
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
	addQueryFlags(cmd)
	return cmd
}
