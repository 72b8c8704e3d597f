package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/quantaplan/internal/demo"
	"github.com/dshills/quantaplan/internal/sql/plan"
)

func newScenariosCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "list the sample plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := newTable(cmd.OutOrStdout(), "Name", "Statement", "Description")
			for _, s := range demo.Scenarios() {
				p := s.Plan()
				t.Append([]string{s.Name, p.EmitStatement(p.Root, plan.EmitDisplay), s.Description})
			}
			t.Render()
			return nil
		},
	}
}
