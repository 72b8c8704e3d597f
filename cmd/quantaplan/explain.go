package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/quantaplan/internal/sql/plan"
)

func newExplainCmd(c *cli) *cobra.Command {
	var verbatim bool
	cmd := &cobra.Command{
		Use:   "explain <scenario>",
		Short: "bind a sample plan and describe every node",
		Long: `
Binds the named scenario and prints its statement followed by one line per
plan node: its kind, the device it was negotiated with, whether the device
supports it and its characteristics (L literal, F functional,
D deterministic, R repeatable, N nilable, O order preserving).
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, p, err := c.env.Bind(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			form := plan.EmitDisplay
			if verbatim {
				form = plan.EmitVerbatim
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, p.EmitStatement(p.Root, form))

			t := newTable(w, "ID", "Kind", "Type", "Device", "Supported", "Flags", "Detail")
			p.Walk(p.Root, func(n *plan.Node) bool {
				t.Append([]string{
					strconv.Itoa(int(n.ID)), n.Kind.String(), resultType(n), deviceName(n),
					strconv.FormatBool(n.DeviceSupported), flags(n), detail(n),
				})
				return true
			})
			t.Render()

			for _, warn := range p.Warnings() {
				fmt.Fprintf(w, "warning %s: %v\n", warn.Code(), warn)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verbatim, "verbatim", false, "emit the statement with explicit conversions and typed literals")
	return cmd
}

func resultType(n *plan.Node) string {
	if n.Kind.IsTable() {
		return "table"
	}
	if n.DataType == nil {
		return ""
	}
	return n.DataType.Name()
}

func deviceName(n *plan.Node) string {
	switch {
	case n.NoDevice:
		return "none"
	case n.Device == nil:
		return "-"
	}
	return n.Device.Name()
}

func flags(n *plan.Node) string {
	var b strings.Builder
	for _, f := range []struct {
		set  bool
		name byte
	}{
		{n.IsLiteral, 'L'},
		{n.IsFunctional, 'F'},
		{n.IsDeterministic, 'D'},
		{n.IsRepeatable, 'R'},
		{n.IsNilable, 'N'},
		{n.IsOrderPreserving, 'O'},
	} {
		if f.set {
			b.WriteByte(f.name)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func detail(n *plan.Node) string {
	var parts []string
	switch o := n.Op.(type) {
	case *plan.RestrictOp:
		parts = append(parts, "strategy "+o.Strategy.String())
		if o.AccessOrder != nil {
			parts = append(parts, "access "+o.AccessOrder.String())
		}
	case *plan.BrowseOp:
		parts = append(parts, "browse "+o.Order().String())
	}
	if n.Kind.IsTable() && n.Order != nil {
		parts = append(parts, "order "+n.Order.String())
	}
	if n.DevicePlan != nil && !n.DeviceSupported {
		for _, m := range n.DevicePlan.TranslationMessages() {
			parts = append(parts, m.StripMarkers())
		}
	}
	return strings.Join(parts, "; ")
}
