package plan_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"

	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// parseOperand reads a column, a literal or a conversion of a column.
//
//	ID            column
//	12, 2.50      Integer, Decimal
//	2024-01-01    Date
//	'text'        Text
//	nil           Integer nil
//	text(ID)      ID converted to Text
func parseOperand(b *plan.Builder, s string) (plan.NodeID, error) {
	switch {
	case s == "nil":
		return b.Nil(types.Integer), nil
	case strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'"):
		return b.Text(strings.Trim(s, "'")), nil
	case strings.HasPrefix(s, "text(") && strings.HasSuffix(s, ")"):
		return b.Convert(b.Column(s[5:len(s)-1]), types.Text), nil
	case len(s) == 10 && s[4] == '-' && s[7] == '-':
		return b.Date(s), nil
	case strings.Contains(s, "."):
		return b.Decimal(s), nil
	case s[0] >= '0' && s[0] <= '9':
		var i int64
		if _, err := fmt.Sscan(s, &i); err != nil {
			return plan.InvalidNode, err
		}
		return b.Int(i), nil
	}
	return b.Column(s), nil
}

var compareOps = map[string]plan.CompareOperator{
	"=": plan.OpEqual, "<>": plan.OpNotEqual,
	"<": plan.OpLess, "<=": plan.OpLessEqual,
	">": plan.OpGreater, ">=": plan.OpGreaterEqual,
}

// parseCondition reads comparisons joined by "and", or by "or".
func parseCondition(b *plan.Builder, s string) (plan.NodeID, error) {
	join, sep := b.And, " and "
	if strings.Contains(s, " or ") {
		join, sep = b.Or, " or "
	}
	var terms []plan.NodeID
	for _, term := range strings.Split(s, sep) {
		f := strings.Fields(term)
		if len(f) != 3 {
			return plan.InvalidNode, fmt.Errorf("cannot parse %q", term)
		}
		op, ok := compareOps[f[1]]
		if !ok {
			return plan.InvalidNode, fmt.Errorf("unknown operator %q", f[1])
		}
		l, err := parseOperand(b, f[0])
		if err != nil {
			return plan.InvalidNode, err
		}
		r, err := parseOperand(b, f[2])
		if err != nil {
			return plan.InvalidNode, err
		}
		terms = append(terms, b.Compare(op, l, r))
	}
	return join(terms...), nil
}

func TestSargabilityClassification(t *testing.T) {
	f, _ := ordersFixture(t)

	datadriven.RunTest(t, "testdata/sargability", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "classify":
			table := "Orders"
			for _, arg := range d.CmdArgs {
				if arg.Key == "table" && len(arg.Vals) > 0 {
					table = arg.Vals[0]
				}
			}
			b := plan.NewBuilder()
			cond, err := parseCondition(b, strings.TrimSpace(d.Input))
			if err != nil {
				d.Fatalf(t, "%v", err)
			}
			p := f.Bind(t, b.Build(b.Restrict(b.Get(table), cond)))
			o := restrictOf(t, p)

			var sb strings.Builder
			fmt.Fprintf(&sb, "strategy: %s\n", o.Strategy)
			if o.AccessOrder != nil {
				fmt.Fprintf(&sb, "order: %s\n", o.AccessOrder)
			}
			for _, cc := range o.Conditions {
				ops := make([]string, len(cc.Conditions))
				for i, c := range cc.Conditions {
					ops[i] = c.Op.String()
				}
				fmt.Fprintf(&sb, "column %s: %s\n", cc.Column, strings.Join(ops, " "))
			}
			for _, w := range p.Warnings() {
				fmt.Fprintf(&sb, "warning %s\n", w.Code())
			}
			return sb.String()

		default:
			d.Fatalf(t, "unknown command %s", d.Cmd)
			return ""
		}
	})
}
