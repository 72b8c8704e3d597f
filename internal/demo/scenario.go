package demo

import (
	"sort"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Scenario is a named plan over the sample tables.
type Scenario struct {
	Name        string
	Description string
	// Browse scenarios are paged through a navigable cursor instead of
	// drained.
	Browse bool
	Build  func(b *plan.Builder) plan.NodeID
}

// Plan builds a fresh, unbound plan for the scenario.
func (s Scenario) Plan() *plan.Plan {
	b := plan.NewBuilder()
	return b.Build(s.Build(b))
}

var scenarios = []Scenario{
	{
		Name:        "seek",
		Description: "single order by key",
		Build: func(b *plan.Builder) plan.NodeID {
			return b.Restrict(b.Get("Orders"), b.Eq(b.Column("ID"), b.Int(7)))
		},
	},
	{
		Name:        "scan",
		Description: "orders placed in January 2024",
		Build: func(b *plan.Builder) plan.NodeID {
			return b.Restrict(b.Get("Orders"), b.And(
				b.GreaterEq(b.Column("Placed"), b.Date("2024-01-01")),
				b.Less(b.Column("Placed"), b.Date("2024-02-01"))))
		},
	},
	{
		Name:        "filter",
		Description: "customers not named X",
		Build: func(b *plan.Builder) plan.NodeID {
			return b.Restrict(b.Get("Customers"), b.NotEq(b.Column("Name"), b.Text("X")))
		},
	},
	{
		Name:        "count",
		Description: "count of an empty table",
		Build: func(b *plan.Builder) plan.NodeID {
			return b.Count(b.Values([]*catalog.Column{catalog.NewColumn("N", types.Integer)}, nil))
		},
	},
	{
		Name:        "avg",
		Description: "average order amount of customer 2",
		Build: func(b *plan.Builder) plan.NodeID {
			return b.Aggregate("Avg", b.Restrict(b.Get("Orders"), b.Eq(b.Column("Customer"), b.Int(2))), "Amount")
		},
	},
	{
		Name:        "browse",
		Description: "customers by name, nils first",
		Browse:      true,
		Build: func(b *plan.Builder) plan.NodeID {
			return b.Browse(b.Get("Customers"), plan.Asc("Name"))
		},
	},
	{
		Name:        "extend",
		Description: "customers with an upper-cased label",
		Build: func(b *plan.Builder) plan.NodeID {
			return b.Extend(b.Get("Customers"), plan.Extension{Name: "Label", Expr: b.Call("Upper", b.Column("Name"))})
		},
	},
	{
		Name:        "adorn",
		Description: "customers with a region default and name key",
		Build: func(b *plan.Builder) plan.NodeID {
			return b.Adorn(b.Get("Customers"), plan.Adornment{
				Defaults: []plan.ColumnDefault{{Column: "Region", Expr: b.Text("unknown")}},
				Keys:     []*catalog.Key{catalog.NewKey("Name")},
			})
		},
	},
}

// Scenarios returns every scenario sorted by name.
func Scenarios() []Scenario {
	out := append([]Scenario(nil), scenarios...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
