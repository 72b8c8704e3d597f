package plan

import (
	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// GetOp reads a base table variable from its device.
type GetOp struct {
	baseOp
	Table string
}

func (*GetOp) Kind() Kind { return KindGet }

func (o *GetOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	tv, err := b.ResolveCatalogIdentifier(o.Table)
	if err != nil {
		return err
	}
	n.TableVar = tv
	n.Order = tv.OrderForKey(tv.ClusteredKey())
	n.Capabilities = cursor.Navigable | cursor.BackwardsNavigable | cursor.Bookmarkable |
		cursor.Searchable | cursor.Countable | cursor.Updateable
	if b.devices != nil {
		n.Device = b.devices(o.Table)
	}
	return nil
}

func (o *GetOp) shouldSupport() bool { return true }

func (o *GetOp) tolerateUnsupported() bool { return false }

func (o *GetOp) open(ec *ExecContext, env *Env, p *Plan, n *Node) (cursor.Cursor, error) {
	return nil, errors.FeatureNotSupportedError("reading " + o.Table + " without a device")
}

func (o *GetOp) clone() Operator { return &GetOp{Table: o.Table} }

// ValuesOp is an inline table.
type ValuesOp struct {
	baseOp
	Columns []*catalog.Column
	Rows    [][]types.Value
	Keys    []*catalog.Key
}

func (*ValuesOp) Kind() Kind { return KindValues }

func (o *ValuesOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	tv := catalog.NewTableVar("", o.Columns, o.Keys...)
	if err := tv.Validate(); err != nil {
		return err
	}
	for _, row := range o.Rows {
		if len(row) != len(o.Columns) {
			return errors.Newf(errors.SyntaxError, "row has %d values, table has %d columns", len(row), len(o.Columns))
		}
		for i, v := range row {
			col := o.Columns[i]
			if v.Null {
				if !col.IsNilable {
					return errors.NotNullViolationError(col.Name, "table")
				}
				continue
			}
			if !col.DataType.IsValid(v) {
				return errors.TypeMismatchError(col.DataType.Name(), v.Type().Name(), col.Name)
			}
		}
	}
	n.TableVar = tv
	n.Capabilities = cursor.Navigable | cursor.BackwardsNavigable | cursor.Countable
	return nil
}

func (o *ValuesOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsLiteral = true
}

func (o *ValuesOp) open(ec *ExecContext, env *Env, p *Plan, n *Node) (cursor.Cursor, error) {
	rows := make([]*cursor.Row, len(o.Rows))
	for i, r := range o.Rows {
		rows[i] = cursor.NewRow(append([]types.Value(nil), r...)...)
	}
	return cursor.NewSliceCursor(rows), nil
}

func (o *ValuesOp) clone() Operator {
	return &ValuesOp{Columns: o.Columns, Rows: o.Rows, Keys: o.Keys}
}
