package index

import (
	"fmt"

	"github.com/dshills/quantaplan/internal/sql/types"
)

// Range bounds a traversal by order-key prefixes. An empty bound is open.
// Bounds are expressed in index order, so for a descending column the
// value-space upper bound is the Lo side.
type Range struct {
	Lo          []types.Value
	LoInclusive bool
	Hi          []types.Value
	HiInclusive bool
}

// FullRange covers every row.
var FullRange = Range{}

// PointRange covers the rows whose order key starts with key.
func PointRange(key []types.Value) Range {
	return Range{Lo: key, LoInclusive: true, Hi: key, HiInclusive: true}
}

func (r Range) String() string {
	lo, hi := "(", ")"
	if r.LoInclusive {
		lo = "["
	}
	if r.HiInclusive {
		hi = "]"
	}
	return fmt.Sprintf("%s%v, %v%s", lo, r.Lo, r.Hi, hi)
}

func (idx *OrderedIndex) belowLo(r Range, e entry) bool {
	if len(r.Lo) == 0 {
		return false
	}
	if r.LoInclusive {
		return idx.less(e, idx.probe(r.Lo, sideLow))
	}
	return idx.less(e, idx.probe(r.Lo, sideHigh))
}

func (idx *OrderedIndex) aboveHi(r Range, e entry) bool {
	if len(r.Hi) == 0 {
		return false
	}
	if r.HiInclusive {
		return idx.less(idx.probe(r.Hi, sideHigh), e)
	}
	return idx.less(idx.probe(r.Hi, sideLow), e)
}

func (idx *OrderedIndex) inRange(r Range, e entry) bool {
	return !idx.belowLo(r, e) && !idx.aboveHi(r, e)
}

// first returns the lowest entry in r at or above pivot.
func (idx *OrderedIndex) firstFrom(r Range, pivot *entry) (entry, bool) {
	var found entry
	var ok bool
	visit := func(e entry) bool {
		if idx.belowLo(r, e) {
			return true
		}
		if !idx.aboveHi(r, e) {
			found, ok = e, true
		}
		return false
	}
	switch {
	case pivot != nil:
		idx.tree.AscendGreaterOrEqual(*pivot, visit)
	case len(r.Lo) > 0 && r.LoInclusive:
		idx.tree.AscendGreaterOrEqual(idx.probe(r.Lo, sideLow), visit)
	case len(r.Lo) > 0:
		idx.tree.AscendGreaterOrEqual(idx.probe(r.Lo, sideHigh), visit)
	default:
		idx.tree.Ascend(visit)
	}
	return found, ok
}

// lastFrom returns the highest entry in r at or below pivot.
func (idx *OrderedIndex) lastFrom(r Range, pivot *entry) (entry, bool) {
	var found entry
	var ok bool
	visit := func(e entry) bool {
		if idx.aboveHi(r, e) {
			return true
		}
		if !idx.belowLo(r, e) {
			found, ok = e, true
		}
		return false
	}
	switch {
	case pivot != nil:
		idx.tree.DescendLessOrEqual(*pivot, visit)
	case len(r.Hi) > 0 && r.HiInclusive:
		idx.tree.DescendLessOrEqual(idx.probe(r.Hi, sideHigh), visit)
	case len(r.Hi) > 0:
		idx.tree.DescendLessOrEqual(idx.probe(r.Hi, sideLow), visit)
	default:
		idx.tree.Descend(visit)
	}
	return found, ok
}

// after returns the entry following e in r.
func (idx *OrderedIndex) after(r Range, e entry) (entry, bool) {
	var found entry
	var ok bool
	idx.tree.AscendGreaterOrEqual(e, func(item entry) bool {
		if !idx.less(e, item) {
			return true
		}
		if idx.belowLo(r, item) {
			return true
		}
		if !idx.aboveHi(r, item) {
			found, ok = item, true
		}
		return false
	})
	return found, ok
}

// before returns the entry preceding e in r.
func (idx *OrderedIndex) before(r Range, e entry) (entry, bool) {
	var found entry
	var ok bool
	idx.tree.DescendLessOrEqual(e, func(item entry) bool {
		if !idx.less(item, e) {
			return true
		}
		if idx.aboveHi(r, item) {
			return true
		}
		if !idx.belowLo(r, item) {
			found, ok = item, true
		}
		return false
	})
	return found, ok
}
