// Package engine provides storage devices that execute plan subtrees
// natively. The memory engine keeps each table in ordered btree indexes
// and serves reads, ordered reads and, optionally, restrictions.
package engine

import (
	"sync/atomic"

	"github.com/dshills/quantaplan/internal/config"
	"github.com/dshills/quantaplan/internal/index"
)

// Options configure a memory engine.
type Options struct {
	// Name identifies the device in negotiation messages.
	Name string

	// BTreeDegree sizes the table indexes.
	BTreeDegree int

	// NativeRestrict lets the engine evaluate restrictions over its own
	// tables instead of leaving them to the host.
	NativeRestrict bool
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{Name: "Memory", BTreeDegree: index.DefaultDegree}
}

// OptionsFromConfig derives engine options from the device configuration.
func OptionsFromConfig(cfg config.DeviceConfig) Options {
	return Options{
		Name:           cfg.Name,
		BTreeDegree:    cfg.BTreeDegree,
		NativeRestrict: cfg.NativeRestrict,
	}
}

// Stats counts negotiation and execution events.
type Stats struct {
	Prepared  atomic.Int64
	CacheHits atomic.Int64
	Declined  atomic.Int64
	Opened    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Prepared  int64
	CacheHits int64
	Declined  int64
	Opened    int64
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Prepared:  s.Prepared.Load(),
		CacheHits: s.CacheHits.Load(),
		Declined:  s.Declined.Load(),
		Opened:    s.Opened.Load(),
	}
}
