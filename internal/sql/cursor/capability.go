package cursor

import (
	"fmt"
	"strings"
)

// Capability is a set of cursor capabilities.
type Capability uint8

const (
	Navigable Capability = 1 << iota
	BackwardsNavigable
	Bookmarkable
	Searchable
	Countable
	Updateable
	Elaborable

	None Capability = 0
	All             = Navigable | BackwardsNavigable | Bookmarkable | Searchable | Countable | Updateable | Elaborable
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{Navigable, "navigable"},
	{BackwardsNavigable, "backwardsnavigable"},
	{Bookmarkable, "bookmarkable"},
	{Searchable, "searchable"},
	{Countable, "countable"},
	{Updateable, "updateable"},
	{Elaborable, "elaborable"},
}

// Has reports whether every capability in other is present.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// Intersect returns the capabilities present in both sets.
func (c Capability) Intersect(other Capability) Capability {
	return c & other
}

func (c Capability) String() string {
	if c == None {
		return "{ }"
	}
	var parts []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// ParseCapabilities parses capability names, case-insensitively.
func ParseCapabilities(names []string) (Capability, error) {
	var c Capability
	for _, name := range names {
		found := false
		for _, n := range capabilityNames {
			if strings.EqualFold(strings.TrimSpace(name), n.name) {
				c |= n.c
				found = true
				break
			}
		}
		if !found {
			return None, fmt.Errorf("unknown cursor capability %q", name)
		}
	}
	return c, nil
}
