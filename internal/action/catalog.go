package action

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies one action class.
type Kind string

const (
	Hack   Kind = "hack"
	Grow   Kind = "grow"
	Weaken Kind = "weaken"
)

func (k Kind) String() string { return string(k) }

// ParseKind normalizes a kind name ("HACK", " hack ") into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return "", fmt.Errorf("action kind required")
	}
	return k, nil
}

// Entry describes how a kind is dispatched.
type Entry struct {
	// Routine is the name of the dispatch routine on the hosting resource.
	Routine string
	// Weight is the number of execution units one dispatch consumes.
	Weight int
}

// Catalog maps action kinds to their dispatch entry. It is immutable once
// built; With* helpers return copies.
type Catalog struct {
	entries map[Kind]Entry
}

// DefaultCatalog returns the built-in routines with a weight of 1 each.
func DefaultCatalog() Catalog {
	return Catalog{entries: map[Kind]Entry{
		Hack:   {Routine: "instant_hack", Weight: 1},
		Grow:   {Routine: "instant_grow", Weight: 1},
		Weaken: {Routine: "instant_weaken", Weight: 1},
	}}
}

// NewCatalog builds a catalog from explicit entries.
func NewCatalog(entries map[Kind]Entry) Catalog {
	m := make(map[Kind]Entry, len(entries))
	for k, e := range entries {
		if e.Weight <= 0 {
			e.Weight = 1
		}
		m[k] = e
	}
	return Catalog{entries: m}
}

// Lookup returns the entry registered for kind.
func (c Catalog) Lookup(k Kind) (Entry, bool) {
	e, ok := c.entries[k]
	return e, ok
}

// Weight returns the concurrency weight for kind, or 1 when unknown.
func (c Catalog) Weight(k Kind) int {
	if e, ok := c.entries[k]; ok && e.Weight > 0 {
		return e.Weight
	}
	return 1
}

// WithWeights returns a copy with the given per-kind weights applied.
// Kinds that are not registered are ignored.
func (c Catalog) WithWeights(w map[Kind]int) Catalog {
	out := c.clone()
	for k, v := range w {
		e, ok := out.entries[k]
		if !ok || v <= 0 {
			continue
		}
		e.Weight = v
		out.entries[k] = e
	}
	return out
}

// WithRoutines returns a copy with routine names overridden (and kinds added
// when missing).
func (c Catalog) WithRoutines(r map[Kind]string) Catalog {
	out := c.clone()
	for k, v := range r {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		e := out.entries[k]
		e.Routine = v
		if e.Weight <= 0 {
			e.Weight = 1
		}
		out.entries[k] = e
	}
	return out
}

// Kinds returns the registered kinds sorted by name.
func (c Catalog) Kinds() []Kind {
	ks := make([]Kind, 0, len(c.entries))
	for k := range c.entries {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i] < ks[j] })
	return ks
}

func (c Catalog) clone() Catalog {
	m := make(map[Kind]Entry, len(c.entries))
	for k, e := range c.entries {
		m[k] = e
	}
	return Catalog{entries: m}
}
