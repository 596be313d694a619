package action

import (
	"fmt"
	"sort"
	"strings"
)

// Order is a named, immutable sequence of kinds defining one batch.
// The sequence is the completion order, not the dispatch order.
type Order struct {
	name  string
	kinds []Kind
}

// NewOrder validates and builds an order.
func NewOrder(name string, kinds ...Kind) (Order, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Order{}, fmt.Errorf("order name required")
	}
	if len(kinds) == 0 {
		return Order{}, fmt.Errorf("order %q: empty", name)
	}
	cp := make([]Kind, len(kinds))
	for i, k := range kinds {
		if k == "" {
			return Order{}, fmt.Errorf("order %q: empty kind at position %d", name, i)
		}
		cp[i] = k
	}
	return Order{name: name, kinds: cp}, nil
}

func mustOrder(name string, kinds ...Kind) Order {
	o, err := NewOrder(name, kinds...)
	if err != nil {
		panic(err)
	}
	return o
}

var builtinOrders = map[string]Order{
	"hwgw": mustOrder("hwgw", Hack, Weaken, Grow, Weaken),
	// Target already sits below the minimum security the extra weaken would buy.
	"hgw": mustOrder("hgw", Hack, Grow, Weaken),
	// Preparation batches.
	"gw": mustOrder("gw", Grow, Weaken),
	"w":  mustOrder("w", Weaken),
}

// LookupOrder returns a built-in order by name.
func LookupOrder(name string) (Order, bool) {
	o, ok := builtinOrders[strings.ToLower(strings.TrimSpace(name))]
	return o, ok
}

// OrderNames lists the built-in order names, sorted.
func OrderNames() []string {
	names := make([]string, 0, len(builtinOrders))
	for n := range builtinOrders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (o Order) Name() string { return o.name }
func (o Order) Len() int     { return len(o.kinds) }
func (o Order) IsZero() bool { return len(o.kinds) == 0 }

// At returns the kind at position i.
func (o Order) At(i int) Kind { return o.kinds[i] }

// Kinds returns a copy of the sequence.
func (o Order) Kinds() []Kind { return append([]Kind(nil), o.kinds...) }

// Distinct returns each kind once, in order of first appearance.
func (o Order) Distinct() []Kind {
	seen := make(map[Kind]struct{}, len(o.kinds))
	out := make([]Kind, 0, len(o.kinds))
	for _, k := range o.kinds {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (o Order) String() string {
	parts := make([]string, len(o.kinds))
	for i, k := range o.kinds {
		parts[i] = string(k)
	}
	return o.name + "[" + strings.Join(parts, " ") + "]"
}

// IndexMap lists, per kind, the ascending positions it occupies in an order.
//
//	[hack grow grow weaken hack] => {hack: [0 4], grow: [1 2], weaken: [3]}
type IndexMap map[Kind][]int

// IndexMap derives the per-kind positions of o.
func (o Order) IndexMap() IndexMap {
	m := make(IndexMap, len(o.kinds))
	for i, k := range o.kinds {
		m[k] = append(m[k], i)
	}
	return m
}
