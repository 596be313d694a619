package host

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Host is one entry of the inventory.
type Host struct {
	Name string
	// Access is false for hosts that are known but not usable.
	Access bool
}

// Inventory resolves host names and knows which routines are installed.
type Inventory struct {
	hosts    map[string]Host
	routines map[string]bool

	// Runner, when set, is consulted for routines not listed explicitly:
	// a routine exists if its executable exists.
	Runner *CommandRunner
}

func NewInventory(hosts []Host, routines []string) *Inventory {
	inv := &Inventory{hosts: map[string]Host{}, routines: map[string]bool{}}
	for _, h := range hosts {
		name := strings.TrimSpace(h.Name)
		if name == "" {
			continue
		}
		h.Name = name
		inv.hosts[name] = h
	}
	for _, r := range routines {
		if r = strings.TrimSpace(r); r != "" {
			inv.routines[r] = true
		}
	}
	return inv
}

// Resolve reports whether name is a known host the caller may use.
func (inv *Inventory) Resolve(_ context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownHost)
	}
	h, ok := inv.hosts[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHost, name)
	}
	if !h.Access {
		return fmt.Errorf("%w: %q", ErrNoAccess, name)
	}
	return nil
}

// HasRoutine reports whether routine can be dispatched.
func (inv *Inventory) HasRoutine(routine string) bool {
	if inv.routines[routine] {
		return true
	}
	if inv.Runner == nil {
		return false
	}
	st, err := os.Stat(inv.Runner.Path(routine))
	return err == nil && !st.IsDir() && st.Mode()&0o111 != 0
}
