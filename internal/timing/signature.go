package timing

import (
	"fmt"
	"strconv"
	"strings"

	"instabatch/internal/action"
)

// Signature identifies one scheduled firing: kind, batch and position.
type Signature struct {
	Kind     action.Kind `json:"kind"`
	Batch    int         `json:"batch"`
	Position int         `json:"position"`
}

// String renders "kind-batch-position", e.g. "weaken-3-1".
func (s Signature) String() string {
	return string(s.Kind) + "-" + strconv.Itoa(s.Batch) + "-" + strconv.Itoa(s.Position)
}

// ParseSignature is the inverse of Signature.String.
func ParseSignature(raw string) (Signature, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 3 || parts[0] == "" {
		return Signature{}, fmt.Errorf("invalid signature %q", raw)
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil || b < 0 {
		return Signature{}, fmt.Errorf("invalid signature batch in %q", raw)
	}
	p, err := strconv.Atoi(parts[2])
	if err != nil || p < 0 {
		return Signature{}, fmt.Errorf("invalid signature position in %q", raw)
	}
	return Signature{Kind: action.Kind(parts[0]), Batch: b, Position: p}, nil
}
