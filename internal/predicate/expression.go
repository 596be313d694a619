package predicate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"instabatch/internal/batcher"
)

// Expression compiles src into a predicate. src is a JavaScript expression
// evaluated against the snapshot, e.g. "batchesCount >= 10".
//
// Available names: batchesCount, actionsCount, batchIndex, actionIndex,
// firedCount, actionSignature, firedSignatures, batchingMethod, targetHost,
// hostingHost, actionInterval (milliseconds), drift (milliseconds).
//
// Compile errors are reported as batcher.ErrInvalidPredicate. A runtime
// error evaluates to false.
func Expression(src string) (batcher.CompletionPredicate, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("%w: empty expression", batcher.ErrInvalidPredicate)
	}
	prog, err := goja.Compile("stop", src, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", batcher.ErrInvalidPredicate, err)
	}

	var mu sync.Mutex
	vm := goja.New()
	return func(s batcher.Snapshot) bool {
		mu.Lock()
		defer mu.Unlock()
		for k, v := range vars(s) {
			if err := vm.Set(k, v); err != nil {
				return false
			}
		}
		val, err := vm.RunProgram(prog)
		if err != nil {
			return false
		}
		return val.ToBoolean()
	}, nil
}

func vars(s batcher.Snapshot) map[string]any {
	return map[string]any{
		"batchesCount":    s.BatchesCount,
		"actionsCount":    s.ActionsCount,
		"batchIndex":      s.BatchIndex,
		"actionIndex":     s.ActionIndex,
		"firedCount":      s.FiredCount,
		"actionSignature": s.ActionSignature,
		"firedSignatures": append([]string{}, s.FiredSignatures...),
		"batchingMethod":  s.BatchingMethod,
		"targetHost":      s.TargetHost,
		"hostingHost":     s.HostingHost,
		"actionInterval":  s.ActionInterval.Milliseconds(),
		"drift":           s.Drift.Milliseconds(),
	}
}
