package predicate

import "instabatch/internal/batcher"

// Any is true when one of ps is. Nil entries are skipped; with no
// predicates left it returns nil (never stop).
func Any(ps ...batcher.CompletionPredicate) batcher.CompletionPredicate {
	live := make([]batcher.CompletionPredicate, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(s batcher.Snapshot) bool {
		for _, p := range live {
			if p(s) {
				return true
			}
		}
		return false
	}
}
