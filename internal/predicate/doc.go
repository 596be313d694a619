// Package predicate builds completion predicates for batcher runs: a
// JavaScript expression over the run snapshot, a cron-style wall-clock stop,
// and a stop file watched on disk.
package predicate
