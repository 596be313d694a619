package batcher

import "errors"

// Configuration errors. They are returned by Validate (and Run) before any
// action is fired; wrap-compatible with errors.Is.
var (
	ErrInvalidConfig    = errors.New("invalid batcher config")
	ErrUnknownMethod    = errors.New("unknown batching method")
	ErrInvalidHost      = errors.New("invalid host")
	ErrMissingRoutine   = errors.New("missing dispatch routine")
	ErrInvalidPredicate = errors.New("invalid completion predicate")
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopPredicate StopReason = "predicate"
	StopBatchCap  StopReason = "batch_cap"
	StopCanceled  StopReason = "canceled"
)
