// Package action holds the static tables the batcher schedules from:
// action kinds with their dispatch routine and concurrency weight, and the
// named action orders that make up one batch.
package action
