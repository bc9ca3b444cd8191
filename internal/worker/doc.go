// Package worker contains the task execution engine: the serial loop
// that claims queued tasks and the executor that drives one task
// through dispatch, polling, extraction and artifact persistence.
package worker
