package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no artifact or metadata exists for a symbol.
var ErrNotFound = errors.New("model not found")

// FeatureError means the raw inputs cannot produce a valid feature matrix
// (malformed or insufficient history). It aborts the whole training call.
type FeatureError struct {
	Reason string
}

func (e *FeatureError) Error() string { return "features: " + e.Reason }

// Featuref builds a FeatureError with a formatted reason.
func Featuref(format string, args ...any) error {
	return &FeatureError{Reason: fmt.Sprintf(format, args...)}
}

// TrainingError is scoped to one (horizon, task). It is recorded against
// that horizon and never aborts sibling horizons.
type TrainingError struct {
	Horizon int
	Task    TaskKind
	Err     error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("train %s h=%d: %v", e.Task, e.Horizon, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }

// PredictionError means a prediction cannot be produced at all: a missing
// artifact or a feature-schema mismatch. No partial result accompanies it.
type PredictionError struct {
	Symbol string
	Reason string
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("predict %s: %s", e.Symbol, e.Reason)
}

// PersistenceError wraps an I/O failure on save or load. A save failure
// after an in-memory training success is reported alongside the success,
// never instead of it.
type PersistenceError struct {
	Op  string // "save" or "load"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
