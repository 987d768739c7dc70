// Package metrics provides the Prometheus metrics of an esxtool run.
package metrics

import (
	"time"

	"github.com/esxtool/esxtool/internal/errors"
)

// Recorder defines a minimal interface for recording metrics.
// Commands depend on it rather than on RunMetrics so they can run without
// a registry.
type Recorder interface {
	// RecordOperation records a pipeline step with its status.
	// The operation parameter is one of the Op constants.
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records a failed operation with its error category.
	RecordError(operation, errorType string)
}

// NoOpRecorder is a no-op implementation of the Recorder interface.
// It is used when no metrics file is configured.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (NoOpRecorder) RecordOperation(operation, status string) {}

// RecordDuration does nothing.
func (NoOpRecorder) RecordDuration(operation string, seconds float64) {}

// RecordError does nothing.
func (NoOpRecorder) RecordError(operation, errorType string) {}

// Track runs fn and records its outcome and duration under operation.
// A failed run is also recorded as an error labelled with its category.
func Track(rec Recorder, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	rec.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		rec.RecordOperation(operation, StatusError)
		rec.RecordError(operation, errorCategory(err))
		return err
	}
	rec.RecordOperation(operation, StatusSuccess)
	return nil
}

func errorCategory(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.Category != "" {
		return string(ee.Category)
	}
	return string(errors.CategoryGeneric)
}
