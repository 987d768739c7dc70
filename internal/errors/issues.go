package errors

import (
	"slices"
	"sync"
)

// Issues collects per-record problems that do not abort a run.
// The zero value is ready to use and safe for concurrent use.
type Issues struct {
	mu   sync.Mutex
	list []*EnhancedError
}

// Add records a problem. Errors that are not EnhancedErrors are wrapped as generic.
func (is *Issues) Add(err error) {
	if err == nil {
		return
	}
	var ee *EnhancedError
	if !As(err, &ee) {
		ee = New(err).Priority(PriorityLow).Build()
	}
	is.mu.Lock()
	is.list = append(is.list, ee)
	is.mu.Unlock()
}

// Merge appends every issue from other.
func (is *Issues) Merge(other *Issues) {
	if other == nil || other == is {
		return
	}
	for _, ee := range other.All() {
		is.Add(ee)
	}
}

// All returns a snapshot of the collected issues in insertion order.
func (is *Issues) All() []*EnhancedError {
	is.mu.Lock()
	defer is.mu.Unlock()
	return slices.Clone(is.list)
}

// Len returns the number of collected issues.
func (is *Issues) Len() int {
	is.mu.Lock()
	defer is.mu.Unlock()
	return len(is.list)
}

// Count returns how many issues carry the given category.
func (is *Issues) Count(category ErrorCategory) int {
	is.mu.Lock()
	defer is.mu.Unlock()
	n := 0
	for _, ee := range is.list {
		if ee.Category == category {
			n++
		}
	}
	return n
}

// Summary returns issue counts keyed by category.
func (is *Issues) Summary() map[ErrorCategory]int {
	is.mu.Lock()
	defer is.mu.Unlock()
	out := make(map[ErrorCategory]int)
	for _, ee := range is.list {
		out[ee.Category]++
	}
	return out
}

// Err joins every issue into a single error, or returns nil when empty.
func (is *Issues) Err() error {
	all := is.All()
	if len(all) == 0 {
		return nil
	}
	errs := make([]error, len(all))
	for i, ee := range all {
		errs[i] = ee
	}
	return Join(errs...)
}
