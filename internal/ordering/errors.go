package ordering

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("ordering: invalid request")

// ValidationError rejects a request before any write is issued.
type ValidationError struct {
	Op        string
	Reason    string
	Missing   []string
	Unknown   []string
	Duplicate []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, e.Reason)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "; missing %s", strings.Join(e.Missing, ","))
	}
	if len(e.Unknown) > 0 {
		fmt.Fprintf(&b, "; not in scope %s", strings.Join(e.Unknown, ","))
	}
	if len(e.Duplicate) > 0 {
		fmt.Fprintf(&b, "; repeated %s", strings.Join(e.Duplicate, ","))
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// WriteError is a single store write that failed. ID is empty for a create
// whose id was never assigned.
type WriteError struct {
	ID  string
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// BatchError reports the writes of one fan-out that did not land. The writes
// that succeeded are not rolled back, so the scope may hold gaps or duplicate
// orders until the caller re-fetches and retries.
type BatchError struct {
	Op        string
	Attempted int
	Failures  []*WriteError
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		parts = append(parts, failure.Error())
	}
	return fmt.Sprintf("%s: %d of %d writes failed: %s", e.Op, len(e.Failures), e.Attempted, strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		errs = append(errs, failure)
	}
	return errs
}

// FailedIDs lists the record ids whose write failed, skipping unassigned ids.
func (e *BatchError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		if failure.ID != "" {
			ids = append(ids, failure.ID)
		}
	}
	return ids
}

// Partial reports whether at least one write of the batch landed.
func (e *BatchError) Partial() bool {
	return len(e.Failures) < e.Attempted
}
