package document

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrFileTooLarge        = errors.New("file too large")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrJSONRepairExhausted = errors.New("json repair exhausted")
	ErrTimeout             = errors.New("timeout")
)

// ExtractionError carries the reason an extractor gave up.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed: %s", e.Reason)
	}
	return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtractionFailed}
	}
	return []error{ErrExtractionFailed, e.Err}
}

// TaskError reports a failed AI task together with its cause.
type TaskError struct {
	Task Task
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("ai task %s failed: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// FailedTasks lists the tasks named by TaskErrors inside err.
func FailedTasks(err error) []Task {
	if err == nil {
		return nil
	}
	var out []Task
	var walk func(error)
	walk = func(e error) {
		if te, ok := e.(*TaskError); ok {
			out = append(out, te.Task)
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if inner := errors.Unwrap(e); inner != nil {
			walk(inner)
		}
	}
	walk(err)
	return out
}
