// Package ai talks to the text completion backends used for analysis.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/mindgest/internal/document"
)

// Request is one completion call for an analysis task. Content is the
// document text (or partial summaries) the task works on.
type Request struct {
	Task      document.Task
	Content   string
	MaxTokens int
}

// NewRequest builds a request with the task's default token budget.
func NewRequest(task document.Task, content string) Request {
	return Request{Task: task, Content: content, MaxTokens: MaxTokens[task]}
}

// Completer turns a task request into model text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// MaxTokens is the completion budget per task.
var MaxTokens = map[document.Task]int{
	document.TaskSummary:   2200,
	document.TaskKeyPoints: 800,
	document.TaskOutline:   1500,
	document.TaskMindMap:   2000,
}

// policyMarker is the error code upstream moderation returns for rejected
// input.
const policyMarker = "data_inspection_failed"

// RetryableError indicates the backend asked us to slow down.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// PolicyError indicates the backend rejected the input on content grounds.
type PolicyError struct {
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("content policy rejection: %s", truncate(e.Message, 200))
}

// StatusError is a non-retryable HTTP failure from a backend.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai backend status %d: %s", e.StatusCode, truncate(e.Message, 200))
}

// IsContentPolicy reports whether err is a moderation rejection.
func IsContentPolicy(err error) bool {
	if err == nil {
		return false
	}
	var pe *PolicyError
	if errors.As(err, &pe) {
		return true
	}
	return strings.Contains(err.Error(), policyMarker)
}

// IsRetryable reports whether err is a rate limit worth retrying.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// classifyStatus maps a failed HTTP status and body to a typed error.
func classifyStatus(status int, body string) error {
	switch {
	case strings.Contains(body, policyMarker):
		return &PolicyError{Message: body}
	case status == 429:
		return &RetryableError{StatusCode: status, Message: body}
	default:
		return &StatusError{StatusCode: status, Message: body}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
