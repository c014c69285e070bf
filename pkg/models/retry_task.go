package models

import (
	"time"
)

// RetryStatus is the lifecycle state of a retry task
type RetryStatus string

const (
	// RetryStatusPending means the task is waiting for its next retry window
	RetryStatusPending RetryStatus = "pending"
	// RetryStatusRetrying means the scheduler flagged the task for an
	// imminent redrive; an external consumer is expected to act on it
	RetryStatusRetrying RetryStatus = "retrying"
	// RetryStatusSuccess means a redrive succeeded; terminal
	RetryStatusSuccess RetryStatus = "success"
	// RetryStatusFailed means a redrive failed; terminal once attempts are
	// exhausted
	RetryStatusFailed RetryStatus = "failed"
)

// RetryTask is a recorded import request that must be redriven later because
// the front-end channel rejected the initial acknowledgement
type RetryTask struct {
	TaskID      string      `json:"task_id"`
	UserID      string      `json:"user_id"`
	URL         string      `json:"url"`
	Attempt     int         `json:"attempt"`
	MaxAttempts int         `json:"max_attempts"`
	NextRetryAt time.Time   `json:"next_retry_at"`
	Status      RetryStatus `json:"status"`
	LastError   string      `json:"last_error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Terminal reports whether the task may never be scheduled again
func (t *RetryTask) Terminal() bool {
	if t.Status == RetryStatusSuccess {
		return true
	}
	return t.Status == RetryStatusFailed && t.Attempt >= t.MaxAttempts
}

// Due reports whether a pending task is eligible for a retry at the given time
func (t *RetryTask) Due(now time.Time) bool {
	return t.Status == RetryStatusPending &&
		t.Attempt < t.MaxAttempts &&
		!t.NextRetryAt.After(now)
}
