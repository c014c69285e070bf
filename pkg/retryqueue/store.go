// Package retryqueue schedules failed import requests for later redrive.
package retryqueue

import (
	"context"

	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

// Store persists retry tasks keyed by task id. Implementations must preserve
// insertion order for List and ByUser, and Put must overwrite an existing
// task in place without changing its position.
type Store interface {
	// Put inserts or overwrites a task
	Put(ctx context.Context, task *models.RetryTask) error

	// Get returns the task with the given id, or nil if it does not exist
	Get(ctx context.Context, taskID string) (*models.RetryTask, error)

	// List returns all tasks in insertion order
	List(ctx context.Context) ([]*models.RetryTask, error)

	// ByUser returns the tasks belonging to a user in insertion order
	ByUser(ctx context.Context, userID string) ([]*models.RetryTask, error)

	// Remove deletes a task; removing an unknown id is not an error
	Remove(ctx context.Context, taskID string) error
}
