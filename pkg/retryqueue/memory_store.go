package retryqueue

import (
	"context"
	"sync"

	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

// MemoryStore is a mutex-guarded in-memory task store. Tasks do not survive
// a process restart; use RedisStore when that matters.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]models.RetryTask
	order []string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]models.RetryTask),
	}
}

func (s *MemoryStore) Put(_ context.Context, task *models.RetryTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.TaskID]; !exists {
		s.order = append(s.order, task.TaskID)
	}
	s.tasks[task.TaskID] = *task
	return nil
}

func (s *MemoryStore) Get(_ context.Context, taskID string) (*models.RetryTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.RetryTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*models.RetryTask, 0, len(s.order))
	for _, id := range s.order {
		task := s.tasks[id]
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

func (s *MemoryStore) ByUser(_ context.Context, userID string) ([]*models.RetryTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*models.RetryTask
	for _, id := range s.order {
		if task := s.tasks[id]; task.UserID == userID {
			t := task
			tasks = append(tasks, &t)
		}
	}
	return tasks, nil
}

func (s *MemoryStore) Remove(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return nil
	}
	delete(s.tasks, taskID)
	for i, id := range s.order {
		if id == taskID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
