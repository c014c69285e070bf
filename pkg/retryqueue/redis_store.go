package retryqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

const (
	redisTasksKey = "mealie-importer:retry:tasks"
	redisOrderKey = "mealie-importer:retry:order"
)

// RedisStore keeps retry tasks in a Redis hash so pending redrives survive a
// process restart. Task JSON lives in a hash keyed by task id; a list holds
// the insertion order.
type RedisStore struct {
	client *redis.Client
	logger logger.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed task store
func NewRedisStore(addr, password string, db int, log logger.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Ping to surface connectivity problems early, but keep going so the
	// service can start before Redis does
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.ErrorWith(logger.Retry, "Failed to connect to Redis at %s: %v", addr, err)
	}

	return &RedisStore{client: rdb, logger: log}
}

func (s *RedisStore) Put(ctx context.Context, task *models.RetryTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.TaskID, err)
	}

	exists, err := s.client.HExists(ctx, redisTasksKey, task.TaskID).Result()
	if err != nil {
		return fmt.Errorf("failed to store task %s: %w", task.TaskID, err)
	}
	if err := s.client.HSet(ctx, redisTasksKey, task.TaskID, data).Err(); err != nil {
		return fmt.Errorf("failed to store task %s: %w", task.TaskID, err)
	}
	if !exists {
		if err := s.client.RPush(ctx, redisOrderKey, task.TaskID).Err(); err != nil {
			return fmt.Errorf("failed to record task order for %s: %w", task.TaskID, err)
		}
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, taskID string) (*models.RetryTask, error) {
	data, err := s.client.HGet(ctx, redisTasksKey, taskID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	var task models.RetryTask
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", taskID, err)
	}
	return &task, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*models.RetryTask, error) {
	ids, err := s.client.LRange(ctx, redisOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, redisTasksKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*models.RetryTask, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Order entry without a matching hash field, skip it
			continue
		}
		var task models.RetryTask
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			s.logger.ErrorWith(logger.Retry, "Skipping undecodable task %s: %v", ids[i], err)
			continue
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

func (s *RedisStore) ByUser(ctx context.Context, userID string) ([]*models.RetryTask, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []*models.RetryTask
	for _, task := range all {
		if task.UserID == userID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (s *RedisStore) Remove(ctx context.Context, taskID string) error {
	if err := s.client.HDel(ctx, redisTasksKey, taskID).Err(); err != nil {
		return fmt.Errorf("failed to remove task %s: %w", taskID, err)
	}
	if err := s.client.LRem(ctx, redisOrderKey, 0, taskID).Err(); err != nil {
		return fmt.Errorf("failed to remove task order for %s: %w", taskID, err)
	}
	return nil
}

// Close releases the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
