package importer

import (
	"context"
	"strings"
	"time"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

// redriveLoop consumes tasks the retry queue scanner has flagged and runs
// the pipeline again for each of them
func (s *Service) redriveLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.queue.Retrying():
			s.redrive(ctx, task)
		}
	}
}

func (s *Service) redrive(ctx context.Context, task models.RetryTask) {
	s.logger.InfoWith(logger.Retry, "Retrying import %s (attempt %d/%d): %s",
		task.TaskID, task.Attempt+1, task.MaxAttempts, task.URL)

	start := time.Now()
	outcome := s.Import(ctx, task.URL)
	observeImport(outcome, time.Since(start))

	req := models.ImportRequest{
		URL:           task.URL,
		RequesterID:   task.UserID,
		CorrelationID: task.TaskID,
	}

	switch outcome.Status {
	case models.ImportCreated, models.ImportPartiallyCreated:
		// A recipe exists now, so the task is done even if it is incomplete
		if err := s.queue.UpdateStatus(ctx, task.TaskID, models.RetryStatusSuccess, ""); err != nil {
			s.logger.ErrorWith(logger.Retry, "Failed to mark task %s done: %v", task.TaskID, err)
		}
		if err := s.notifier.Notify(ctx, req, outcome); err != nil {
			s.logger.ErrorWith(logger.Retry, "Result delivery failed for task %s: %v", task.TaskID, err)
		}
	default:
		status := models.RetryStatusPending
		if strings.Contains(outcome.Reason, "invalid url") {
			// Retrying will never fix a malformed URL
			status = models.RetryStatusFailed
		}
		if err := s.queue.UpdateStatus(ctx, task.TaskID, status, outcome.Reason); err != nil {
			s.logger.ErrorWith(logger.Retry, "Failed to update task %s: %v", task.TaskID, err)
		}
	}
}
