package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/metrics"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
	"github.com/mealdrop-hq/mealie-importer/pkg/retryqueue"
)

// MealieClient is the slice of the Mealie API the import pipeline needs
type MealieClient interface {
	CreateRecipeFromURL(ctx context.Context, recipeURL string, tags []string) (string, error)
	GetRecipe(ctx context.Context, slug string) (*models.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *models.Recipe) (string, error)
	RecipeURL(slug string) string
}

// Extractor produces a structured recipe from a page the primary parser
// could not handle
type Extractor interface {
	ExtractRecipe(ctx context.Context, url string) (*models.Recipe, error)
}

// Options carries the tunables for an import service
type Options struct {
	DefaultTags []string
	AckTimeout  time.Duration
	WorkerCount int
}

// Service runs the two-stage import pipeline. Requests are acknowledged
// synchronously and processed by a worker pool; requests whose
// acknowledgement fails are parked in the retry queue instead.
type Service struct {
	mealie    MealieClient
	extractor Extractor // nil when AI fallback is disabled
	tags      *Reconciler
	queue     *retryqueue.Queue
	notifier  Notifier
	logger    logger.Logger
	opts      Options

	jobs chan models.ImportRequest
	wg   sync.WaitGroup
}

// NewService creates an import service
func NewService(
	client MealieClient,
	extractor Extractor,
	tags *Reconciler,
	queue *retryqueue.Queue,
	notifier Notifier,
	log logger.Logger,
	opts Options,
) *Service {
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	return &Service{
		mealie:    client,
		extractor: extractor,
		tags:      tags,
		queue:     queue,
		notifier:  notifier,
		logger:    log,
		opts:      opts,
		jobs:      make(chan models.ImportRequest, opts.WorkerCount*2),
	}
}

// Start launches the worker pool and the redrive consumer
func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.wg.Add(1)
	go s.redriveLoop(ctx)
	s.logger.InfoWith(logger.Import, "Started %d import workers", s.opts.WorkerCount)
}

// Wait blocks until all workers have exited
func (s *Service) Wait() {
	s.wg.Wait()
}

// Submit acknowledges the request and hands it to the worker pool. If the
// acknowledgement cannot be delivered the request is parked in the retry
// queue instead of being processed, since its result would be undeliverable
// too.
func (s *Service) Submit(ctx context.Context, req models.ImportRequest) error {
	ackCtx, cancel := context.WithTimeout(ctx, s.opts.AckTimeout)
	defer cancel()

	if err := s.notifier.Ack(ackCtx, req); err != nil {
		metrics.AckFailures.Inc()
		s.logger.ErrorWith(logger.Import, "Ack failed for request %s: %v", req.CorrelationID, err)
		if _, qErr := s.queue.AddTask(ctx, req.CorrelationID, req.RequesterID, req.URL); qErr != nil {
			return fmt.Errorf("ack failed and task not queued: %w", qErr)
		}
		return fmt.Errorf("ack failed, request queued for retry: %w", err)
	}

	select {
	case s.jobs <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	s.logger.DebugWith(logger.Import, "Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			s.logger.DebugWith(logger.Import, "Worker %d stopping", id)
			return
		case req := <-s.jobs:
			s.process(ctx, req)
		}
	}
}

func (s *Service) process(ctx context.Context, req models.ImportRequest) {
	start := time.Now()
	outcome := s.Import(ctx, req.URL)
	observeImport(outcome, time.Since(start))

	if err := s.notifier.Notify(ctx, req, outcome); err != nil {
		metrics.AckFailures.Inc()
		s.logger.ErrorWith(logger.Import, "Result delivery failed for request %s: %v", req.CorrelationID, err)
		if _, qErr := s.queue.AddTask(ctx, req.CorrelationID, req.RequesterID, req.URL); qErr != nil {
			s.logger.ErrorWith(logger.Import, "Failed to queue request %s: %v", req.CorrelationID, qErr)
		}
	}
}

func observeImport(outcome models.ImportOutcome, elapsed time.Duration) {
	method := string(outcome.Method)
	if method == "" {
		method = "none"
	}
	metrics.ImportsTotal.WithLabelValues(method, string(outcome.Status)).Inc()
	metrics.ImportDuration.WithLabelValues(string(outcome.Status)).Observe(elapsed.Seconds())
}
