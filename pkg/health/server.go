package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
	"github.com/mealdrop-hq/mealie-importer/pkg/retryqueue"
)

// Pinger checks connectivity to the Mealie backend
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents a health check HTTP server
type Server struct {
	port          string
	mealie        Pinger
	queue         *retryqueue.Queue
	logger        logger.Logger
	metricsAPIKey string
}

// NewServer creates a new health check server
func NewServer(port string, mealie Pinger, queue *retryqueue.Queue, log logger.Logger) *Server {
	return &Server{
		port:          port,
		mealie:        mealie,
		queue:         queue,
		logger:        log,
		metricsAPIKey: os.Getenv("METRICS_API_KEY"),
	}
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler builds the server's route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness requires a reachable Mealie backend
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.mealie.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Mealie not reachable: " + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	// Retry queue status endpoint
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.queue.Snapshot(r.Context())
		if err != nil {
			http.Error(w, "Failed to read retry queue: "+err.Error(), http.StatusInternalServerError)
			return
		}

		status := map[string]interface{}{
			"retry_queue": map[string]int{
				"pending":  counts[models.RetryStatusPending],
				"retrying": counts[models.RetryStatusRetrying],
				"success":  counts[models.RetryStatusSuccess],
				"failed":   counts[models.RetryStatusFailed],
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			s.logger.ErrorWith(logger.Health, "Error encoding status JSON: %v", err)
		}
	})

	// Admin control to drop a stuck task from the queue
	mux.HandleFunc("/retry/remove", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		taskID := r.URL.Query().Get("task")
		if taskID == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Missing task parameter"))
			return
		}

		task, err := s.queue.GetTask(r.Context(), taskID)
		if err != nil {
			http.Error(w, "Failed to read task: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if task == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("No such task: " + taskID))
			return
		}

		if err := s.queue.RemoveTask(r.Context(), taskID); err != nil {
			http.Error(w, "Failed to remove task: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Task " + taskID + " removed"))
	})

	// Expose Prometheus metrics with API key authentication
	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	return mux
}

// Start starts the health check server
func (s *Server) Start() {
	s.logger.InfoWith(logger.Health, "Starting health and metrics server on port %s", s.port)
	if err := http.ListenAndServe(":"+s.port, s.Handler()); err != nil {
		s.logger.ErrorWith(logger.Health, "Health server error: %v", err)
	}
}
