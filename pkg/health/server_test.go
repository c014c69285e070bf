package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
	"github.com/mealdrop-hq/mealie-importer/pkg/retryqueue"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(_ context.Context) error {
	return p.err
}

func newTestServer(t *testing.T, pinger Pinger) (*Server, *retryqueue.Queue) {
	t.Helper()
	log := &logger.EmptyLogger{}
	queue := retryqueue.New(retryqueue.NewMemoryStore(), log, 3, 30*time.Second)
	return NewServer("8080", pinger, queue, log), queue
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &stubPinger{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReadyEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &stubPinger{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyEndpointBackendDown(t *testing.T) {
	server, _ := newTestServer(t, &stubPinger{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestStatusEndpoint(t *testing.T) {
	server, queue := newTestServer(t, &stubPinger{})
	ctx := context.Background()

	_, err := queue.AddTask(ctx, "task-1", "user-1", "https://example.com/a")
	require.NoError(t, err)
	_, err = queue.AddTask(ctx, "task-2", "user-1", "https://example.com/b")
	require.NoError(t, err)
	require.NoError(t, queue.UpdateStatus(ctx, "task-2", models.RetryStatusSuccess, ""))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		RetryQueue map[string]int `json:"retry_queue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.RetryQueue["pending"])
	assert.Equal(t, 1, status.RetryQueue["success"])
	assert.Equal(t, 0, status.RetryQueue["failed"])
}

func TestRemoveTaskEndpoint(t *testing.T) {
	server, queue := newTestServer(t, &stubPinger{})
	ctx := context.Background()

	_, err := queue.AddTask(ctx, "task-1", "user-1", "https://example.com/a")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/retry/remove?task=task-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	task, err := queue.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Nil(t, task)

	// Removing again is a 404
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/retry/remove?task=task-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// GET is not allowed
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/retry/remove?task=task-1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsAuth(t *testing.T) {
	server, _ := newTestServer(t, &stubPinger{})
	server.metricsAPIKey = "secret"
	handler := server.Handler()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMetricsNoAuthConfigured(t *testing.T) {
	server, _ := newTestServer(t, &stubPinger{})
	server.metricsAPIKey = ""

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
