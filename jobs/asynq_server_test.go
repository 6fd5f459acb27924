package jobs

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type memoryEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (e *memoryEnqueuer) Enqueue(_ context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type()}, nil
}

func newJobsRouter(enq Enqueuer) http.Handler {
	h := NewHandler(nil, enq, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestRunEnqueuesKnownTask(t *testing.T) {
	enq := &memoryEnqueuer{}
	router := newJobsRouter(enq)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/run/analytics_warmup", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskAnalyticsWarmup, enq.tasks[0].Type())
	require.Contains(t, rr.Body.String(), TaskAnalyticsWarmup)
}

func TestRunRejectsUnknownTask(t *testing.T) {
	enq := &memoryEnqueuer{}
	router := newJobsRouter(enq)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/run/drop_tables", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Empty(t, enq.tasks)
}

func TestRunWithoutEnqueuerUnavailable(t *testing.T) {
	router := newJobsRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/run/low_stock_scan", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
