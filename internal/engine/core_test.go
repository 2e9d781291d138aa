package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/journal"
	"github.com/xela07ax/underscore-apis/internal/stats"
)

type memJournal struct {
	mu      sync.Mutex
	records []journal.Record
}

func (j *memJournal) Log(rec journal.Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
}

func (j *memJournal) last(t *testing.T) journal.Record {
	t.Helper()
	j.mu.Lock()
	defer j.mu.Unlock()
	require.NotEmpty(t, j.records)
	return j.records[len(j.records)-1]
}

type testEnv struct {
	core    *Core
	clock   *clock.Mock
	journal *memJournal
	router  chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock := clock.NewMock()
	logger := zap.NewNop()
	jr := &memJournal{}

	core := NewCore(
		stats.NewAggregator(mock),
		NewTaskTracker(logger),
		NewSettingsManager(nil, nil, logger),
		jr,
		NewMetrics(nil),
		mock,
		logger,
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, TracingMiddleware)
	return &testEnv{core: core, clock: mock, journal: jr, router: r}
}

func (e *testEnv) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func hello(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("hello"))
}

func TestCore_HandleRecordsStats(t *testing.T) {
	env := newTestEnv(t)
	route := env.core.Handle(env.router, "get", "/items/{id}", "item", func(w http.ResponseWriter, r *http.Request) {
		env.clock.Add(2 * time.Second)
		w.WriteHeader(http.StatusCreated)
	})

	assert.Equal(t, "GET", route.Method)
	assert.Positive(t, route.ID)

	rec := env.do(http.MethodGet, "/items/7")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	snap := env.core.Stats().Snapshot(route.ID)
	assert.Equal(t, stats.Counter{Active: 0, Total: 1}, snap.Counter)
	avg, ok := snap.Averages.M1.Value()
	require.True(t, ok)
	assert.InDelta(t, 2.0, avg, 1e-9)

	last := env.journal.last(t)
	assert.Equal(t, route.ID, last.RouteID)
	assert.Equal(t, "/items/7", last.Path)
	assert.Equal(t, http.StatusCreated, last.Status)
	assert.Equal(t, 2*time.Second, last.Duration)
	assert.Equal(t, rec.Header().Get("X-Trace-ID"), last.TraceID)
	assert.False(t, last.Preempted)
}

func TestCore_HandlerName(t *testing.T) {
	env := newTestEnv(t)
	route := env.core.Handle(env.router, http.MethodGet, "/", "", hello)
	assert.Equal(t, "github.com/xela07ax/underscore-apis/internal/engine.hello", route.Handler)

	got, ok := env.core.Registry().Get(route.ID)
	require.True(t, ok)
	assert.Equal(t, route, got)
}

func TestCore_PanicStillEndsRequest(t *testing.T) {
	env := newTestEnv(t)
	route := env.core.Handle(env.router, http.MethodGet, "/boom", "", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := env.do(http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, stats.Counter{Active: 0, Total: 1}, env.core.Stats().Counter(route.ID))
	assert.Equal(t, http.StatusInternalServerError, env.journal.last(t).Status)
	assert.Empty(t, env.core.Tasks().Snapshot())
}

func TestCore_Preempt(t *testing.T) {
	env := newTestEnv(t)
	called := false
	route := env.core.Handle(env.router, http.MethodPost, "/orders", "orders", func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})

	require.NoError(t, env.core.Settings().Apply(context.Background(), []int64{route.ID}, map[string]any{
		"preempt": map[string]any{"status": float64(503), "reason": "maintenance"},
	}))

	rec := env.do(http.MethodPost, "/orders")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "maintenance\n", rec.Body.String())
	assert.False(t, called)
	assert.True(t, env.journal.last(t).Preempted)
	assert.Equal(t, int64(1), env.core.Stats().Counter(route.ID).Total)

	// Сброс возвращает обычную обработку
	require.NoError(t, env.core.Settings().Apply(context.Background(), []int64{route.ID}, map[string]any{
		"preempt": map[string]any{"status": nil},
	}))
	rec = env.do(http.MethodPost, "/orders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestCore_CancelInFlight(t *testing.T) {
	env := newTestEnv(t)
	started := make(chan struct{})
	route := env.core.Handle(env.router, http.MethodGet, "/slow", "slow", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- env.do(http.MethodGet, "/slow") }()
	<-started

	tasks := env.core.Tasks().Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, route.ID, tasks[0].RouteID)
	assert.Equal(t, "GET /slow", tasks[0].Name)
	assert.Equal(t, int64(1), env.core.Stats().Counter(route.ID).Active)

	assert.Equal(t, 1, env.core.Tasks().Cancel(map[int64]struct{}{route.ID: {}}))

	select {
	case rec := <-done:
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not cancelled")
	}
	assert.Empty(t, env.core.Tasks().Snapshot())
	assert.Equal(t, stats.Counter{Active: 0, Total: 1}, env.core.Stats().Counter(route.ID))
}
