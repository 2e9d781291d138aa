package engine

import (
	"io"
	"net/http"
	"strconv"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/domain"
	"github.com/xela07ax/underscore-apis/internal/journal"
	"github.com/xela07ax/underscore-apis/internal/stats"
)

// Core связывает маршруты хост-приложения со статистикой, задачами и настройками.
// Каждый маршрут, смонтированный через Handle, проходит цепочку:
// inspector -> tracker -> interceptor -> handler.
type Core struct {
	registry *Registry
	stats    *stats.Aggregator
	tasks    *TaskTracker
	settings *SettingsManager
	journal  journal.Logger // nil - журнал отключен
	metrics  *Metrics
	clock    clock.Clock
	logger   *zap.Logger
}

func NewCore(agg *stats.Aggregator, tasks *TaskTracker, settings *SettingsManager, jrn journal.Logger, metrics *Metrics, clk clock.Clock, logger *zap.Logger) *Core {
	if clk == nil {
		clk = clock.New()
	}
	return &Core{
		registry: NewRegistry(),
		stats:    agg,
		tasks:    tasks,
		settings: settings,
		journal:  jrn,
		metrics:  metrics,
		clock:    clk,
		logger:   logger.With(zap.String("mod", "core")),
	}
}

func (c *Core) Registry() *Registry        { return c.registry }
func (c *Core) Stats() *stats.Aggregator   { return c.stats }
func (c *Core) Tasks() *TaskTracker        { return c.tasks }
func (c *Core) Settings() *SettingsManager { return c.settings }

// Handle регистрирует маршрут и монтирует инструментированный обработчик в r
func (c *Core) Handle(r chi.Router, method, pattern, name string, h http.HandlerFunc) domain.Route {
	route := c.registry.Add(method, pattern, name, FuncName(h))
	c.settings.Register(route)

	r.Method(route.Method, pattern, c.inspect(route, c.track(route, c.intercept(route, h))))

	c.logger.Debug("route registered",
		zap.Int64("route_id", route.ID), zap.String("route", route.Key()), zap.String("handler", route.Handler))
	return route
}

// inspect ведет счетчики и историю латентности. Завершение фиксируется в defer,
// поэтому срабатывает и при панике, и при отмене запроса.
func (c *Core) inspect(route domain.Route, next http.Handler) http.Handler {
	label := route.Key()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx, preempted := withPreemptFlag(r.Context())
		start := c.clock.Now()

		c.stats.OnRequestStart(route.ID)
		c.metrics.TotalRequests.WithLabelValues(label).Inc()
		c.metrics.ActiveRequests.WithLabelValues(label).Inc()

		defer func() {
			rec := recover()
			duration := c.clock.Now().Sub(start)

			c.stats.OnRequestEnd(route.ID, duration)
			c.metrics.ActiveRequests.WithLabelValues(label).Dec()

			status := ww.Status()
			switch {
			case rec != nil:
				status = http.StatusInternalServerError
			case status == 0:
				status = http.StatusOK
			}
			c.metrics.RequestDuration.WithLabelValues(label, strconv.Itoa(status)).Observe(duration.Seconds())

			if c.journal != nil {
				c.journal.Log(journal.Record{
					TraceID:   TraceID(ctx),
					RouteID:   route.ID,
					Method:    r.Method,
					Path:      r.URL.Path,
					Status:    status,
					Preempted: preempted.set,
					Duration:  duration,
					Timestamp: c.clock.Now(),
				})
			}

			if rec != nil {
				panic(rec)
			}
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

// track регистрирует запрос как отменяемую задачу маршрута
func (c *Core) track(route domain.Route, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := c.tasks.Begin(r.Context(), route, r.Method+" "+r.URL.Path)
		defer c.tasks.End(id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// intercept отвечает статусом из настроек маршрута, не вызывая обработчик
func (c *Core) intercept(route domain.Route, next http.Handler) http.Handler {
	label := route.Key()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := c.settings.Preempt(route.ID)
		if p.Status == 0 {
			next.ServeHTTP(w, r)
			return
		}

		markPreempted(r.Context())
		c.metrics.PreemptedTotal.WithLabelValues(label, strconv.Itoa(p.Status)).Inc()
		c.logger.Debug("request preempted",
			zap.String("route", label), zap.Int("status", p.Status), zap.String("trace_id", TraceID(r.Context())))

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(p.Status)
		if p.Reason != "" && bodyAllowed(p.Status) {
			io.WriteString(w, p.Reason+"\n")
		}
	})
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}
