package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/underscore-apis/internal/console/handler"
	"github.com/xela07ax/underscore-apis/internal/engine"
	"github.com/xela07ax/underscore-apis/internal/infra"
)

// AdminServer - отдельный листенер с интроспекцией хост-приложения
type AdminServer struct {
	router   *chi.Mux
	logger   *zap.Logger
	cfg      infra.AdminConfig
	metrics  *engine.Metrics
	gatherer prometheus.Gatherer

	catHandler    *handler.CatHandler    // /_cat
	routesHandler *handler.RoutesHandler // /_routes
}

// NewAdminServer инициализирует сервер админки со всеми зависимостями
func NewAdminServer(
	cfg infra.AdminConfig,
	logger *zap.Logger,
	metrics *engine.Metrics,
	gatherer prometheus.Gatherer,
	catH *handler.CatHandler,
	routesH *handler.RoutesHandler,
) *AdminServer {
	s := &AdminServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("admin-api"),
		cfg:           cfg,
		metrics:       metrics,
		gatherer:      gatherer,
		catHandler:    catH,
		routesHandler: routesH,
	}

	s.routes()
	return s
}

func (s *AdminServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	// --- 2. Служебные роуты (без лимита) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// --- 3. Интроспекция ---
	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit.RPS > 0 {
			limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimit.RPS), max(s.cfg.RateLimit.Burst, 1))
			r.Use(engine.RateLimitMiddleware(limiter, s.metrics, s.logger))
		}

		r.Mount("/_cat", s.catHandler.Routes())
		r.Mount("/_routes", s.routesHandler.Routes())
	})
}

// accessLog пишет строку доступа в zap
func (s *AdminServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("admin request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.RequestURI()),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// ServeHTTP позволяет использовать AdminServer как стандартный http.Handler
func (s *AdminServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer собирает *http.Server с таймаутами из конфига
func (s *AdminServer) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
}
