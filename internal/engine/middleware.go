package engine

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const (
	traceIDKey   ctxKey = "trace_id"
	preemptedKey ctxKey = "preempted"
)

// TracingMiddleware инициализирует Trace-ID для каждого запроса
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Пытаемся достать ID из заголовка (если пришел от прокси)
		traceID := r.Header.Get("X-Trace-ID")

		// 2. Если его нет - генерируем новый
		if traceID == "" {
			traceID = uuid.New().String()
		}

		// 3. Кладем в контекст и отдаем клиенту
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TraceID помогает безопасно достать ID в любом месте кода
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return "00000000-0000-0000-0000-000000000000" // Fallback
}

// RateLimitMiddleware ограничивает частоту запросов token bucket'ом; сверх лимита - 429
func RateLimitMiddleware(limiter *rate.Limiter, metrics *Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				metrics.AdminErrors.WithLabelValues("rate_limit").Inc()
				logger.Warn("admin request throttled",
					zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate_limit_exceeded"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// preemptFlag - отметка для инспектора, что ответ выдал перехватчик
type preemptFlag struct {
	set bool
}

func withPreemptFlag(ctx context.Context) (context.Context, *preemptFlag) {
	f := &preemptFlag{}
	return context.WithValue(ctx, preemptedKey, f), f
}

func markPreempted(ctx context.Context) {
	if f, ok := ctx.Value(preemptedKey).(*preemptFlag); ok {
		f.set = true
	}
}
