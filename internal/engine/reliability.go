package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MessagePublisher - то, что умеет публиковать в Pub/Sub (*redis.Client)
type MessagePublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type PublisherOptions struct {
	Attempts      uint          // Попыток на одно сообщение
	Backoff       time.Duration // Базовая задержка; 0 - экспоненциальный бэкофф retry-go
	CallTimeout   time.Duration // Таймаут одной попытки
	RPS           float64
	Burst         int
	TripAfter     uint32        // Ошибок подряд до размыкания
	OpenTimeout   time.Duration // Через сколько CB попробует "закрыться"
	OnStateChange func(to gobreaker.State)
}

// ReliablePublisher оборачивает публикацию лимитером, предохранителем и повторами
type ReliablePublisher struct {
	next    MessagePublisher
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	opts    PublisherOptions
	logger  *zap.Logger
}

func NewReliablePublisher(next MessagePublisher, opts PublisherOptions, logger *zap.Logger) *ReliablePublisher {
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 2 * time.Second
	}
	if opts.RPS <= 0 {
		opts.RPS = 100
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	logger = logger.With(zap.String("mod", "publisher"))
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "settings-broadcast",
		MaxRequests: 1,
		Interval:    5 * time.Second,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name), zap.Stringer("from", from), zap.Stringer("to", to))
			if opts.OnStateChange != nil {
				opts.OnStateChange(to)
			}
		},
	})

	return &ReliablePublisher{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		opts:    opts,
		logger:  logger,
	}
}

func (p *ReliablePublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	// 1. Rate Limiter
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker, внутри - повторы
	_, err := p.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(p.opts.Attempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				if p.opts.Backoff > 0 {
					return p.opts.Backoff << n
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		return nil, r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
			defer cancel()
			return p.next.Publish(tCtx, channel, payload).Err()
		})
	})

	if errors.Is(err, gobreaker.ErrOpenState) {
		p.logger.Warn("broadcast skipped: circuit open", zap.String("chan", channel))
	}
	return err
}

// State - текущее состояние предохранителя
func (p *ReliablePublisher) State() gobreaker.State {
	return p.cb.State()
}
