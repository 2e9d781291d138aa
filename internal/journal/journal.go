package journal

/*
Файл journal.go реализует журнал запросов - неблокирующий сборщик записей
о завершенных запросах с пакетной записью в хранилище.

- Non-blocking: Log никогда не ждет хранилище; при переполнении буфера запись
  сбрасывается с ошибкой в лог (Load Shedding).
- Batching: записи копятся в памяти и уходят одной пачкой по таймеру или
  при достижении размера пачки.
- Drain Pattern: Stop закрывает вход, воркер вычитывает остаток буфера
  и делает финальный flush.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Storage определяет, куда физически сохраняются записи
type Storage interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, records []Record) error
}

// Logger - точка входа для middleware
type Logger interface {
	Log(rec Record)
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Clock         clock.Clock      // nil - системные часы
	Fill          prometheus.Gauge // Заполненность буфера, может быть nil
}

type Journal struct {
	ch     chan Record
	repo   Storage
	opts   Options
	logger *zap.Logger
	wg     sync.WaitGroup
	closed atomic.Bool
	stop   sync.Once
}

func New(repo Storage, opts Options, logger *zap.Logger) *Journal {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Journal{
		ch:     make(chan Record, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "journal")),
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop запирает вход и ждет, пока воркер всё допишет. Повторный вызов безопасен.
func (j *Journal) Stop() {
	j.stop.Do(func() {
		j.closed.Store(true)
		j.logger.Info("stopping journal: closing channel and flushing buffer...")
		close(j.ch)
		j.wg.Wait()
		j.logger.Info("journal stopped gracefully")
	})
}

func (j *Journal) Log(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = j.opts.Clock.Now()
	}

	if j.closed.Load() {
		j.logger.Warn("journal record dropped: journal is stopping", zap.String("trace_id", rec.TraceID))
		return
	}

	defer func() {
		// Гонка Log/Stop: отправка в уже закрытый канал
		if recover() != nil {
			j.logger.Warn("journal record dropped: journal is stopping", zap.String("trace_id", rec.TraceID))
		}
	}()

	select {
	case j.ch <- rec:
		j.reportFill()
	default:
		j.logger.Error("journal_buffer_overflow",
			zap.Int64("route_id", rec.RouteID),
			zap.String("trace_id", rec.TraceID),
		)
	}
}

func (j *Journal) reportFill() {
	if j.opts.Fill != nil {
		j.opts.Fill.Set(float64(len(j.ch)))
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]Record, 0, j.opts.BatchSize)
	ticker := j.opts.Clock.Ticker(j.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст при остановке уже может быть закрыт
		if err := j.repo.WriteBatch(context.Background(), batch); err != nil {
			j.logger.Error("journal flush failed", zap.Int("records", len(batch)), zap.Error(err))
		}
		batch = make([]Record, 0, j.opts.BatchSize)
		j.reportFill()
	}

	for {
		select {
		case rec, ok := <-j.ch:
			if !ok {
				flush()
				j.logger.Info("journal worker finished")
				return
			}
			batch = append(batch, rec)
			if len(batch) >= j.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
