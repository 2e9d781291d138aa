package stats

/*
Файл aggregator.go реализует учет запросов по ресурсам (маршрутам):
- Counter: active/total, active никогда не уходит в минус.
- История задержек за последние 15 минут. Вытеснение старых записей выполняется
  и при записи, и при чтении, поэтому фоновый "уборщик" не нужен.
- Средние за 1/5/15 минут считаются за один проход по уже короткой истории.
*/

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	Window1m  = time.Minute
	Window5m  = 5 * time.Minute
	Window15m = 15 * time.Minute

	// HistoryRetention - глубина хранения истории задержек
	HistoryRetention = Window15m
)

type sample struct {
	at       time.Time
	duration time.Duration
}

// record - состояние одного ресурса. Все поля под mu.
type record struct {
	mu      sync.Mutex
	counter Counter
	history []sample
}

// Aggregator хранит записи по ID ресурса. Записи создаются лениво (lookup-or-insert).
type Aggregator struct {
	clock   clock.Clock
	mu      sync.RWMutex
	records map[int64]*record
}

func NewAggregator(clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	return &Aggregator{
		clock:   clk,
		records: make(map[int64]*record),
	}
}

// lookup возвращает запись ресурса, создавая ее при первом обращении
func (a *Aggregator) lookup(id int64) *record {
	a.mu.RLock()
	rec, ok := a.records[id]
	a.mu.RUnlock()
	if ok {
		return rec
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// Повторная проверка: запись могла появиться, пока ждали write-lock
	if rec, ok = a.records[id]; ok {
		return rec
	}
	rec = &record{}
	a.records[id] = rec
	return rec
}

// OnRequestStart фиксирует начало запроса
func (a *Aggregator) OnRequestStart(id int64) {
	rec := a.lookup(id)
	rec.mu.Lock()
	rec.counter.Active++
	rec.counter.Total++
	rec.mu.Unlock()
}

// OnRequestEnd фиксирует завершение запроса (успешного или нет).
// Вызывающая сторона обязана вызвать его ровно один раз на каждый OnRequestStart.
func (a *Aggregator) OnRequestEnd(id int64, d time.Duration) {
	now := a.clock.Now()
	rec := a.lookup(id)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.counter.Active > 0 {
		rec.counter.Active--
	}
	rec.history = append(rec.history, sample{at: now, duration: d})
	rec.evict(now.Add(-HistoryRetention))
}

// Averages возвращает средние задержки за 1, 5 и 15 минут
func (a *Aggregator) Averages(id int64) Averages {
	return a.Snapshot(id).Averages
}

func (a *Aggregator) Counter(id int64) Counter {
	rec := a.lookup(id)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.counter
}

// Snapshot читает счетчики и средние под одной блокировкой записи
func (a *Aggregator) Snapshot(id int64) Snapshot {
	now := a.clock.Now()
	rec := a.lookup(id)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.evict(now.Add(-HistoryRetention))
	return Snapshot{
		Counter:  rec.counter,
		Averages: rec.averages(now),
	}
}

// evict удаляет записи старше cutoff. История упорядочена по времени по построению.
func (r *record) evict(cutoff time.Time) {
	i := 0
	for i < len(r.history) && r.history[i].at.Before(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	// Копируем хвост, чтобы не держать вытесненные элементы в базовом массиве
	if i > len(r.history)/2 {
		r.history = append(make([]sample, 0, len(r.history)-i), r.history[i:]...)
		return
	}
	r.history = r.history[i:]
}

func (r *record) averages(now time.Time) Averages {
	var (
		sum1, sum5, sum15 time.Duration
		n1, n5, n15       int
	)
	ago1, ago5, ago15 := now.Add(-Window1m), now.Add(-Window5m), now.Add(-Window15m)

	for _, s := range r.history {
		if !s.at.Before(ago1) {
			sum1 += s.duration
			n1++
		}
		if !s.at.Before(ago5) {
			sum5 += s.duration
			n5++
		}
		if !s.at.Before(ago15) {
			sum15 += s.duration
			n15++
		}
	}

	return Averages{
		M1:  mean(sum1, n1),
		M5:  mean(sum5, n5),
		M15: mean(sum15, n15),
	}
}

func mean(sum time.Duration, n int) Average {
	if n == 0 {
		return NoData()
	}
	return ValueOf(sum.Seconds() / float64(n))
}
