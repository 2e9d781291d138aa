package stats

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_Counter(t *testing.T) {
	agg := NewAggregator(clock.NewMock())

	agg.OnRequestStart(1)
	agg.OnRequestStart(1)
	assert.Equal(t, Counter{Active: 2, Total: 2}, agg.Counter(1))

	agg.OnRequestEnd(1, time.Millisecond)
	assert.Equal(t, Counter{Active: 1, Total: 2}, agg.Counter(1))

	// Лишний End не уводит active в минус
	agg.OnRequestEnd(1, time.Millisecond)
	agg.OnRequestEnd(1, time.Millisecond)
	assert.Equal(t, Counter{Active: 0, Total: 2}, agg.Counter(1))

	// Неизвестный ресурс создается лениво
	assert.Equal(t, Counter{}, agg.Counter(42))
}

func TestAggregator_AveragesNoData(t *testing.T) {
	agg := NewAggregator(clock.NewMock())

	avg := agg.Averages(7)
	assert.False(t, avg.M1.Valid())
	assert.False(t, avg.M5.Valid())
	assert.False(t, avg.M15.Valid())
	assert.True(t, math.IsNaN(avg.M1.Float()))
	assert.Equal(t, "nan", avg.M15.String())
}

func TestAggregator_Windows(t *testing.T) {
	mock := clock.NewMock()
	agg := NewAggregator(mock)

	// t=0: 10s, t=4m: 2s, t=10m: 1s, опрос на t=10m
	agg.OnRequestStart(1)
	agg.OnRequestEnd(1, 10*time.Second)
	mock.Add(4 * time.Minute)
	agg.OnRequestStart(1)
	agg.OnRequestEnd(1, 2*time.Second)
	mock.Add(6 * time.Minute)
	agg.OnRequestStart(1)
	agg.OnRequestEnd(1, time.Second)

	avg := agg.Averages(1)
	m1, ok := avg.M1.Value()
	require.True(t, ok)
	assert.InDelta(t, 1.0, m1, 1e-9)

	m5, ok := avg.M5.Value()
	require.True(t, ok)
	assert.InDelta(t, 1.0, m5, 1e-9)

	m15, ok := avg.M15.Value()
	require.True(t, ok)
	assert.InDelta(t, 13.0/3, m15, 1e-9)

	// Через 2 минуты запись t=10m выпадает из 1-минутного окна
	mock.Add(2 * time.Minute)
	avg = agg.Averages(1)
	assert.False(t, avg.M1.Valid())
	m5, _ = avg.M5.Value()
	assert.InDelta(t, 1.0, m5, 1e-9)
}

func TestAggregator_WindowBoundaryInclusive(t *testing.T) {
	mock := clock.NewMock()
	agg := NewAggregator(mock)

	agg.OnRequestEnd(3, 4*time.Second)
	mock.Add(time.Minute)

	// t' - t == W: запись еще входит в окно
	v, ok := agg.Averages(3).M1.Value()
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)

	mock.Add(time.Nanosecond)
	assert.False(t, agg.Averages(3).M1.Valid())
}

func TestAggregator_Eviction(t *testing.T) {
	mock := clock.NewMock()
	agg := NewAggregator(mock)

	for i := 0; i < 10; i++ {
		agg.OnRequestEnd(5, time.Second)
	}
	mock.Add(HistoryRetention)
	avg := agg.Averages(5)
	assert.True(t, avg.M15.Valid())

	mock.Add(time.Second)
	avg = agg.Averages(5)
	assert.False(t, avg.M15.Valid())

	rec := agg.lookup(5)
	rec.mu.Lock()
	assert.Empty(t, rec.history)
	rec.mu.Unlock()

	// Запись тоже вытесняет старые элементы
	agg.OnRequestEnd(5, time.Second)
	mock.Add(HistoryRetention + time.Second)
	agg.OnRequestEnd(5, 3*time.Second)
	rec.mu.Lock()
	assert.Len(t, rec.history, 1)
	rec.mu.Unlock()
}

func TestAggregator_Concurrent(t *testing.T) {
	agg := NewAggregator(nil)

	const workers, perWorker = 16, 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				agg.OnRequestStart(1)
				_ = agg.Snapshot(1)
				agg.OnRequestEnd(1, time.Microsecond)
			}
		}()
	}
	wg.Wait()

	snap := agg.Snapshot(1)
	assert.Equal(t, Counter{Active: 0, Total: workers * perWorker}, snap.Counter)
	v, ok := snap.Averages.M1.Value()
	require.True(t, ok)
	assert.InDelta(t, time.Microsecond.Seconds(), v, 1e-12)
}
