package engine

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/domain"
)

// task - отслеживаемая единица работы: запрос в обработке или фоновая горутина
type task struct {
	id       int64
	name     string
	handler  string
	routeID  int64
	ctx      context.Context
	cancel   context.CancelFunc
	requests int // Число вызовов Cancel, адресованных задаче
	done     bool
}

// TaskTracker ведет реестр живых задач. Завершенные задачи удаляются из реестра.
type TaskTracker struct {
	mu     sync.Mutex
	tasks  map[int64]*task
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewTaskTracker(logger *zap.Logger) *TaskTracker {
	return &TaskTracker{
		tasks:  make(map[int64]*task),
		logger: logger.With(zap.String("mod", "tasks")),
	}
}

// Begin регистрирует задачу запроса и возвращает отменяемый контекст для обработчика
func (t *TaskTracker) Begin(ctx context.Context, route domain.Route, name string) (context.Context, int64) {
	ctx, cancel := context.WithCancel(ctx)
	tk := &task{
		id:      nextID(),
		name:    name,
		handler: route.Handler,
		routeID: route.ID,
		ctx:     ctx,
		cancel:  cancel,
	}

	t.mu.Lock()
	t.tasks[tk.id] = tk
	t.mu.Unlock()
	return ctx, tk.id
}

// End снимает задачу с учета и освобождает ее контекст
func (t *TaskTracker) End(id int64) {
	t.mu.Lock()
	tk, ok := t.tasks[id]
	if ok {
		tk.done = true
		delete(t.tasks, id)
	}
	t.mu.Unlock()

	if ok {
		tk.cancel()
	}
}

// Go запускает фоновую задачу без привязки к маршруту (route_id = -1).
// Ошибка fn, кроме отмены контекста, логируется.
func (t *TaskTracker) Go(ctx context.Context, name string, fn func(ctx context.Context) error) int64 {
	ctx, id := t.Begin(ctx, domain.Route{ID: domain.NoRoute, Handler: FuncName(fn)}, name)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.End(id)

		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Error("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
	return id
}

// Wait дожидается завершения фоновых задач, запущенных через Go
func (t *TaskTracker) Wait() {
	t.wg.Wait()
}

// Cancel отменяет все живые задачи указанных маршрутов и возвращает их число
func (t *TaskTracker) Cancel(routeIDs map[int64]struct{}) int {
	t.mu.Lock()
	var victims []*task
	for _, tk := range t.tasks {
		if _, ok := routeIDs[tk.routeID]; ok {
			tk.requests++
			victims = append(victims, tk)
		}
	}
	t.mu.Unlock()

	for _, tk := range victims {
		tk.cancel()
	}
	if len(victims) > 0 {
		t.logger.Info("tasks cancelled", zap.Int("count", len(victims)))
	}
	return len(victims)
}

// Snapshot - состояние всех живых задач в порядке создания
func (t *TaskTracker) Snapshot() []domain.Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Task, 0, len(t.tasks))
	for _, tk := range t.tasks {
		cancelled := tk.ctx.Err() != nil
		requests := 0
		if !tk.done {
			requests = tk.requests
		}
		out = append(out, domain.Task{
			ID:         tk.id,
			Name:       tk.name,
			Handler:    tk.handler,
			Done:       tk.done,
			Cancelled:  cancelled,
			Cancelling: requests,
			RouteID:    tk.routeID,
		})
	}
	slices.SortFunc(out, func(a, b domain.Task) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
