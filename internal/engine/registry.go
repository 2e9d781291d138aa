package engine

import (
	"errors"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/xela07ax/underscore-apis/internal/domain"
)

var ErrUnknownRoute = errors.New("unknown route")

// idSeq - общая последовательность идентификаторов маршрутов и задач.
// Идентификаторы положительные и не переиспользуются до конца жизни процесса.
var idSeq atomic.Int64

func nextID() int64 {
	return idSeq.Add(1)
}

// Registry хранит таблицу маршрутов хост-приложения в порядке регистрации
type Registry struct {
	mu     sync.RWMutex
	routes []domain.Route
	index  map[int64]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[int64]int)}
}

// Add регистрирует маршрут и выдает ему идентификатор
func (r *Registry) Add(method, pattern, name, handler string) domain.Route {
	route := domain.Route{
		ID:      nextID(),
		Name:    name,
		Method:  strings.ToUpper(method),
		Pattern: pattern,
		Handler: handler,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.index[route.ID] = len(r.routes)
	r.routes = append(r.routes, route)
	return route
}

// Routes - снимок таблицы
func (r *Registry) Routes() []domain.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.routes)
}

func (r *Registry) Get(id int64) (domain.Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return domain.Route{}, false
	}
	return r.routes[i], true
}

// Lookup проверяет, что все ids известны; пустой набор означает "все маршруты"
func (r *Registry) Lookup(ids map[int64]struct{}) ([]domain.Route, error) {
	if len(ids) == 0 {
		return r.Routes(), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Route, 0, len(ids))
	for _, route := range r.routes {
		if _, ok := ids[route.ID]; ok {
			out = append(out, route)
		}
	}
	if len(out) != len(ids) {
		return nil, ErrUnknownRoute
	}
	return out, nil
}

// FuncName возвращает полное имя функции ("pkg/path.Func") для колонки handler
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "<unknown>"
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return "<unknown>"
}
