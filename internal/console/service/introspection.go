package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/cat"
	"github.com/xela07ax/underscore-apis/internal/domain"
	"github.com/xela07ax/underscore-apis/internal/stats"
)

// RouteTable - таблица маршрутов хоста (engine.Registry)
type RouteTable interface {
	Routes() []domain.Route
	Lookup(ids map[int64]struct{}) ([]domain.Route, error)
}

// StatsReader - счетчики и средние по маршруту (stats.Aggregator)
type StatsReader interface {
	Snapshot(id int64) stats.Snapshot
}

// TaskRegistry - живые задачи (engine.TaskTracker)
type TaskRegistry interface {
	Snapshot() []domain.Task
	Cancel(routeIDs map[int64]struct{}) int
}

// SettingsStore - настройки маршрутов (engine.SettingsManager)
type SettingsStore interface {
	Get(ids []int64) (map[int64]domain.RouteSettings, error)
	Apply(ctx context.Context, ids []int64, patch map[string]any) error
}

// IntrospectionService собирает снимки движка в строки и документы для админ API
type IntrospectionService struct {
	routes   RouteTable
	stats    StatsReader
	tasks    TaskRegistry
	settings SettingsStore
	logger   *zap.Logger
}

func NewIntrospectionService(routes RouteTable, st StatsReader, tasks TaskRegistry, settings SettingsStore, logger *zap.Logger) *IntrospectionService {
	return &IntrospectionService{
		routes:   routes,
		stats:    st,
		tasks:    tasks,
		settings: settings,
		logger:   logger.With(zap.String("mod", "introspection")),
	}
}

// RouteRows - строки ресурса routes; собираются заново на каждый запрос
func (s *IntrospectionService) RouteRows() []cat.Row {
	routes := s.routes.Routes()
	rows := make([]cat.Row, 0, len(routes))
	for _, r := range routes {
		snap := s.stats.Snapshot(r.ID)
		rows = append(rows, cat.Row{
			ColRouteID:        r.ID,
			ColRouteHandler:   r.Handler,
			ColRouteName:      r.Name,
			ColRouteMethod:    r.Method,
			ColRoutePath:      r.Pattern,
			ColReqActive:      snap.Counter.Active,
			ColReqTotal:       snap.Counter.Total,
			ColRespTimeAvg1m:  snap.Averages.M1,
			ColRespTimeAvg5m:  snap.Averages.M5,
			ColRespTimeAvg15m: snap.Averages.M15,
		})
	}
	return rows
}

// TaskRows - строки ресурса tasks
func (s *IntrospectionService) TaskRows() []cat.Row {
	tasks := s.tasks.Snapshot()
	rows := make([]cat.Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, cat.Row{
			ColTaskID:         t.ID,
			ColTaskName:       t.Name,
			ColTaskHandler:    t.Handler,
			ColTaskDone:       t.Done,
			ColTaskCancelled:  t.Cancelled,
			ColTaskCancelling: int64(t.Cancelling),
			ColTaskRouteID:    t.RouteID,
		})
	}
	return rows
}

// Routes - документ {id: {handler, name, method, path}}; неизвестные ids пропускаются
func (s *IntrospectionService) Routes(ids map[int64]struct{}) map[string]any {
	out := map[string]any{}
	for _, r := range s.routes.Routes() {
		if len(ids) > 0 {
			if _, ok := ids[r.ID]; !ok {
				continue
			}
		}
		out[strconv.FormatInt(r.ID, 10)] = map[string]any{
			"handler": r.Handler,
			"name":    r.Name,
			"method":  r.Method,
			"path":    r.Pattern,
		}
	}
	return out
}

// CancelTasks отменяет живые задачи маршрутов ids; неизвестный маршрут - ошибка
func (s *IntrospectionService) CancelTasks(ids map[int64]struct{}) (int, error) {
	if _, err := s.routes.Lookup(ids); err != nil {
		return 0, fmt.Errorf("introspection_service: cancel tasks: %w", err)
	}
	n := s.tasks.Cancel(ids)
	s.logger.Info("cancel tasks requested", zap.Int("route_count", len(ids)), zap.Int("cancelled", n))
	return n, nil
}

// Settings - документ {id: {transient, defaults}}
func (s *IntrospectionService) Settings(ids map[int64]struct{}) (map[string]any, error) {
	routes, err := s.routes.Lookup(ids)
	if err != nil {
		return nil, fmt.Errorf("introspection_service: settings: %w", err)
	}

	list := make([]int64, 0, len(routes))
	for _, r := range routes {
		list = append(list, r.ID)
	}
	settings, err := s.settings.Get(list)
	if err != nil {
		return nil, fmt.Errorf("introspection_service: settings: %w", err)
	}

	out := make(map[string]any, len(settings))
	for id, rs := range settings {
		out[strconv.FormatInt(id, 10)] = map[string]any{
			"transient": rs.Transient,
			"defaults":  rs.Defaults,
		}
	}
	return out, nil
}

// ApplySettings сливает patch в transient-настройки маршрутов ids
func (s *IntrospectionService) ApplySettings(ctx context.Context, ids map[int64]struct{}, patch map[string]any) error {
	if _, err := s.routes.Lookup(ids); err != nil {
		return fmt.Errorf("introspection_service: apply settings: %w", err)
	}

	list := make([]int64, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	slices.Sort(list)

	if err := s.settings.Apply(ctx, list, patch); err != nil {
		return fmt.Errorf("introspection_service: apply settings: %w", err)
	}
	return nil
}
