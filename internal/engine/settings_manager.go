package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/underscore-apis/internal/domain"
	"github.com/xela07ax/underscore-apis/internal/infra"
)

// settingsSignal - сообщение о новом transient-состоянии маршрута.
// Маршрут адресуется ключом "METHOD pattern": числовые id у инстансов разные.
type settingsSignal struct {
	Instance  string         `json:"instance"`
	Route     string         `json:"route"`
	Transient map[string]any `json:"transient"`
}

// Broadcaster рассылает сигналы другим инстансам (ReliablePublisher)
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// SettingsManager хранит настройки маршрутов. Горячий путь - Preempt под RLock.
type SettingsManager struct {
	mu       sync.RWMutex
	settings map[int64]*domain.RouteSettings
	keys     map[string]int64
	routeKey map[int64]string

	rdb        *redis.Client // nil - без синхронизации между инстансами
	broadcast  Broadcaster
	instanceID string
	logger     *zap.Logger
}

func NewSettingsManager(rdb *redis.Client, broadcast Broadcaster, logger *zap.Logger) *SettingsManager {
	return &SettingsManager{
		settings:   make(map[int64]*domain.RouteSettings),
		keys:       make(map[string]int64),
		routeKey:   make(map[int64]string),
		rdb:        rdb,
		broadcast:  broadcast,
		instanceID: uuid.New().String(),
		logger:     logger.With(zap.String("mod", "settings")),
	}
}

// Register заводит настройки по умолчанию для нового маршрута
func (m *SettingsManager) Register(route domain.Route) {
	s := domain.NewRouteSettings()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[route.ID] = &s
	m.keys[route.Key()] = route.ID
	m.routeKey[route.ID] = route.Key()
}

// Get возвращает копии настроек для ids; неизвестный id - ErrUnknownRoute
func (m *SettingsManager) Get(ids []int64) (map[int64]domain.RouteSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64]domain.RouteSettings, len(ids))
	for _, id := range ids {
		s, ok := m.settings[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownRoute, id)
		}
		out[id] = s.Clone()
	}
	return out, nil
}

// Preempt - эффективная настройка перехвата для маршрута
func (m *SettingsManager) Preempt(id int64) domain.Preempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settings[id]; ok {
		return s.Preempt()
	}
	return domain.Preempt{}
}

// Apply сливает patch в transient всех маршрутов ids. Все или ничего:
// при ошибке валидации ни один маршрут не меняется.
func (m *SettingsManager) Apply(ctx context.Context, ids []int64, patch map[string]any) error {
	m.mu.Lock()
	next := make(map[int64]domain.RouteSettings, len(ids))
	for _, id := range ids {
		s, ok := m.settings[id]
		if !ok {
			m.mu.Unlock()
			return fmt.Errorf("%w: %d", ErrUnknownRoute, id)
		}
		candidate := s.Clone()
		if err := candidate.MergePatch(patch); err != nil {
			m.mu.Unlock()
			return err
		}
		next[id] = candidate
	}

	signals := make([]settingsSignal, 0, len(next))
	for id, s := range next {
		*m.settings[id] = s
		signals = append(signals, settingsSignal{
			Instance:  m.instanceID,
			Route:     m.routeKey[id],
			Transient: s.Clone().Transient,
		})
	}
	m.mu.Unlock()

	m.logger.Info("route settings applied", zap.Int64s("route_ids", ids))
	m.publish(ctx, signals)
	return nil
}

func (m *SettingsManager) publish(ctx context.Context, signals []settingsSignal) {
	if m.broadcast == nil {
		return
	}
	for _, sig := range signals {
		payload, err := json.Marshal(sig)
		if err != nil {
			m.logger.Error("failed to encode settings signal", zap.String("route", sig.Route), zap.Error(err))
			continue
		}
		// Локальное состояние уже применено; рассылка - best effort
		if err := m.broadcast.Publish(ctx, infra.RedisChanRouteSettings, payload); err != nil {
			m.logger.Error("settings broadcast failed", zap.String("route", sig.Route), zap.Error(err))
		}
	}
}

// StartListener подписывается на изменения настроек с других инстансов
func (m *SettingsManager) StartListener(ctx context.Context) error {
	if m.rdb == nil {
		return nil
	}
	ListenStateResilient(ctx, m.rdb, m.logger, infra.RedisChanRouteSettings,
		nil,
		m.handleSignal,
	)
	return ctx.Err()
}

func (m *SettingsManager) handleSignal(payload string) {
	var sig settingsSignal
	if err := json.Unmarshal([]byte(payload), &sig); err != nil {
		m.logger.Error("invalid settings signal", zap.String("payload", payload), zap.Error(err))
		return
	}
	if sig.Instance == m.instanceID {
		return
	}
	if sig.Transient == nil {
		sig.Transient = map[string]any{}
	}
	if err := domain.ValidateTransient(sig.Transient); err != nil {
		m.logger.Error("rejected settings signal", zap.String("route", sig.Route), zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[sig.Route]
	if !ok {
		// Маршрут есть не на всех инстансах
		m.logger.Debug("settings signal for unknown route", zap.String("route", sig.Route))
		return
	}
	m.settings[id].Transient = sig.Transient
	m.logger.Info("route settings synced", zap.String("route", sig.Route), zap.String("from", sig.Instance))
}
