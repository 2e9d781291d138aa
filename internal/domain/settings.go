package domain

import (
	"errors"
	"fmt"
	"maps"
)

var ErrInvalidSettings = errors.New("invalid settings")

// RouteSettings - настраиваемое поведение маршрута.
// Transient живет до перезапуска процесса, Defaults неизменяемы.
type RouteSettings struct {
	Transient map[string]any `json:"transient"`
	Defaults  map[string]any `json:"defaults"`
}

// Preempt - эффективная настройка перехвата: если Status != 0, обработчик не вызывается
type Preempt struct {
	Status int
	Reason string
}

// DefaultSettings возвращает свежую копию значений по умолчанию
func DefaultSettings() map[string]any {
	return map[string]any{
		"preempt": map[string]any{
			"status": nil,
			"reason": nil,
		},
	}
}

func NewRouteSettings() RouteSettings {
	return RouteSettings{
		Transient: map[string]any{},
		Defaults:  DefaultSettings(),
	}
}

// Clone - глубокая копия для отдачи наружу
func (s RouteSettings) Clone() RouteSettings {
	return RouteSettings{
		Transient: cloneMap(s.Transient),
		Defaults:  cloneMap(s.Defaults),
	}
}

// Preempt сливает transient поверх defaults по ключам секции "preempt"
func (s RouteSettings) Preempt() Preempt {
	merged := map[string]any{}
	if d, ok := s.Defaults["preempt"].(map[string]any); ok {
		maps.Copy(merged, d)
	}
	if t, ok := s.Transient["preempt"].(map[string]any); ok {
		maps.Copy(merged, t)
	}

	var p Preempt
	if status, ok := toInt(merged["status"]); ok {
		p.Status = status
	}
	if reason, ok := merged["reason"].(string); ok {
		p.Reason = reason
	}
	return p
}

// MergePatch применяет patch к transient: вложенные объекты сливаются рекурсивно,
// null удаляет ключ. Результат валидируется до записи, при ошибке s не меняется.
func (s *RouteSettings) MergePatch(patch map[string]any) error {
	next := cloneMap(s.Transient)
	mergeInto(next, patch)
	if err := ValidateTransient(next); err != nil {
		return err
	}
	s.Transient = next
	return nil
}

// ValidateTransient проверяет известные ключи; неизвестные секции отклоняются
func ValidateTransient(t map[string]any) error {
	for key, val := range t {
		if key != "preempt" {
			return fmt.Errorf("%w: unknown section %q", ErrInvalidSettings, key)
		}
		preempt, ok := val.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: preempt must be an object", ErrInvalidSettings)
		}
		for field, v := range preempt {
			switch field {
			case "status":
				if v == nil {
					continue
				}
				status, ok := toInt(v)
				if !ok || status < 100 || status > 599 {
					return fmt.Errorf("%w: preempt.status must be an integer in 100..599", ErrInvalidSettings)
				}
			case "reason":
				if v == nil {
					continue
				}
				if _, ok := v.(string); !ok {
					return fmt.Errorf("%w: preempt.reason must be a string", ErrInvalidSettings)
				}
			default:
				return fmt.Errorf("%w: unknown field preempt.%s", ErrInvalidSettings, field)
			}
		}
	}
	return nil
}

func mergeInto(dst, patch map[string]any) {
	for k, v := range patch {
		if v == nil {
			delete(dst, k)
			continue
		}
		if pm, ok := v.(map[string]any); ok {
			dm, ok := dst[k].(map[string]any)
			if !ok {
				dm = map[string]any{}
			}
			mergeInto(dm, pm)
			if len(dm) == 0 {
				delete(dst, k)
			} else {
				dst[k] = dm
			}
			continue
		}
		dst[k] = v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// toInt принимает целые из JSON (float64) и из Go-кода
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	}
	return 0, false
}
