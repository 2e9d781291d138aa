package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteSettings_Preempt(t *testing.T) {
	s := NewRouteSettings()
	assert.Equal(t, Preempt{}, s.Preempt())

	require.NoError(t, s.MergePatch(map[string]any{
		"preempt": map[string]any{"status": float64(503), "reason": "maintenance"},
	}))
	assert.Equal(t, Preempt{Status: 503, Reason: "maintenance"}, s.Preempt())

	// Частичный патч сохраняет остальные ключи
	require.NoError(t, s.MergePatch(map[string]any{
		"preempt": map[string]any{"status": 418},
	}))
	assert.Equal(t, Preempt{Status: 418, Reason: "maintenance"}, s.Preempt())

	// null удаляет ключ, пустая секция исчезает целиком
	require.NoError(t, s.MergePatch(map[string]any{
		"preempt": map[string]any{"status": nil, "reason": nil},
	}))
	assert.Equal(t, map[string]any{}, s.Transient)
	assert.Equal(t, Preempt{}, s.Preempt())
}

func TestRouteSettings_MergePatchValidation(t *testing.T) {
	for name, patch := range map[string]map[string]any{
		"status too low":  {"preempt": map[string]any{"status": 99}},
		"status too high": {"preempt": map[string]any{"status": 600}},
		"status fraction": {"preempt": map[string]any{"status": 200.5}},
		"status string":   {"preempt": map[string]any{"status": "500"}},
		"reason number":   {"preempt": map[string]any{"reason": 1}},
		"unknown field":   {"preempt": map[string]any{"body": "x"}},
		"unknown section": {"overrides": map[string]any{}},
		"preempt not map": {"preempt": true},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewRouteSettings()
			err := s.MergePatch(patch)
			assert.ErrorIs(t, err, ErrInvalidSettings)
			assert.Empty(t, s.Transient)
		})
	}
}

func TestRouteSettings_CloneIsDeep(t *testing.T) {
	s := NewRouteSettings()
	require.NoError(t, s.MergePatch(map[string]any{"preempt": map[string]any{"status": 500}}))

	c := s.Clone()
	c.Transient["preempt"].(map[string]any)["status"] = 200
	c.Defaults["preempt"].(map[string]any)["reason"] = "x"

	assert.Equal(t, Preempt{Status: 500}, s.Preempt())
	assert.Nil(t, s.Defaults["preempt"].(map[string]any)["reason"])
}

func TestRoute_Key(t *testing.T) {
	assert.Equal(t, "GET /items/{id}", Route{Method: "GET", Pattern: "/items/{id}"}.Key())
}
