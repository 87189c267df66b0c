package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(10)
	for i := 0; i < 10; i++ {
		assert.NoError(t, q.Check("origin"), "step %d should be allowed", i+1)
	}
	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.MaxSteps())
}

func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(5)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check("[Hero] entity/query-all"))
	}

	err := q.Check("[Hero] entity/query-all")
	require.Error(t, err)

	var stepsErr *StepsExceededError
	require.ErrorAs(t, err, &stepsErr)
	assert.Equal(t, "[Hero] entity/query-all", stepsErr.Origin)
	assert.Equal(t, 6, stepsErr.Steps)
	assert.Equal(t, 5, stepsErr.Limit)
}

func TestQuotaEnforcer_Disabled(t *testing.T) {
	q := NewQuotaEnforcer(0)
	for i := 0; i < 5000; i++ {
		require.NoError(t, q.Check("x"))
	}
}

func TestStepsExceededError_Error(t *testing.T) {
	err := &StepsExceededError{Origin: "ping", Steps: 1001, Limit: 1000}
	assert.Equal(t, `dispatch of "ping" exceeded max steps quota: 1001 steps > 1000 limit`, err.Error())
}

func TestIsQuotaError(t *testing.T) {
	steps := &StepsExceededError{Origin: "ping", Steps: 2, Limit: 1}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"steps error", steps, true},
		{"wrapped steps error", fmt.Errorf("dispatch: %w", steps), true},
		{"runtime quota error", &RuntimeError{Code: ErrCodeQuotaExceeded}, true},
		{"other runtime error", &RuntimeError{Code: ErrCodeEffectPanic}, false},
		{"plain error", fmt.Errorf("nope"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQuotaError(tt.err))
		})
	}
}

func TestRuntimeError_Format(t *testing.T) {
	err := &RuntimeError{
		Code:       ErrCodeEffectPanic,
		Message:    "effect panicked: boom",
		ActionType: "[Hero] entity/query-all",
		Effect:     "persist",
	}
	assert.Equal(t, "EFFECT_PANIC: effect panicked: boom (action=[Hero] entity/query-all, effect=persist)", err.Error())
	assert.True(t, HasCode(fmt.Errorf("wrap: %w", err), ErrCodeEffectPanic))

	inner := fmt.Errorf("disk full")
	logErr := &RuntimeError{Code: ErrCodeActionLog, Message: "append seq 3", Err: inner}
	assert.ErrorIs(t, logErr, inner)
	assert.Equal(t, "ACTION_LOG: append seq 3: disk full", logErr.Error())
}
