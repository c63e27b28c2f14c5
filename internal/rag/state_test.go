package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateEmbedding, true},
		{StateIdle, StateGenerating, false},
		{StateEmbedding, StateRetrieving, true},
		{StateRetrieving, StateNoContext, true},
		{StateRetrieving, StateGenerating, true},
		{StateRetrieving, StateSourcing, false},
		{StateGenerating, StateSourcing, true},
		{StateGenerating, StateIdle, true},
		{StateSourcing, StateIdle, true},
		{StateSourcing, StateGenerating, false},
		{StateNoContext, StateIdle, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.True(t, StateNoContext.IsTerminal())
	assert.False(t, StateIdle.IsTerminal())
}

func TestMachine(t *testing.T) {
	var seen []State
	m := NewMachine("q1", func(id string, from, to State) {
		assert.Equal(t, "q1", id)
		seen = append(seen, to)
	})

	require.NoError(t, m.To(StateEmbedding))
	require.NoError(t, m.To(StateRetrieving))

	err := m.To(StateSourcing)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateRetrieving, m.State())

	m.Abort()
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, []State{StateEmbedding, StateRetrieving, StateIdle}, seen)

	m.Abort()
	assert.Len(t, seen, 3)
}

func TestState_Hint(t *testing.T) {
	assert.Equal(t, "generating answer", StateGenerating.Hint())
	assert.Equal(t, "sourcing citations", StateSourcing.Hint())
	assert.Empty(t, StateIdle.Hint())
}

func TestValidatePage(t *testing.T) {
	assert.NoError(t, ValidatePage(1, 3))
	assert.NoError(t, ValidatePage(3, 3))
	assert.ErrorIs(t, ValidatePage(0, 3), ErrPageOutOfRange)
	assert.ErrorIs(t, ValidatePage(4, 3), ErrPageOutOfRange)
	assert.ErrorIs(t, ValidatePage(1, 0), ErrPageOutOfRange)
}
