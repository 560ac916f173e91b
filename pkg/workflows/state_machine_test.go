package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepMachineTransitions(t *testing.T) {
	sm := NewStepMachine(9)

	assert.True(t, sm.CanTransition(1, 2))
	assert.False(t, sm.CanTransition(1, 3), "forward jumps are not allowed")
	assert.True(t, sm.CanTransition(9, 10))
	assert.True(t, sm.CanTransition(9, 2))
	assert.False(t, sm.CanTransition(1, 0))
	assert.False(t, sm.CanTransition(10, 9), "terminal step is final")
	assert.False(t, sm.CanTransition(42, 43))

	assert.Equal(t, []int{4, 2, 1}, sm.GetAllowedTransitions(3))
	assert.Empty(t, sm.GetAllowedTransitions(10))
	assert.Equal(t, 10, sm.Terminal())
	assert.Equal(t, 9, sm.Steps())
}
