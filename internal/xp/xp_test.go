package xp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionDelta(t *testing.T) {
	assert.Equal(t, 0, CompletionDelta(0))
	assert.Equal(t, 0, CompletionDelta(-3))
	assert.Equal(t, 5, CompletionDelta(1))
	assert.Equal(t, 15, CompletionDelta(3))
}

func TestMilestonesDue(t *testing.T) {
	// Below the first threshold: nothing due.
	assert.Empty(t, MilestonesDue(6, nil))

	// Exactly 7: the 7-day milestone is due once.
	assert.Equal(t, []int{7}, MilestonesDue(7, nil))

	// Already awarded: nothing due again.
	assert.Empty(t, MilestonesDue(7, map[int]bool{7: true}))

	// A long streak with one prior award pays only the missing thresholds.
	assert.Equal(t, []int{14, 30}, MilestonesDue(31, map[int]bool{7: true}))
}

func TestHabitFirstCompletionDelta(t *testing.T) {
	assert.Equal(t, 5, HabitFirstCompletionDelta(false, true))
	assert.Equal(t, 0, HabitFirstCompletionDelta(true, true))
	assert.Equal(t, 0, HabitFirstCompletionDelta(true, false))
	assert.Equal(t, 0, HabitFirstCompletionDelta(false, false))
}
