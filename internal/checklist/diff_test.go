package checklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewlyCompleted(t *testing.T) {
	first := []Task{{Title: "gym", Done: true}, {Title: "read", Done: false}}

	// No previous entry: one newly completed task.
	assert.Equal(t, 1, NewlyCompleted(nil, first))

	// Same list written again: nothing new.
	assert.Equal(t, 0, NewlyCompleted(first, first))

	// Second task checked off.
	second := []Task{{Title: "gym", Done: true}, {Title: "read", Done: true}}
	assert.Equal(t, 1, NewlyCompleted(first, second))

	// Unchecking never yields negative credit.
	assert.Equal(t, 0, NewlyCompleted(second, first))
}

func TestAllDone(t *testing.T) {
	assert.False(t, AllDone(nil))
	assert.False(t, AllDone([]Task{}))
	assert.False(t, AllDone([]Task{{Done: true}, {Done: false}}))
	assert.True(t, AllDone([]Task{{Done: true}, {Done: true}}))
}

func TestGroupHistoryDedup(t *testing.T) {
	older := Entry{
		Date:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Tasks: []Task{{Title: "old", Done: false}},
	}
	newer := Entry{
		Date:  time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Tasks: []Task{{Title: "new", Done: true}},
	}

	groups := GroupHistory([]Entry{older, newer}, 0)
	require.Len(t, groups, 1)
	assert.Equal(t, "2025-03-10", groups[0].DayKey)
	assert.Equal(t, "new", groups[0].Tasks[0].Title)
}

func TestGroupHistorySortedDescending(t *testing.T) {
	entries := []Entry{
		{Date: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)},
	}

	groups := GroupHistory(entries, 0)
	require.Len(t, groups, 3)
	assert.Equal(t, "2025-03-10", groups[0].DayKey)
	assert.Equal(t, "2025-03-09", groups[1].DayKey)
	assert.Equal(t, "2025-03-08", groups[2].DayKey)
}

func TestGroupHistoryClientFrameBoundary(t *testing.T) {
	// A UTC+13 client (offset -780). An instant stored at 23:00Z on the 9th
	// is already the 10th locally (12:00), so it must collapse with a second
	// entry stored at 10:00Z on the 10th (23:00 local, still the 10th).
	early := Entry{
		Date:  time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC),
		Tasks: []Task{{Title: "early", Done: true}},
	}
	late := Entry{
		Date:  time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		Tasks: []Task{{Title: "late", Done: true}},
	}

	groups := GroupHistory([]Entry{early, late}, -780)
	require.Len(t, groups, 1)
	assert.Equal(t, "2025-03-10", groups[0].DayKey)
	assert.Equal(t, "late", groups[0].Tasks[0].Title)
}

func TestDoneDayKeys(t *testing.T) {
	entries := []Entry{
		{
			Date:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			Tasks: []Task{{Done: true}, {Done: false}},
		},
		{
			Date:  time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
			Tasks: []Task{{Done: false}},
		},
	}

	days := DoneDayKeys(entries, 0)
	assert.Contains(t, days, "2025-03-10")
	assert.NotContains(t, days, "2025-03-09")
}
