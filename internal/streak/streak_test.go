package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func set(keys ...string) DaySet {
	s := make(DaySet)
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func TestCurrentConsecutiveDays(t *testing.T) {
	// D, D-1, D-2 completed; D-3 missing.
	done := set("2025-03-10", "2025-03-09", "2025-03-08")
	assert.Equal(t, 3, Current(done, "2025-03-10", 0))
}

func TestCurrentStopsAtGap(t *testing.T) {
	done := set("2025-03-10", "2025-03-08") // hole on the 9th
	assert.Equal(t, 1, Current(done, "2025-03-10", 0))
}

func TestCurrentZeroWhenAsOfDayMissing(t *testing.T) {
	done := set("2025-03-09", "2025-03-08")
	assert.Equal(t, 0, Current(done, "2025-03-10", 0))
}

func TestCurrentUnionOfSources(t *testing.T) {
	// Challenge completion on D, checklist completion on D-1: both count.
	checklist := map[string]struct{}{"2025-03-09": {}}
	done := set("2025-03-10").Union(checklist)
	assert.Equal(t, 2, Current(done, "2025-03-10", 0))
}

func TestCurrentMonthBoundary(t *testing.T) {
	done := set("2025-03-01", "2025-02-28", "2025-02-27")
	assert.Equal(t, 3, Current(done, "2025-03-01", 0))
}

func TestCurrentMaxLookback(t *testing.T) {
	done := set("2025-03-10", "2025-03-09", "2025-03-08", "2025-03-07")
	assert.Equal(t, 2, Current(done, "2025-03-10", 2))
}

func TestCurrentNormalizesStoredDates(t *testing.T) {
	done := make(DaySet)
	done.Add("2025-03-10T00:00:00Z") // stored with a trailing time component
	done.Add("2025-03-09")
	assert.Equal(t, 2, Current(done, "2025-03-10", 0))
}

func TestCurrentInvalidAsOfDay(t *testing.T) {
	assert.Equal(t, 0, Current(set("2025-03-10"), "not-a-day", 0))
}
