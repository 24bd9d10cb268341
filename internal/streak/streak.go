package streak

import (
	"habitloopAPI/internal/dayrange"
)

// DefaultMaxLookback caps how far back the evaluator walks.
const DefaultMaxLookback = 365

// DaySet is a membership-only set of day keys.
type DaySet map[string]struct{}

func (s DaySet) Add(key string) {
	s[dayrange.Normalize(key)] = struct{}{}
}

func (s DaySet) Has(key string) bool {
	_, ok := s[dayrange.Normalize(key)]
	return ok
}

// Union merges other into s and returns s.
func (s DaySet) Union(other map[string]struct{}) DaySet {
	for key := range other {
		s.Add(key)
	}
	return s
}

// Current walks backward one calendar day at a time from asOfDay and counts
// consecutive days present in done, including asOfDay itself. It stops at the
// first gap or after maxLookback days. The caller builds done as the union of
// checklist done-days and habit-challenge completed-days: either tracked
// activity keeps the streak alive.
//
// This is a pure function of its inputs; completion records can be edited
// retroactively, so the streak is re-derived on every call and no stored
// value is trusted.
func Current(done DaySet, asOfDay string, maxLookback int) int {
	if maxLookback <= 0 {
		maxLookback = DefaultMaxLookback
	}

	day := dayrange.Normalize(asOfDay)
	if !dayrange.Valid(day) {
		return 0
	}

	count := 0
	for i := 0; i < maxLookback; i++ {
		if !done.Has(day) {
			break
		}
		count++
		day = dayrange.PrevDay(day)
	}
	return count
}
