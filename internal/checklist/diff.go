package checklist

import (
	"sort"

	"habitloopAPI/internal/dayrange"
)

// DoneCount returns the number of completed tasks in a list.
func DoneCount(tasks []Task) int {
	count := 0
	for _, t := range tasks {
		if t.Done {
			count++
		}
	}
	return count
}

// NewlyCompleted compares aggregate done-counts between the previous and the
// incoming task list for the same day. Writing the same list twice therefore
// yields 0 on the second write. Unchecking tasks never produces a negative
// credit.
func NewlyCompleted(prev, next []Task) int {
	delta := DoneCount(next) - DoneCount(prev)
	if delta < 0 {
		return 0
	}
	return delta
}

// AllDone reports whether a non-empty task list is fully completed. An empty
// list never qualifies for the daily bonus.
func AllDone(tasks []Task) bool {
	return len(tasks) > 0 && DoneCount(tasks) == len(tasks)
}

// GroupHistory buckets entries by their day key in the client's timezone
// frame, keeping only the most recently dated entry per key, sorted by key
// descending. Two stored instants can map to the same client-local day (or to
// different days than their UTC date) so grouping must happen in the client
// frame, not on the stored UTC instant.
func GroupHistory(entries []Entry, tzOffsetMinutes int) []DayGroup {
	latest := make(map[string]Entry)
	for _, e := range entries {
		key := dayrange.DayKey(e.Date, tzOffsetMinutes)
		if kept, ok := latest[key]; !ok || e.Date.After(kept.Date) {
			latest[key] = e
		}
	}

	groups := make([]DayGroup, 0, len(latest))
	for key, e := range latest {
		groups = append(groups, DayGroup{DayKey: key, Tasks: e.Tasks})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].DayKey > groups[j].DayKey
	})
	return groups
}

// DoneDayKeys returns the set of day keys, in the client's frame, on which an
// entry has at least one completed task. This is the checklist half of the
// streak evaluator's input.
func DoneDayKeys(entries []Entry, tzOffsetMinutes int) map[string]struct{} {
	days := make(map[string]struct{})
	for _, e := range entries {
		if DoneCount(e.Tasks) > 0 {
			days[dayrange.DayKey(e.Date, tzOffsetMinutes)] = struct{}{}
		}
	}
	return days
}
