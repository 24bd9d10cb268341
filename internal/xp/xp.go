package xp

// XP amounts per trigger. Idempotence for the task-completion delta lives in
// the checklist ledger's diff; the one-time awards carry their own markers
// (daily bonus dates, milestone thresholds) persisted next to the user.
const (
	TaskCompletionXP       = 5
	DailyBonusXP           = 50
	StreakMilestoneXP      = 50
	HabitFirstCompletionXP = 5
)

// MilestoneThresholds lists streak lengths that pay a one-time bonus, in
// ascending order. Each threshold has its own marker, so extending this list
// retroactively awards users who already passed a new threshold on their next
// ledger write.
var MilestoneThresholds = []int{7, 14, 30}

// CompletionDelta converts the ledger's newly-completed count into points.
func CompletionDelta(newlyCompleted int) int {
	if newlyCompleted <= 0 {
		return 0
	}
	return newlyCompleted * TaskCompletionXP
}

// MilestonesDue returns the thresholds reached by currentStreak that have not
// been awarded yet.
func MilestonesDue(currentStreak int, awarded map[int]bool) []int {
	var due []int
	for _, threshold := range MilestoneThresholds {
		if currentStreak >= threshold && !awarded[threshold] {
			due = append(due, threshold)
		}
	}
	return due
}

// HabitFirstCompletionDelta pays once for turning a habit day from incomplete
// to complete within a single mutation. Toggling a day off and back on in the
// same request compares the pre-state to the post-state, so it cannot
// double-pay.
func HabitFirstCompletionDelta(wasCompletedBefore, isCompletedNow bool) int {
	if !wasCompletedBefore && isCompletedNow {
		return HabitFirstCompletionXP
	}
	return 0
}
