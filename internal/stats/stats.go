package stats

type UserStats struct {
	XP             int    `json:"xp"`
	CurrentStreak  int    `json:"current_streak"`
	TotalDoneDays  int    `json:"total_done_days"`
	TodayCompleted bool   `json:"today_completed"`
	TodayKey       string `json:"today_key"`
}
