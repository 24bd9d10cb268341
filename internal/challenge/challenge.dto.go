package challenge

type CreateChallengeRequest struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ChallengeType ChallengeType `json:"challenge_type"`
}

// SetCompletedDaysRequest overwrites the caller's entire completed_days set
// on a challenge. Callers must include prior days they want retained.
type SetCompletedDaysRequest struct {
	CompletedDays []string `json:"completed_days"`
}

type SetCompletedDaysResult struct {
	Participant   *Participant `json:"participant"`
	XPAwarded     int          `json:"xp_awarded"`
	CurrentStreak int          `json:"current_streak"`
}
