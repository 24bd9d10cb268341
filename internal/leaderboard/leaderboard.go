package leaderboard

import "github.com/google/uuid"

type LeaderboardEntry struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	ImageURL string    `json:"image_url,omitempty"`
	XP       int       `json:"xp"`
	Rank     int       `json:"rank"`
}

type Leaderboard struct {
	Scope   string             `json:"scope"`
	Entries []LeaderboardEntry `json:"entries"`
}
