package challenge

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeType string

const (
	TypeHabit  ChallengeType = "habit"
	TypeResult ChallengeType = "result"
)

func (t ChallengeType) Valid() bool {
	return t == TypeHabit || t == TypeResult
}

type Challenge struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	OwnerID       uuid.UUID     `json:"owner_id" db:"owner_id"`
	Title         string        `json:"title" db:"title"`
	Description   string        `json:"description" db:"description"`
	ChallengeType ChallengeType `json:"challenge_type" db:"challenge_type"`
	Participants  []Participant `json:"participants,omitempty"`
	WatcherCount  int           `json:"watcher_count"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// Participant tracks one user's habit-day completions on a challenge. The
// completed_days set belongs to the participant, not the challenge owner.
type Participant struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ChallengeID   uuid.UUID `json:"challenge_id" db:"challenge_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Username      string    `json:"username,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	CompletedDays []string  `json:"completed_days" db:"completed_days"`
	JoinedAt      time.Time `json:"joined_at" db:"joined_at"`
}
