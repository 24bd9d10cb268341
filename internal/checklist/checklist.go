package checklist

import (
	"time"

	"github.com/google/uuid"
)

// Task is a single line item on a daily checklist.
type Task struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// Entry is one user's checklist for one calendar day. Date holds the UTC
// instant of the client-local midnight the entry was bucketed into.
type Entry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Date      time.Time `json:"date" db:"date"`
	Tasks     []Task    `json:"tasks" db:"tasks"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type UpsertRequest struct {
	Tasks []Task `json:"tasks"`
}

// UpsertResult reports what an upsert changed. NewlyCompleted feeds the XP
// engine; the ledger itself never awards points.
type UpsertResult struct {
	Entry          *Entry `json:"entry"`
	NewlyCompleted int    `json:"newly_completed"`
	XPAwarded      int    `json:"xp_awarded"`
	DailyBonus     bool   `json:"daily_bonus"`
	CurrentStreak  int    `json:"current_streak"`
	MilestoneHit   int    `json:"milestone_hit,omitempty"`
}

// DayGroup is the history view: one entry per client-local day key.
type DayGroup struct {
	DayKey string `json:"day_key"`
	Tasks  []Task `json:"tasks"`
}
