package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitloopAPI/internal/apperr"
	"habitloopAPI/internal/checklist"
	"habitloopAPI/internal/dayrange"
	"habitloopAPI/internal/streak"
	"habitloopAPI/internal/xp"
	"habitloopAPI/utils"
)

type ChecklistService struct {
	db       *pgxpool.Pool
	notifier *NotificationService
}

func NewChecklistService(db *pgxpool.Pool, notifier *NotificationService) *ChecklistService {
	return &ChecklistService{db: db, notifier: notifier}
}

// UpsertDay writes the caller's checklist for the calendar day resolved from
// the client timezone hints, shifted by dayOffset (0 = today, 1 = tomorrow).
// All same-day rows are removed before the insert so the one-entry-per-day
// invariant holds going forward; the most recently dated duplicate is the
// baseline for the newly-completed diff. The ledger write and every XP award
// it triggers commit as one transaction.
func (s *ChecklistService) UpsertDay(ctx context.Context, clerkID string, tasks []checklist.Task, clientDay string, tzOffsetMinutes *int, dayOffset int) (*checklist.UpsertResult, error) {
	if tasks == nil {
		return nil, fmt.Errorf("%w: tasks must be a list", apperr.ErrInvalidInput)
	}

	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	r, degraded := dayrange.Resolve(clientDay, tzOffsetMinutes, dayOffset)
	if degraded {
		log.Printf("UpsertDay: degraded UTC day resolution for user %s (day=%q)", clerkID, clientDay)
	}

	tzOffset := 0
	if !degraded {
		tzOffset = *tzOffsetMinutes
	}
	dayKey := dayrange.DayKey(r.Start, tzOffset)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	prevTasks, err := latestTasksInRange(ctx, tx, userID, r)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM daily_checklists WHERE user_id = $1 AND date >= $2 AND date < $3`,
		userID, r.Start, r.End,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to remove same-day entries: %w", err)
	}

	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("%w: tasks not serializable", apperr.ErrInvalidInput)
	}

	entry := &checklist.Entry{
		ID:     uuid.New(),
		UserID: userID,
		Date:   r.Start,
		Tasks:  tasks,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO daily_checklists (id, user_id, date, tasks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`, entry.ID, userID, r.Start, tasksJSON).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert checklist entry: %w", err)
	}

	result := &checklist.UpsertResult{Entry: entry}

	// Future-day entries are stored verbatim: planning ahead earns nothing,
	// and they never enter the streak walk for today.
	if dayOffset == 0 {
		if err := s.applyAwards(ctx, tx, userID, prevTasks, tasks, dayKey, tzOffset, result); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit checklist upsert: %w", err)
	}

	if result.DailyBonus {
		go utils.NotifyDailyBonus(s.notifier, userID, dayKey)
	}
	if result.MilestoneHit > 0 {
		go utils.NotifyStreakMilestone(s.notifier, userID, result.MilestoneHit)
	}

	return result, nil
}

// applyAwards runs the XP engine against the ledger diff inside the upsert's
// transaction: task-completion delta, once-per-day bonus, and any streak
// milestones the new state reaches.
func (s *ChecklistService) applyAwards(ctx context.Context, tx execQuerier, userID uuid.UUID, prevTasks, tasks []checklist.Task, dayKey string, tzOffset int, result *checklist.UpsertResult) error {
	result.NewlyCompleted = checklist.NewlyCompleted(prevTasks, tasks)
	delta := xp.CompletionDelta(result.NewlyCompleted)

	if checklist.AllDone(tasks) {
		tag, err := tx.Exec(ctx, `
			INSERT INTO xp_daily_bonuses (user_id, day_key, awarded_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id, day_key) DO NOTHING
		`, userID, dayKey)
		if err != nil {
			return fmt.Errorf("failed to record daily bonus: %w", err)
		}
		if tag.RowsAffected() == 1 {
			result.DailyBonus = true
			delta += xp.DailyBonusXP
		}
	}

	done, err := doneDaySet(ctx, tx, userID, tzOffset)
	if err != nil {
		return err
	}
	result.CurrentStreak = streak.Current(done, dayKey, streak.DefaultMaxLookback)

	awarded, err := awardedMilestones(ctx, tx, userID)
	if err != nil {
		return err
	}
	for _, threshold := range xp.MilestonesDue(result.CurrentStreak, awarded) {
		tag, err := tx.Exec(ctx, `
			INSERT INTO xp_streak_milestones (user_id, threshold, awarded_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id, threshold) DO NOTHING
		`, userID, threshold)
		if err != nil {
			return fmt.Errorf("failed to record streak milestone: %w", err)
		}
		if tag.RowsAffected() == 1 {
			delta += xp.StreakMilestoneXP
			result.MilestoneHit = threshold
		}
	}

	if delta != 0 {
		_, err = tx.Exec(ctx,
			`UPDATE users SET xp = xp + $2, updated_at = NOW() WHERE id = $1`,
			userID, delta,
		)
		if err != nil {
			return fmt.Errorf("failed to apply xp delta: %w", err)
		}
	}
	result.XPAwarded = delta
	return nil
}

// History returns the caller's checklists grouped by client-local day key,
// newest first, one entry per key.
func (s *ChecklistService) History(ctx context.Context, clerkID string, tzOffsetMinutes *int) ([]checklist.DayGroup, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entriesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	tzOffset := 0
	if dayrange.ValidOffset(tzOffsetMinutes) {
		tzOffset = *tzOffsetMinutes
	}

	groups := checklist.GroupHistory(entries, tzOffset)
	if groups == nil {
		groups = []checklist.DayGroup{}
	}
	return groups, nil
}

// CurrentStreak re-derives the caller's streak from both activity sources as
// of the client's today. Completion records can be edited retroactively, so
// no stored streak value is consulted.
func (s *ChecklistService) CurrentStreak(ctx context.Context, clerkID string, clientDay string, tzOffsetMinutes *int) (int, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	r, degraded := dayrange.Resolve(clientDay, tzOffsetMinutes, 0)
	tzOffset := 0
	if !degraded {
		tzOffset = *tzOffsetMinutes
	}
	asOf := dayrange.DayKey(r.Start, tzOffset)

	done, err := doneDaySet(ctx, s.db, userID, tzOffset)
	if err != nil {
		return 0, err
	}
	return streak.Current(done, asOf, streak.DefaultMaxLookback), nil
}

func (s *ChecklistService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

func (s *ChecklistService) entriesForUser(ctx context.Context, userID uuid.UUID) ([]checklist.Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, date, tasks, created_at, updated_at
		FROM daily_checklists
		WHERE user_id = $1
		ORDER BY date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checklists: %w", err)
	}
	defer rows.Close()

	var entries []checklist.Entry
	for rows.Next() {
		var e checklist.Entry
		var tasksJSON []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &tasksJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checklist entry: %w", err)
		}
		if err := json.Unmarshal(tasksJSON, &e.Tasks); err != nil {
			return nil, fmt.Errorf("failed to decode tasks: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checklists: %w", err)
	}
	return entries, nil
}

// querier lets the streak helpers run against either the pool or an open
// transaction, so the upsert sees its own uncommitted write.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// execQuerier adds writes; pgx.Tx and *pgxpool.Pool both satisfy it.
type execQuerier interface {
	querier
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// doneDaySet unions the two streak sources: checklist days with at least one
// done task (in the client frame) and habit-challenge completed days.
func doneDaySet(ctx context.Context, q querier, userID uuid.UUID, tzOffset int) (streak.DaySet, error) {
	done := make(streak.DaySet)

	rows, err := q.Query(ctx, `
		SELECT date, tasks
		FROM daily_checklists
		WHERE user_id = $1 AND date >= NOW() - INTERVAL '400 days'
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checklist days: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var date time.Time
		var tasksJSON []byte
		if err := rows.Scan(&date, &tasksJSON); err != nil {
			return nil, fmt.Errorf("failed to scan checklist day: %w", err)
		}
		var tasks []checklist.Task
		if err := json.Unmarshal(tasksJSON, &tasks); err != nil {
			continue
		}
		if checklist.DoneCount(tasks) > 0 {
			done.Add(dayrange.DayKey(date, tzOffset))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checklist days: %w", err)
	}

	chRows, err := q.Query(ctx, `
		SELECT cp.completed_days
		FROM challenge_participants cp
		JOIN challenges c ON c.id = cp.challenge_id
		WHERE cp.user_id = $1 AND c.challenge_type = 'habit'
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenge days: %w", err)
	}
	defer chRows.Close()

	for chRows.Next() {
		var days []string
		if err := chRows.Scan(&days); err != nil {
			return nil, fmt.Errorf("failed to scan challenge days: %w", err)
		}
		for _, d := range days {
			done.Add(d)
		}
	}
	if err := chRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenge days: %w", err)
	}

	return done, nil
}

// latestTasksInRange returns the task list of the most recently dated entry
// inside the range, the baseline for the newly-completed diff when duplicate
// same-day rows exist.
func latestTasksInRange(ctx context.Context, tx pgx.Tx, userID uuid.UUID, r dayrange.Range) ([]checklist.Task, error) {
	var tasksJSON []byte
	err := tx.QueryRow(ctx, `
		SELECT tasks
		FROM daily_checklists
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date DESC, updated_at DESC
		LIMIT 1
	`, userID, r.Start, r.End).Scan(&tasksJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch previous entry: %w", err)
	}

	var tasks []checklist.Task
	if err := json.Unmarshal(tasksJSON, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode previous tasks: %w", err)
	}
	return tasks, nil
}

// todayInClientFrame resolves the caller's current day key, degrading to UTC
// like every other time-sensitive path.
func todayInClientFrame(clientDay string, tzOffsetMinutes *int) string {
	r, degraded := dayrange.Resolve(clientDay, tzOffsetMinutes, 0)
	if degraded {
		return dayrange.Today(0)
	}
	return dayrange.DayKey(r.Start, *tzOffsetMinutes)
}

func awardedMilestones(ctx context.Context, q querier, userID uuid.UUID) (map[int]bool, error) {
	rows, err := q.Query(ctx,
		`SELECT threshold FROM xp_streak_milestones WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch awarded milestones: %w", err)
	}
	defer rows.Close()

	awarded := make(map[int]bool)
	for rows.Next() {
		var threshold int
		if err := rows.Scan(&threshold); err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		awarded[threshold] = true
	}
	return awarded, rows.Err()
}
