package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitloopAPI/internal/checklist"
	"habitloopAPI/internal/xp"
)

// awardsFakeDB stands in for the upsert transaction. It keeps the bonus and
// milestone tables as in-memory sets so the ON CONFLICT DO NOTHING gates
// behave like they do on Postgres: the first insert affects one row, repeats
// affect zero.
type awardsFakeDB struct {
	checklistRows [][]any // (date time.Time, tasks []byte) per row
	habitDays     [][]string
	bonuses       map[string]bool
	milestones    map[int]bool
	xpApplied     int
}

func (f *awardsFakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	switch {
	case strings.Contains(sql, "FROM daily_checklists"):
		return &fakeRows{rows: f.checklistRows}, nil
	case strings.Contains(sql, "FROM challenge_participants"):
		rows := make([][]any, len(f.habitDays))
		for i, days := range f.habitDays {
			rows[i] = []any{days}
		}
		return &fakeRows{rows: rows}, nil
	case strings.Contains(sql, "FROM xp_streak_milestones"):
		var rows [][]any
		for threshold := range f.milestones {
			rows = append(rows, []any{threshold})
		}
		return &fakeRows{rows: rows}, nil
	}
	return &fakeRows{}, nil
}

func (f *awardsFakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "INSERT INTO xp_daily_bonuses"):
		dayKey := args[1].(string)
		if f.bonuses[dayKey] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.bonuses[dayKey] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "INSERT INTO xp_streak_milestones"):
		threshold := args[1].(int)
		if f.milestones[threshold] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.milestones[threshold] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "UPDATE users"):
		f.xpApplied += args[1].(int)
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return pgconn.CommandTag{}, nil
}

type fakeRows struct {
	idx  int
	rows [][]any
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	for i, d := range dest {
		switch v := d.(type) {
		case *time.Time:
			*v = row[i].(time.Time)
		case *[]byte:
			*v = row[i].([]byte)
		case *[]string:
			*v = row[i].([]string)
		case *int:
			*v = row[i].(int)
		}
	}
	return nil
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func doneTasksJSON(t *testing.T, titles ...string) []byte {
	t.Helper()
	tasks := make([]checklist.Task, len(titles))
	for i, title := range titles {
		tasks[i] = checklist.Task{Title: title, Done: true}
	}
	data, err := json.Marshal(tasks)
	require.NoError(t, err)
	return data
}

func TestApplyAwardsDailyBonusOncePerDay(t *testing.T) {
	userID := uuid.New()
	tasks := []checklist.Task{{Title: "gym", Done: true}, {Title: "read", Done: true}}

	db := &awardsFakeDB{
		checklistRows: [][]any{
			{time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), doneTasksJSON(t, "gym", "read")},
		},
		bonuses:    map[string]bool{},
		milestones: map[int]bool{},
	}
	svc := &ChecklistService{}

	first := &checklist.UpsertResult{}
	require.NoError(t, svc.applyAwards(context.Background(), db, userID, nil, tasks, "2025-06-10", 0, first))
	assert.Equal(t, 2, first.NewlyCompleted)
	assert.True(t, first.DailyBonus)
	assert.Equal(t, 1, first.CurrentStreak)
	assert.Equal(t, 2*xp.TaskCompletionXP+xp.DailyBonusXP, first.XPAwarded)

	// The same all-done list submitted again: no new completions, and the
	// bonus for this day key is already recorded, so nothing is paid twice.
	second := &checklist.UpsertResult{}
	require.NoError(t, svc.applyAwards(context.Background(), db, userID, tasks, tasks, "2025-06-10", 0, second))
	assert.Zero(t, second.NewlyCompleted)
	assert.False(t, second.DailyBonus)
	assert.Zero(t, second.XPAwarded)

	assert.Equal(t, 2*xp.TaskCompletionXP+xp.DailyBonusXP, db.xpApplied)
}

func TestApplyAwardsStreakMilestoneRecordedOnce(t *testing.T) {
	userID := uuid.New()
	tasks := []checklist.Task{{Title: "gym", Done: true}}

	// Seven consecutive done days ending on the as-of day.
	var rows [][]any
	for d := 4; d <= 10; d++ {
		rows = append(rows, []any{time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC), doneTasksJSON(t, "gym")})
	}

	db := &awardsFakeDB{
		checklistRows: rows,
		bonuses:       map[string]bool{},
		milestones:    map[int]bool{},
	}
	svc := &ChecklistService{}

	first := &checklist.UpsertResult{}
	require.NoError(t, svc.applyAwards(context.Background(), db, userID, tasks, tasks, "2025-06-10", 0, first))
	assert.Equal(t, 7, first.CurrentStreak)
	assert.Equal(t, 7, first.MilestoneHit)
	assert.Equal(t, xp.DailyBonusXP+xp.StreakMilestoneXP, first.XPAwarded)

	second := &checklist.UpsertResult{}
	require.NoError(t, svc.applyAwards(context.Background(), db, userID, tasks, tasks, "2025-06-10", 0, second))
	assert.Equal(t, 7, second.CurrentStreak)
	assert.Zero(t, second.MilestoneHit)
	assert.Zero(t, second.XPAwarded)
}
