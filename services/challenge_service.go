package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitloopAPI/internal/apperr"
	"habitloopAPI/internal/challenge"
	"habitloopAPI/internal/dayrange"
	"habitloopAPI/internal/streak"
	"habitloopAPI/internal/xp"
	"habitloopAPI/utils"
)

type ChallengeService struct {
	db       *pgxpool.Pool
	notifier *NotificationService
}

func NewChallengeService(db *pgxpool.Pool, notifier *NotificationService) *ChallengeService {
	return &ChallengeService{db: db, notifier: notifier}
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, clerkID string, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	}
	if !req.ChallengeType.Valid() {
		return nil, fmt.Errorf("%w: challenge_type must be habit or result", apperr.ErrInvalidInput)
	}

	ownerID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ch := &challenge.Challenge{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		ChallengeType: req.ChallengeType,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO challenges (id, owner_id, title, description, challenge_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`, ch.ID, ownerID, ch.Title, ch.Description, ch.ChallengeType).Scan(&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	// The owner of a habit challenge tracks days too.
	if ch.ChallengeType == challenge.TypeHabit {
		_, err = tx.Exec(ctx, `
			INSERT INTO challenge_participants (id, challenge_id, user_id, completed_days, joined_at)
			VALUES ($1, $2, $3, '{}', NOW())
		`, uuid.New(), ch.ID, ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to add owner as participant: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit challenge: %w", err)
	}
	return ch, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*challenge.Challenge, error) {
	ch := &challenge.Challenge{}
	err := s.db.QueryRow(ctx, `
		SELECT c.id, c.owner_id, c.title, c.description, c.challenge_type, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM challenge_watchers w WHERE w.challenge_id = c.id) AS watcher_count
		FROM challenges c
		WHERE c.id = $1
	`, challengeID).Scan(
		&ch.ID, &ch.OwnerID, &ch.Title, &ch.Description, &ch.ChallengeType,
		&ch.CreatedAt, &ch.UpdatedAt, &ch.WatcherCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT cp.id, cp.challenge_id, cp.user_id, u.username, COALESCE(u.image_url, ''), cp.completed_days, cp.joined_at
		FROM challenge_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.challenge_id = $1
		ORDER BY cp.joined_at
	`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p challenge.Participant
		if err := rows.Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.Username, &p.ImageURL, &p.CompletedDays, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ch.Participants = append(ch.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return ch, nil
}

// ListChallenges returns challenges owned by, joined by, or discoverable to
// the caller. search filters by title prefix.
func (s *ChallengeService) ListChallenges(ctx context.Context, clerkID string, scope string, search string) ([]*challenge.Challenge, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT c.id, c.owner_id, c.title, c.description, c.challenge_type, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM challenge_watchers w WHERE w.challenge_id = c.id) AS watcher_count
		FROM challenges c
	`
	args := []any{}
	conditions := []string{}
	switch scope {
	case "mine":
		args = append(args, userID)
		conditions = append(conditions, fmt.Sprintf("c.owner_id = $%d", len(args)))
	case "joined":
		args = append(args, userID)
		conditions = append(conditions, fmt.Sprintf("c.id IN (SELECT challenge_id FROM challenge_participants WHERE user_id = $%d)", len(args)))
	}
	if search != "" {
		args = append(args, search+"%")
		conditions = append(conditions, fmt.Sprintf("c.title ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY c.created_at DESC LIMIT 50`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*challenge.Challenge{}
	for rows.Next() {
		ch := &challenge.Challenge{}
		if err := rows.Scan(&ch.ID, &ch.OwnerID, &ch.Title, &ch.Description, &ch.ChallengeType, &ch.CreatedAt, &ch.UpdatedAt, &ch.WatcherCount); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}
	return challenges, nil
}

func (s *ChallengeService) DeleteChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	var ownerID uuid.UUID
	err = s.db.QueryRow(ctx, `SELECT owner_id FROM challenges WHERE id = $1`, challengeID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("challenge: %w", apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to get challenge: %w", err)
	}
	if ownerID != userID {
		return fmt.Errorf("only the owner can delete a challenge: %w", apperr.ErrUnauthorized)
	}

	_, err = s.db.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, challengeID)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

func (s *ChallengeService) JoinChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	var ownerID uuid.UUID
	var title string
	err = s.db.QueryRow(ctx, `SELECT owner_id, title FROM challenges WHERE id = $1`, challengeID).Scan(&ownerID, &title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("challenge: %w", apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to get challenge: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO challenge_participants (id, challenge_id, user_id, completed_days, joined_at)
		VALUES ($1, $2, $3, '{}', NOW())
		ON CONFLICT (challenge_id, user_id) DO NOTHING
	`, uuid.New(), challengeID, userID)
	if err != nil {
		return fmt.Errorf("failed to join challenge: %w", err)
	}

	if tag.RowsAffected() == 1 && ownerID != userID {
		actorName := s.usernameOf(ctx, userID)
		go utils.NotifyChallengeJoined(s.notifier, ownerID, userID, actorName, title)
	}
	return nil
}

func (s *ChallengeService) LeaveChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM challenge_participants WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to leave challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant: %w", apperr.ErrNotFound)
	}
	return nil
}

// SetCompletedDays overwrites the caller's entire completed_days set on a
// habit challenge. The first-completion XP gate compares today's membership
// before and after the overwrite, so toggling today off and back on within
// one request pays nothing extra. The set write and the XP delta commit
// together.
func (s *ChallengeService) SetCompletedDays(ctx context.Context, clerkID string, challengeID uuid.UUID, dayKeys []string, clientDay string, tzOffsetMinutes *int) (*challenge.SetCompletedDaysResult, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(dayKeys))
	seen := make(map[string]bool)
	for _, raw := range dayKeys {
		key := dayrange.Normalize(raw)
		if !dayrange.Valid(key) {
			return nil, fmt.Errorf("%w: %q is not a valid day key", apperr.ErrInvalidInput, raw)
		}
		if !seen[key] {
			seen[key] = true
			normalized = append(normalized, key)
		}
	}

	r, degraded := dayrange.Resolve(clientDay, tzOffsetMinutes, 0)
	tzOffset := 0
	if !degraded {
		tzOffset = *tzOffsetMinutes
	}
	todayKey := dayrange.DayKey(r.Start, tzOffset)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var challengeType challenge.ChallengeType
	var title string
	err = tx.QueryRow(ctx, `SELECT challenge_type, title FROM challenges WHERE id = $1`, challengeID).
		Scan(&challengeType, &title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if challengeType != challenge.TypeHabit {
		return nil, fmt.Errorf("%w: completion days are tracked on habit challenges only", apperr.ErrInvalidInput)
	}

	p := &challenge.Participant{}
	var oldDays []string
	err = tx.QueryRow(ctx, `
		SELECT id, challenge_id, user_id, completed_days, joined_at
		FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2
		FOR UPDATE
	`, challengeID, userID).Scan(&p.ID, &p.ChallengeID, &p.UserID, &oldDays, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("participant: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	wasCompleted := containsDay(oldDays, todayKey)
	isCompleted := seen[todayKey]
	delta := xp.HabitFirstCompletionDelta(wasCompleted, isCompleted)

	_, err = tx.Exec(ctx,
		`UPDATE challenge_participants SET completed_days = $3 WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID, normalized,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update completed days: %w", err)
	}

	if delta != 0 {
		_, err = tx.Exec(ctx,
			`UPDATE users SET xp = xp + $2, updated_at = NOW() WHERE id = $1`,
			userID, delta,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to apply xp delta: %w", err)
		}
	}

	done, err := doneDaySet(ctx, tx, userID, tzOffset)
	if err != nil {
		return nil, err
	}
	currentStreak := streak.Current(done, todayKey, streak.DefaultMaxLookback)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit completed days: %w", err)
	}

	p.CompletedDays = normalized

	if !wasCompleted && isCompleted {
		actorName := s.usernameOf(ctx, userID)
		go utils.NotifyWatchersDayCompleted(s.db, s.notifier, challengeID, userID, actorName, title, todayKey)
	}

	return &challenge.SetCompletedDaysResult{
		Participant:   p,
		XPAwarded:     delta,
		CurrentStreak: currentStreak,
	}, nil
}

// IsDayCompleted reports whether the caller marked dayKey as completed.
// Stored representations may carry a trailing time component and are
// normalized before comparison.
func (s *ChallengeService) IsDayCompleted(ctx context.Context, clerkID string, challengeID uuid.UUID, dayKey string) (bool, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return false, err
	}

	var days []string
	err = s.db.QueryRow(ctx, `
		SELECT completed_days FROM challenge_participants
		WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID).Scan(&days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("participant: %w", apperr.ErrNotFound)
		}
		return false, fmt.Errorf("failed to get participant: %w", err)
	}
	return containsDay(days, dayrange.Normalize(dayKey)), nil
}

func (s *ChallengeService) WatchChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM challenges WHERE id = $1)`, challengeID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check challenge: %w", err)
	}
	if !exists {
		return fmt.Errorf("challenge: %w", apperr.ErrNotFound)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO challenge_watchers (challenge_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (challenge_id, user_id) DO NOTHING
	`, challengeID, userID)
	if err != nil {
		return fmt.Errorf("failed to watch challenge: %w", err)
	}
	return nil
}

func (s *ChallengeService) UnwatchChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM challenge_watchers WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to unwatch challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("watch: %w", apperr.ErrNotFound)
	}
	return nil
}

func (s *ChallengeService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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

func (s *ChallengeService) usernameOf(ctx context.Context, userID uuid.UUID) string {
	var username string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&username); err != nil {
		return "someone"
	}
	return username
}

func containsDay(days []string, key string) bool {
	for _, d := range days {
		if dayrange.Normalize(d) == key {
			return true
		}
	}
	return false
}
