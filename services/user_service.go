package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitloopAPI/internal/apperr"
	"habitloopAPI/internal/leaderboard"
	"habitloopAPI/internal/stats"
	"habitloopAPI/internal/user"
)

type UserService struct {
	db        *pgxpool.Pool
	checklist *ChecklistService
}

func NewUserService(db *pgxpool.Pool, checklist *ChecklistService) *UserService {
	return &UserService{db: db, checklist: checklist}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	u := &user.User{
		ID:        uuid.New().String(),
		ClerkID:   req.ClerkID,
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ImageURL:  req.ImageURL,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, xp, created_at, updated_at
	`

	err := s.db.QueryRow(
		ctx, query,
		u.ID, u.ClerkID, u.Email, u.Username, u.FirstName, u.LastName, u.ImageURL, u.CreatedAt, u.UpdatedAt,
	).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.ImageURL, &u.EmailVerified, &u.XP, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT id, clerk_id, email, username, first_name, last_name, image_url, email_verified, xp, created_at, updated_at
	FROM users
	WHERE clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.ImageURL, &u.EmailVerified, &u.XP, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, xp, created_at, updated_at
	`

	u := &user.User{}
	err := s.db.QueryRow(
		ctx, query,
		clerkID, req.Username, req.FirstName, req.LastName, req.ImageURL,
	).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.ImageURL, &u.EmailVerified, &u.XP, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return u, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	return nil
}

func (s *UserService) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	_, err := s.db.Exec(ctx,
		`UPDATE users SET email_verified = $2, updated_at = NOW() WHERE clerk_id = $1`,
		clerkID, verified,
	)
	return err
}

func (s *UserService) SearchUsers(ctx context.Context, clerkID string, query string) ([]*user.User, error) {
	cleanQuery := strings.TrimSpace(query)
	if cleanQuery == "" {
		return nil, fmt.Errorf("%w: search query is required", apperr.ErrInvalidInput)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, clerk_id, email, username, first_name, last_name, image_url, email_verified, xp, created_at, updated_at
		FROM users
		WHERE (username ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1)
			AND clerk_id != $2
		ORDER BY username
		LIMIT 50
	`, cleanQuery+"%", clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u := &user.User{}
		err := rows.Scan(
			&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
			&u.ImageURL, &u.EmailVerified, &u.XP, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// GetLeaderboard ranks users by XP. scope is "global" or a challenge ID, in
// which case only that challenge's participants are ranked.
func (s *UserService) GetLeaderboard(ctx context.Context, clerkID string, scope string) (*leaderboard.Leaderboard, error) {
	var rows pgx.Rows
	var err error

	if scope == "" || scope == "global" {
		scope = "global"
		rows, err = s.db.Query(ctx, `
			SELECT id, username, COALESCE(image_url, ''), xp,
				RANK() OVER (ORDER BY xp DESC) AS rank
			FROM users
			ORDER BY xp DESC, username
			LIMIT 50
		`)
	} else {
		challengeID, parseErr := uuid.Parse(scope)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: scope must be 'global' or a challenge id", apperr.ErrInvalidInput)
		}
		rows, err = s.db.Query(ctx, `
			SELECT u.id, u.username, COALESCE(u.image_url, ''), u.xp,
				RANK() OVER (ORDER BY u.xp DESC) AS rank
			FROM users u
			JOIN challenge_participants cp ON cp.user_id = u.id
			WHERE cp.challenge_id = $1
			ORDER BY u.xp DESC, u.username
			LIMIT 50
		`, challengeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	lb := &leaderboard.Leaderboard{Scope: scope, Entries: []leaderboard.LeaderboardEntry{}}
	for rows.Next() {
		var e leaderboard.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.ImageURL, &e.XP, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		lb.Entries = append(lb.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return lb, nil
}

// GetUserStats assembles the profile stat block. The streak is re-derived
// through the checklist service on every call.
func (s *UserService) GetUserStats(ctx context.Context, clerkID string, clientDay string, tzOffsetMinutes *int) (*stats.UserStats, error) {
	u, err := s.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	currentStreak, err := s.checklist.CurrentStreak(ctx, clerkID, clientDay, tzOffsetMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute streak: %w", err)
	}

	groups, err := s.checklist.History(ctx, clerkID, tzOffsetMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	st := &stats.UserStats{
		XP:            u.XP,
		CurrentStreak: currentStreak,
	}

	todayKey := todayInClientFrame(clientDay, tzOffsetMinutes)
	st.TodayKey = todayKey
	for _, g := range groups {
		done := false
		for _, t := range g.Tasks {
			if t.Done {
				done = true
				break
			}
		}
		if done {
			st.TotalDoneDays++
			if g.DayKey == todayKey {
				st.TodayCompleted = true
			}
		}
	}

	return st, nil
}
