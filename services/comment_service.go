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
	"habitloopAPI/internal/comment"
	"habitloopAPI/utils"
)

type CommentService struct {
	db       *pgxpool.Pool
	notifier *NotificationService
}

func NewCommentService(db *pgxpool.Pool, notifier *NotificationService) *CommentService {
	return &CommentService{db: db, notifier: notifier}
}

// CreateComment posts a comment or reply on a challenge. Replies carry a
// parent pointer and an explicit depth; anything deeper than MaxDepth is
// rejected. Mention and reply notifications are fire-and-forget.
func (s *CommentService) CreateComment(ctx context.Context, clerkID string, challengeID uuid.UUID, req *comment.CreateCommentRequest) (*comment.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", apperr.ErrInvalidInput)
	}

	userID, username, err := s.getUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM challenges WHERE id = $1)`, challengeID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check challenge: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("challenge: %w", apperr.ErrNotFound)
	}

	depth := 0
	var parentAuthor *uuid.UUID
	if req.ParentID != nil {
		var parentChallengeID, parentUserID uuid.UUID
		var parentDepth int
		err = s.db.QueryRow(ctx,
			`SELECT challenge_id, user_id, depth FROM comments WHERE id = $1`, *req.ParentID,
		).Scan(&parentChallengeID, &parentUserID, &parentDepth)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("parent comment: %w", apperr.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get parent comment: %w", err)
		}
		if parentChallengeID != challengeID {
			return nil, fmt.Errorf("%w: parent comment belongs to a different challenge", apperr.ErrInvalidInput)
		}
		depth = parentDepth + 1
		if depth > comment.MaxDepth {
			return nil, fmt.Errorf("%w: replies are limited to %d levels", apperr.ErrInvalidInput, comment.MaxDepth)
		}
		parentAuthor = &parentUserID
	}

	c := &comment.Comment{
		ID:          uuid.New(),
		ChallengeID: challengeID,
		UserID:      userID,
		Username:    username,
		ParentID:    req.ParentID,
		Depth:       depth,
		Content:     content,
		Mentions:    comment.ExtractMentions(content),
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO comments (id, challenge_id, user_id, parent_id, depth, content, mentions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`, c.ID, challengeID, userID, req.ParentID, depth, content, c.Mentions).Scan(&c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if parentAuthor != nil && *parentAuthor != userID {
		go utils.NotifyCommentReply(s.notifier, *parentAuthor, userID, username, content)
	}
	if len(c.Mentions) > 0 {
		go utils.NotifyMentions(s.db, s.notifier, userID, username, c.Mentions, content)
	}

	return c, nil
}

// ListComments returns a challenge's comments as a flat list, oldest first.
// Clients rebuild the (at most two-level) reply tree from the parent
// pointers.
func (s *CommentService) ListComments(ctx context.Context, challengeID uuid.UUID) ([]*comment.Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.challenge_id, c.user_id, u.username, c.parent_id, c.depth, c.content, c.mentions, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.challenge_id = $1
		ORDER BY c.created_at
	`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	defer rows.Close()

	comments := []*comment.Comment{}
	for rows.Next() {
		c := &comment.Comment{}
		if err := rows.Scan(&c.ID, &c.ChallengeID, &c.UserID, &c.Username, &c.ParentID, &c.Depth, &c.Content, &c.Mentions, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

// DeleteComment removes the author's comment and its replies. The flat store
// with a bounded depth means two parent-pointer passes cover the whole
// subtree.
func (s *CommentService) DeleteComment(ctx context.Context, clerkID string, commentID uuid.UUID) error {
	userID, _, err := s.getUser(ctx, clerkID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var authorID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT user_id FROM comments WHERE id = $1`, commentID).Scan(&authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("comment: %w", apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to get comment: %w", err)
	}
	if authorID != userID {
		return fmt.Errorf("only the author can delete a comment: %w", apperr.ErrUnauthorized)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM comments
		WHERE id = $1
			OR parent_id = $1
			OR parent_id IN (SELECT id FROM comments WHERE parent_id = $1)
	`, commentID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *CommentService) getUser(ctx context.Context, clerkID string) (uuid.UUID, string, error) {
	var userID uuid.UUID
	var username string
	err := s.db.QueryRow(ctx, `SELECT id, username FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID, &username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, "", fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return uuid.Nil, "", fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, username, nil
}
