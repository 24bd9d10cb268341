package utils

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitloopAPI/internal/notification"
)

// NotificationCreator is the slice of NotificationService these triggers need.
// Keeping it an interface avoids an import cycle with the services package.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

// NotifyDailyBonus tells a user their checklist for dayKey earned the daily
// bonus. Always called in a goroutine after the awarding transaction commits.
func NotifyDailyBonus(notifier NotificationCreator, userID uuid.UUID, dayKey string) {
	bgCtx := context.Background()

	req := &notification.CreateNotificationRequest{
		UserID:   userID,
		Type:     notification.TypeDailyBonus,
		Priority: notification.PriorityNormal,
		Data: map[string]any{
			"day": dayKey,
		},
	}

	if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
		log.Printf("Failed to create daily bonus notification for user %s: %v", userID, err)
	}
}

// NotifyStreakMilestone congratulates a user on reaching a streak threshold.
func NotifyStreakMilestone(notifier NotificationCreator, userID uuid.UUID, days int) {
	bgCtx := context.Background()

	req := &notification.CreateNotificationRequest{
		UserID:   userID,
		Type:     notification.TypeStreakMilestone,
		Priority: notification.PriorityHigh,
		Data: map[string]any{
			"days": days,
		},
	}

	if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
		log.Printf("Failed to create streak milestone notification for user %s: %v", userID, err)
	}
}

// NotifyChallengeJoined tells a challenge owner that someone joined.
func NotifyChallengeJoined(notifier NotificationCreator, ownerID, actorID uuid.UUID, actorName, title string) {
	bgCtx := context.Background()

	req := &notification.CreateNotificationRequest{
		UserID:   ownerID,
		Type:     notification.TypeChallengeJoined,
		Priority: notification.PriorityNormal,
		ActorID:  &actorID,
		Data: map[string]any{
			"username": actorName,
			"title":    title,
		},
	}

	if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
		log.Printf("Failed to create challenge joined notification for owner %s: %v", ownerID, err)
	}
}

// NotifyWatchersDayCompleted fans out to everyone watching a challenge when a
// participant marks a day completed. The actor never notifies themselves.
func NotifyWatchersDayCompleted(db *pgxpool.Pool, notifier NotificationCreator, challengeID, actorID uuid.UUID, actorName, title, dayKey string) {
	bgCtx := context.Background()

	rows, err := db.Query(bgCtx,
		`SELECT user_id FROM challenge_watchers WHERE challenge_id = $1 AND user_id != $2`,
		challengeID, actorID,
	)
	if err != nil {
		log.Printf("Failed to get watchers for notification: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var watcherID uuid.UUID
		if err := rows.Scan(&watcherID); err != nil {
			continue
		}

		req := &notification.CreateNotificationRequest{
			UserID:   watcherID,
			Type:     notification.TypeWatchedDayCompleted,
			Priority: notification.PriorityNormal,
			ActorID:  &actorID,
			Data: map[string]any{
				"username": actorName,
				"title":    title,
				"day":      dayKey,
			},
		}

		if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
			log.Printf("Failed to create watcher notification for %s: %v", watcherID, err)
		}
	}
}

// NotifyCommentReply tells a comment author someone replied to them.
func NotifyCommentReply(notifier NotificationCreator, recipientID, actorID uuid.UUID, actorName, content string) {
	bgCtx := context.Background()

	req := &notification.CreateNotificationRequest{
		UserID:   recipientID,
		Type:     notification.TypeCommentReply,
		Priority: notification.PriorityNormal,
		ActorID:  &actorID,
		Data: map[string]any{
			"username": actorName,
			"preview":  preview(content),
		},
	}

	if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
		log.Printf("Failed to create reply notification for user %s: %v", recipientID, err)
	}
}

// NotifyMentions resolves @mentions to user rows and notifies each mentioned
// user. Unknown usernames are skipped silently; self-mentions are ignored.
func NotifyMentions(db *pgxpool.Pool, notifier NotificationCreator, actorID uuid.UUID, actorName string, mentions []string, content string) {
	bgCtx := context.Background()

	for _, username := range mentions {
		var mentionedID uuid.UUID
		err := db.QueryRow(bgCtx, `SELECT id FROM users WHERE username = $1`, username).Scan(&mentionedID)
		if err != nil {
			continue
		}
		if mentionedID == actorID {
			continue
		}

		req := &notification.CreateNotificationRequest{
			UserID:   mentionedID,
			Type:     notification.TypeCommentMention,
			Priority: notification.PriorityHigh,
			ActorID:  &actorID,
			Data: map[string]any{
				"username": actorName,
				"preview":  preview(content),
			},
		}

		if _, err := notifier.CreateNotification(bgCtx, req); err != nil {
			log.Printf("Failed to create mention notification for %s: %v", username, err)
		}
	}
}

func preview(content string) string {
	const max = 80
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
