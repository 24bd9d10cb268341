package services

import (
	"context"
	"log"
	"sync"
	"time"

	"habitloopAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher fans queued notifications out to a small worker pool
// and handles scheduled delivery and cleanup in the background.
type NotificationDispatcher struct {
	service      *NotificationService
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

type DispatchJob struct {
	Notification *notification.Notification
	Preferences  *notification.NotificationPreferences
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	dispatcher := &NotificationDispatcher{
		service:  service,
		workers:  5, // 5 workers is plenty for now
		jobQueue: make(chan *DispatchJob, 100),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()

	go dispatcher.processScheduledNotifications()
	go dispatcher.cleanupExpiredNotifications()

	return dispatcher
}

// SetPushProvider injects the real FCM provider from main.go.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *NotificationDispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notif := job.Notification
	prefs := job.Preferences

	if prefs.PushEnabled && len(prefs.DeviceTokens) > 0 && d.pushProvider != nil {
		err := d.pushProvider.SendPush(ctx, prefs.DeviceTokens, notif.Title, notif.Body, notif.Data)
		if err != nil {
			log.Printf("Push failed for user %s: %v", notif.UserID, err)
			d.markAsFailed(ctx, notif.ID.String(), err)
			return
		}
	} else {
		log.Printf("Skipping push: Enabled=%v, Tokens=%d, ProviderSet=%v",
			prefs.PushEnabled, len(prefs.DeviceTokens), d.pushProvider != nil)
	}

	d.markAsSent(ctx, notif.ID.String())
}

// DispatchNotification queues a notification for delivery.
func (d *NotificationDispatcher) DispatchNotification(ctx context.Context, notif *notification.Notification, prefs *notification.NotificationPreferences) {
	job := &DispatchJob{
		Notification: notif,
		Preferences:  prefs,
	}

	select {
	case d.jobQueue <- job:
		log.Printf("Notification %s queued for dispatch", notif.ID)
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue notification %s: queue full", notif.ID)
	}
}

func (d *NotificationDispatcher) processScheduledNotifications() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.processDueNotifications()
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processDueNotifications() {
	ctx := context.Background()

	query := `
		SELECT id, user_id, type, priority, status, title, body, data,
			   actor_id, scheduled_for, action_url, created_at, expires_at
		FROM notifications
		WHERE status = 'pending'
		  AND scheduled_for IS NOT NULL
		  AND scheduled_for <= NOW()
		  AND (expires_at IS NULL OR expires_at > NOW())
		LIMIT 100
	`

	rows, err := d.service.db.Query(ctx, query)
	if err != nil {
		log.Printf("Failed to fetch scheduled notifications: %v", err)
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		notif := &notification.Notification{}
		var dataStr string

		err := rows.Scan(
			&notif.ID, &notif.UserID, &notif.Type, &notif.Priority, &notif.Status,
			&notif.Title, &notif.Body, &dataStr, &notif.ActorID, &notif.ScheduledFor,
			&notif.ActionURL, &notif.CreatedAt, &notif.ExpiresAt,
		)
		if err != nil {
			log.Printf("Failed to scan scheduled notification: %v", err)
			continue
		}

		prefs, err := d.service.GetUserPreferencesByUUID(ctx, notif.UserID)
		if err != nil {
			log.Printf("Failed to get preferences for user %s: %v", notif.UserID, err)
			continue
		}

		d.DispatchNotification(ctx, notif, prefs)
		count++
	}

	if count > 0 {
		log.Printf("Processed %d scheduled notifications", count)
	}
}

func (d *NotificationDispatcher) cleanupExpiredNotifications() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.performCleanup()
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) performCleanup() {
	ctx := context.Background()

	query := `
		DELETE FROM notifications
		WHERE expires_at < NOW()
		  AND status IN ('sent', 'read')
	`

	result, err := d.service.db.Exec(ctx, query)
	if err != nil {
		log.Printf("Failed to cleanup expired notifications: %v", err)
		return
	}

	rowsAffected := result.RowsAffected()
	if rowsAffected > 0 {
		log.Printf("Cleaned up %d expired notifications", rowsAffected)
	}

	// Read notifications older than 90 days go too.
	query = `
		DELETE FROM notifications
		WHERE read_at < NOW() - INTERVAL '90 days'
		  AND status = 'read'
	`

	result, err = d.service.db.Exec(ctx, query)
	if err != nil {
		log.Printf("Failed to cleanup old read notifications: %v", err)
		return
	}

	rowsAffected = result.RowsAffected()
	if rowsAffected > 0 {
		log.Printf("Cleaned up %d old read notifications", rowsAffected)
	}
}

func (d *NotificationDispatcher) markAsSent(ctx context.Context, notificationID string) {
	query := `
		UPDATE notifications
		SET status = 'sent', sent_at = NOW()
		WHERE id = $1
	`

	_, err := d.service.db.Exec(ctx, query, notificationID)
	if err != nil {
		log.Printf("Failed to mark notification %s as sent: %v", notificationID, err)
	}
}

func (d *NotificationDispatcher) markAsFailed(ctx context.Context, notificationID string, err error) {
	failureReason := err.Error()

	query := `
		UPDATE notifications
		SET status = 'failed', failed_at = NOW(), failure_reason = $2, retry_count = retry_count + 1
		WHERE id = $1
	`

	_, dbErr := d.service.db.Exec(ctx, query, notificationID, failureReason)
	if dbErr != nil {
		log.Printf("Failed to mark notification %s as failed: %v", notificationID, dbErr)
	}

	// High and urgent priority notifications get up to 3 retries.
	var retryCount int
	var priority notification.NotificationPriority
	d.service.db.QueryRow(ctx, "SELECT retry_count, priority FROM notifications WHERE id = $1", notificationID).Scan(&retryCount, &priority)

	if retryCount < 3 && (priority == notification.PriorityHigh || priority == notification.PriorityUrgent) {
		retryTime := time.Now().Add(5 * time.Minute)
		d.service.db.Exec(ctx, "UPDATE notifications SET scheduled_for = $2, status = 'pending' WHERE id = $1", notificationID, retryTime)
		log.Printf("Scheduled retry for notification %s at %s", notificationID, retryTime)
	}
}

// Stop shuts the worker pool down gracefully.
func (d *NotificationDispatcher) Stop() {
	log.Println("Stopping notification dispatcher...")
	close(d.stopChan)
	d.wg.Wait()
	log.Println("Notification dispatcher stopped")
}

// Mock implementations for testing

type MockPushProvider struct{}

func (m *MockPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	log.Printf("MOCK PUSH: Sending to %d devices: %s - %s", len(tokens), title, body)
	return nil
}
