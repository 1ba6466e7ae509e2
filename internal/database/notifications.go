package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"villastay/internal/models"
)

const notificationColumns = `id, channel, booking_id, recipient, subject, body, status,
                             retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (channel, booking_id, recipient, subject, body, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		n.Channel,
		n.BookingID,
		n.Recipient,
		n.Subject,
		n.Body,
		n.Status,
		n.RetryCount,
		n.LastError,
		now,
		n.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	return nil
}

func (db *DB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`
	n, err := scanNotification(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// GetPendingNotifications returns messages that are due for a delivery attempt.
func (db *DB) GetPendingNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
              WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	return db.queryNotifications(ctx, query, models.NotificationPending, models.NotificationRetry, time.Now(), limit)
}

func (db *DB) GetFailedNotifications(ctx context.Context) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE status = ? ORDER BY created_at DESC`
	return db.queryNotifications(ctx, query, models.NotificationFailed)
}

func (db *DB) UpdateNotificationStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now()

	var lastErr *string
	if errMsg != "" {
		lastErr = &errMsg
	}

	switch status {
	case models.NotificationRetry:
		query = `UPDATE notifications SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, id}
	case models.NotificationSent, models.NotificationFailed:
		query = `UPDATE notifications SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, now, id}
	default:
		query = `UPDATE notifications SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}

func (db *DB) queryNotifications(ctx context.Context, query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return out, nil
}

func scanNotification(s scanner) (*models.Notification, error) {
	var n models.Notification
	var lastErr sql.NullString
	var processedAt, nextRetryAt sql.NullTime
	err := s.Scan(
		&n.ID, &n.Channel, &n.BookingID, &n.Recipient, &n.Subject, &n.Body, &n.Status,
		&n.RetryCount, &lastErr, &n.CreatedAt, &processedAt, &nextRetryAt,
	)
	if err != nil {
		return nil, err
	}
	if lastErr.Valid {
		n.LastError = &lastErr.String
	}
	if processedAt.Valid {
		n.ProcessedAt = &processedAt.Time
	}
	if nextRetryAt.Valid {
		n.NextRetryAt = &nextRetryAt.Time
	}
	return &n, nil
}
