package models

import "time"

// Notification is one outbound message waiting in the outbox.
type Notification struct {
	ID          int64      `json:"id"`
	Channel     string     `json:"channel"`
	BookingID   int64      `json:"booking_id"`
	Recipient   string     `json:"recipient"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
