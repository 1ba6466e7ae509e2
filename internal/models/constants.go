package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	NotificationPending = "pending"
	NotificationRetry   = "retry"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelSheets   = "sheets"
)

const (
	// WorkerQueueSize is the capacity of the in-memory notification queue.
	WorkerQueueSize = 1000

	// DefaultQuoteTTL is how long an admin has to confirm a cancellation quote.
	DefaultQuoteTTL = 15 * 60 // seconds

	// DefaultExportRangeDays is used when an export request omits its range.
	DefaultExportRangeDays = 90
)
