package domain

import (
	"context"
	"time"

	"villastay/internal/models"
	"villastay/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingStore interface {
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetActiveRooms(ctx context.Context) ([]*models.Room, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
	ConfirmPaymentWithVersion(ctx context.Context, id, version int64, paymentID, provider string) error
	CancelBookingWithVersion(ctx context.Context, id, version int64, quote pricing.RefundQuote, at time.Time) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	GetPendingNotifications(ctx context.Context, limit int) ([]*models.Notification, error)
	UpdateNotificationStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// QuoteStore keeps cancellation quotes until they are confirmed or expire.
// GetQuote returns nil, nil for an unknown or expired quote.
type QuoteStore interface {
	SaveQuote(ctx context.Context, quote *models.CancellationQuote) error
	GetQuote(ctx context.Context, id string) (*models.CancellationQuote, error)
	DeleteQuote(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type NotificationQueue interface {
	Enqueue(ctx context.Context, n *models.Notification) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type RoomService interface {
	GetActiveRooms(ctx context.Context) ([]*models.Room, error)
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, req *models.BookingRequest) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, id, version int64, paymentID, provider string) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
	GetInvoice(ctx context.Context, id int64) (*models.Booking, *pricing.Invoice, error)
}

type CancellationService interface {
	Policy() pricing.Policy
	QuoteCancellation(ctx context.Context, bookingID int64, now time.Time) (*models.CancellationQuote, error)
	ConfirmCancellation(ctx context.Context, quoteID, actor string) (*models.Booking, error)
}
