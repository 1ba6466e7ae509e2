package models

import (
	"time"

	"villastay/internal/pricing"
)

// CancellationQuote is a refund offer shown to an admin. It is only valid for
// the booking version it was computed against and until ExpiresAt.
type CancellationQuote struct {
	ID        string              `json:"id"`
	BookingID int64               `json:"booking_id"`
	Version   int64               `json:"version"`
	Amount    int64               `json:"amount"`
	Quote     pricing.RefundQuote `json:"quote"`
	IssuedAt  time.Time           `json:"issued_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

func (q *CancellationQuote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}
