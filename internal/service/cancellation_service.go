package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"villastay/internal/database"
	"villastay/internal/domain"
	"villastay/internal/events"
	"villastay/internal/metrics"
	"villastay/internal/models"
	"villastay/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	quoteRateLimit  = 20
	quoteRateWindow = time.Minute
)

// CancellationService runs the two step cancel: an admin asks for a quote,
// reviews the refund, then confirms the quote by id.
type CancellationService struct {
	store    domain.BookingStore
	quotes   domain.QuoteStore
	eventBus domain.EventPublisher
	queue    domain.NotificationQueue
	settings Settings
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewCancellationService(
	store domain.BookingStore,
	quotes domain.QuoteStore,
	eventBus domain.EventPublisher,
	queue domain.NotificationQueue,
	settings Settings,
	logger *zerolog.Logger,
) *CancellationService {
	if settings.QuoteTTL <= 0 {
		settings.QuoteTTL = models.DefaultQuoteTTL * time.Second
	}
	return &CancellationService{
		store:    store,
		quotes:   quotes,
		eventBus: eventBus,
		queue:    queue,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *CancellationService) Policy() pricing.Policy {
	return s.settings.Policy
}

// QuoteCancellation prices a cancellation at now without changing the booking.
func (s *CancellationService) QuoteCancellation(ctx context.Context, bookingID int64, now time.Time) (*models.CancellationQuote, error) {
	allowed, err := s.quotes.CheckRateLimit(ctx, fmt.Sprintf("quote:%d", bookingID), quoteRateLimit, quoteRateWindow)
	if err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", bookingID).Msg("quote rate limit check failed")
	} else if !allowed {
		return nil, ErrRateLimited
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsCancelled() {
		return nil, database.ErrAlreadyCancelled
	}

	refund, err := s.settings.Policy.Quote(now.In(s.settings.location()), booking.StartDate, booking.Amount)
	if err != nil {
		return nil, err
	}

	quote := &models.CancellationQuote{
		ID:        uuid.NewString(),
		BookingID: booking.ID,
		Version:   booking.Version,
		Amount:    booking.Amount,
		Quote:     refund,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.settings.QuoteTTL),
	}
	if err := s.quotes.SaveQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("save quote: %w", err)
	}

	metrics.IncRefundQuote(refund.RefundPercent)
	s.logger.Info().
		Str("quote_id", quote.ID).
		Int64("booking_id", booking.ID).
		Int("days_before_checkin", refund.DaysBeforeCheckin).
		Int("refund_percent", refund.RefundPercent).
		Int64("refund_amount", refund.RefundAmount).
		Msg("cancellation quoted")

	return quote, nil
}

// ConfirmCancellation applies a quote. The booking must still be at the
// version the quote was computed for; a quote is single use.
func (s *CancellationService) ConfirmCancellation(ctx context.Context, quoteID, actor string) (*models.Booking, error) {
	quote, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		metrics.IncCancellation("error")
		return nil, fmt.Errorf("load quote: %w", err)
	}
	if quote == nil {
		metrics.IncCancellation("not_found")
		return nil, ErrQuoteNotFound
	}

	now := s.now()
	if quote.Expired(now) {
		s.dropQuote(ctx, quoteID)
		metrics.IncCancellation("expired")
		return nil, ErrQuoteNotFound
	}

	booking, err := s.store.GetBooking(ctx, quote.BookingID)
	if err != nil {
		metrics.IncCancellation("error")
		return nil, err
	}
	if booking.IsCancelled() {
		s.dropQuote(ctx, quoteID)
		metrics.IncCancellation("already_cancelled")
		return nil, database.ErrAlreadyCancelled
	}
	if booking.Version != quote.Version {
		s.dropQuote(ctx, quoteID)
		metrics.IncCancellation("stale")
		return nil, fmt.Errorf("%w: quoted version %d, booking is at %d", ErrQuoteStale, quote.Version, booking.Version)
	}

	err = s.store.CancelBookingWithVersion(ctx, booking.ID, quote.Version, quote.Quote, now)
	switch {
	case errors.Is(err, database.ErrConcurrentModification):
		s.dropQuote(ctx, quoteID)
		metrics.IncCancellation("stale")
		return nil, fmt.Errorf("%w: %v", ErrQuoteStale, err)
	case errors.Is(err, database.ErrAlreadyCancelled):
		s.dropQuote(ctx, quoteID)
		metrics.IncCancellation("already_cancelled")
		return nil, err
	case err != nil:
		metrics.IncCancellation("error")
		return nil, err
	}

	s.dropQuote(ctx, quoteID)
	metrics.IncCancellation("confirmed")

	cancelled, err := s.store.GetBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", cancelled.ID).
		Str("actor", actor).
		Int("refund_percent", cancelled.RefundPercent).
		Int64("refund_amount", cancelled.RefundAmount).
		Int64("cancellation_fee", cancelled.CancellationFee).
		Msg("booking cancelled")

	publishBookingEvent(s.eventBus, s.logger, events.EventBookingCancelled, cancelled, actor)
	s.notify(ctx, cancelled, actor)

	return cancelled, nil
}

func (s *CancellationService) dropQuote(ctx context.Context, id string) {
	if err := s.quotes.DeleteQuote(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("quote_id", id).Msg("delete quote")
	}
}

func (s *CancellationService) notify(ctx context.Context, b *models.Booking, actor string) {
	cur := s.settings.Currency
	refundLine := fmt.Sprintf("Refund: %d%% = %s %s (cancellation fee %s %s)",
		b.RefundPercent, cur, money(b.RefundAmount), cur, money(b.CancellationFee))

	enqueueGuestEmail(ctx, s.queue, s.logger, b,
		fmt.Sprintf("Booking #%d cancelled", b.ID),
		fmt.Sprintf("Hi %s,\n\nYour stay at %s from %s to %s has been cancelled.\n%s\n",
			b.GuestName, b.RoomName, b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout), refundLine))

	enqueueManagerAlerts(ctx, s.queue, s.logger, s.settings.ManagerChatIDs, b.ID,
		fmt.Sprintf("Booking #%d cancelled by %s\n%s, %s to %s, guest %s\n%s",
			b.ID, actor, b.RoomName, b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout), b.GuestName, refundLine))
}
