package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"villastay/internal/domain"
	"villastay/internal/events"
	"villastay/internal/metrics"
	"villastay/internal/models"
	"villastay/internal/pricing"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

type BookingService struct {
	store    domain.BookingStore
	eventBus domain.EventPublisher
	queue    domain.NotificationQueue
	settings Settings
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(
	store domain.BookingStore,
	eventBus domain.EventPublisher,
	queue domain.NotificationQueue,
	settings Settings,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		store:    store,
		eventBus: eventBus,
		queue:    queue,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBooking prices the stay against the room's current rates and stores
// it. A request carrying a payment id is stored as confirmed.
func (s *BookingService) CreateBooking(ctx context.Context, req *models.BookingRequest) (*models.Booking, error) {
	loc := s.settings.location()

	start, err := time.ParseInLocation(dateLayout, req.StartDate, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q", ErrInvalidRequest, req.StartDate)
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date %q", ErrInvalidRequest, req.EndDate)
	}
	if pricing.DaysUntilCheckin(s.now().In(loc), start) < 0 {
		return nil, fmt.Errorf("%w: check-in %s is in the past", ErrInvalidRequest, req.StartDate)
	}

	room, err := activeRoom(ctx, s.store, req.RoomID)
	if err != nil {
		return nil, err
	}

	guests := req.VegGuests + req.NonVegGuests + req.ComboGuests
	if room.MaxGuests > 0 && guests > room.MaxGuests {
		return nil, fmt.Errorf("%w: %d guests exceed the room limit of %d", ErrInvalidRequest, guests, room.MaxGuests)
	}

	booking := &models.Booking{
		RoomID:        room.ID,
		RoomName:      room.Name,
		GuestName:     strings.TrimSpace(req.GuestName),
		GuestEmail:    strings.TrimSpace(req.GuestEmail),
		GuestPhone:    strings.TrimSpace(req.GuestPhone),
		StartDate:     start,
		EndDate:       end,
		VegGuests:     req.VegGuests,
		NonVegGuests:  req.NonVegGuests,
		ComboGuests:   req.ComboGuests,
		PricePerNight: room.PricePerNight,
		Status:        models.StatusPending,
	}

	breakdown, err := pricing.Price(booking.Stay(room))
	if err != nil {
		return nil, err
	}
	booking.RoomTotal = breakdown.RoomTotal
	booking.MealTotal = breakdown.MealTotal
	booking.Amount = breakdown.Amount

	if req.PaymentID != "" {
		booking.Status = models.StatusConfirmed
		booking.PaymentID = req.PaymentID
		booking.PaymentProvider = req.PaymentProvider
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("room_id", booking.RoomID).
		Int("nights", breakdown.Nights).
		Int64("amount", booking.Amount).
		Str("status", booking.Status).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, booking, "guest")
	s.notifyGuest(ctx, booking, fmt.Sprintf("Booking #%d received", booking.ID), createdBody(booking, s.settings.Currency))
	s.notifyManagers(ctx, booking, fmt.Sprintf("New booking #%d: %s, %s to %s, %s %s",
		booking.ID, booking.RoomName, booking.StartDate.Format(dateLayout), booking.EndDate.Format(dateLayout),
		s.settings.Currency, money(booking.Amount)))

	return booking, nil
}

// ConfirmPayment moves a pending booking to confirmed.
func (s *BookingService) ConfirmPayment(ctx context.Context, id, version int64, paymentID, provider string) (*models.Booking, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrInvalidRequest)
	}

	if err := s.store.ConfirmPaymentWithVersion(ctx, id, version, paymentID, provider); err != nil {
		return nil, err
	}

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingConfirmed, booking, "payment")
	s.notifyGuest(ctx, booking, fmt.Sprintf("Booking #%d confirmed", booking.ID),
		fmt.Sprintf("Hi %s,\n\nWe received your payment of %s %s (ref %s). Your stay at %s from %s to %s is confirmed.",
			booking.GuestName, s.settings.Currency, money(booking.Amount), booking.PaymentID,
			booking.RoomName, booking.StartDate.Format(dateLayout), booking.EndDate.Format(dateLayout)))

	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range ends before it starts", ErrInvalidRequest)
	}
	return s.store.GetBookingsByDateRange(ctx, from, to)
}

// GetInvoice itemizes a booking at the room's current meal prices and
// refuses to render when that disagrees with what was charged.
func (s *BookingService) GetInvoice(ctx context.Context, id int64) (*models.Booking, *pricing.Invoice, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if err := pricing.ValidateTotals(booking.RoomTotal, booking.MealTotal, booking.Amount); err != nil {
		return nil, nil, fmt.Errorf("booking %d: %w", id, err)
	}

	room, err := s.store.GetRoom(ctx, booking.RoomID)
	if err != nil {
		return nil, nil, fmt.Errorf("load room %d: %w", booking.RoomID, err)
	}

	inv, err := pricing.BuildInvoice(booking.Stay(room), s.settings.TaxRatePercent)
	if err != nil {
		return nil, nil, fmt.Errorf("booking %d: %w", id, err)
	}
	if inv.Totals.SubTotal != booking.Amount {
		return nil, nil, fmt.Errorf("booking %d: %w: invoice subtotal %d != charged %d",
			id, pricing.ErrTotalsMismatch, inv.Totals.SubTotal, booking.Amount)
	}

	metrics.ObserveInvoice(inv.Totals.GrandTotal)
	return booking, &inv, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	publishBookingEvent(s.eventBus, s.logger, eventType, booking, changedBy)
}

func (s *BookingService) notifyGuest(ctx context.Context, booking *models.Booking, subject, body string) {
	enqueueGuestEmail(ctx, s.queue, s.logger, booking, subject, body)
}

func (s *BookingService) notifyManagers(ctx context.Context, booking *models.Booking, text string) {
	enqueueManagerAlerts(ctx, s.queue, s.logger, s.settings.ManagerChatIDs, booking.ID, text)
}

func createdBody(b *models.Booking, currency string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s,\n\nThank you for booking %s from %s to %s.\n",
		b.GuestName, b.RoomName, b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout))
	fmt.Fprintf(&sb, "Room: %s %s\n", currency, money(b.RoomTotal))
	if b.MealTotal > 0 {
		fmt.Fprintf(&sb, "Meals: %s %s\n", currency, money(b.MealTotal))
	}
	fmt.Fprintf(&sb, "Amount: %s %s\n", currency, money(b.Amount))
	if b.Status == models.StatusPending {
		sb.WriteString("\nYour booking is held until payment is received.")
	}
	return sb.String()
}
