package service

import (
	"context"
	"fmt"
	"strconv"

	"villastay/internal/docs"
	"villastay/internal/domain"
	"villastay/internal/events"
	"villastay/internal/models"

	"github.com/rs/zerolog"
)

func money(v int64) string {
	return docs.FormatMoney(v)
}

func publishBookingEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, booking *models.Booking, changedBy string) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, events.NewBookingPayload(booking, changedBy)); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

// Delivery is best effort; a queue failure never undoes a booking change.
func enqueueGuestEmail(ctx context.Context, queue domain.NotificationQueue, logger *zerolog.Logger, booking *models.Booking, subject, body string) {
	if queue == nil || booking.GuestEmail == "" {
		return
	}
	n := &models.Notification{
		Channel:   models.ChannelEmail,
		BookingID: booking.ID,
		Recipient: booking.GuestEmail,
		Subject:   subject,
		Body:      body,
	}
	if err := queue.Enqueue(ctx, n); err != nil {
		logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("enqueue guest email")
	}
}

func enqueueManagerAlerts(ctx context.Context, queue domain.NotificationQueue, logger *zerolog.Logger, chatIDs []int64, bookingID int64, text string) {
	if queue == nil {
		return
	}
	for _, chatID := range chatIDs {
		n := &models.Notification{
			Channel:   models.ChannelTelegram,
			BookingID: bookingID,
			Recipient: strconv.FormatInt(chatID, 10),
			Body:      text,
		}
		if err := queue.Enqueue(ctx, n); err != nil {
			logger.Error().Err(err).Int64("booking_id", bookingID).Int64("chat_id", chatID).Msg("enqueue manager alert")
		}
	}
}

// MirrorBookingEvents queues every booking event for the sheets channel so the
// spreadsheet copy is retried like any other outbound message.
func MirrorBookingEvents(bus *events.EventBus, queue domain.NotificationQueue, spreadsheetID string, logger *zerolog.Logger) {
	handler := func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}
		n := &models.Notification{
			Channel:   models.ChannelSheets,
			BookingID: payload.BookingID,
			Recipient: spreadsheetID,
			Subject:   event.Type,
			Body:      string(event.Payload),
		}
		if err := queue.Enqueue(context.Background(), n); err != nil {
			logger.Error().Err(err).Int64("booking_id", payload.BookingID).Msg("enqueue sheet update")
			return err
		}
		return nil
	}

	for _, eventType := range []string{events.EventBookingCreated, events.EventBookingConfirmed, events.EventBookingCancelled} {
		bus.Subscribe(eventType, handler)
	}
}
