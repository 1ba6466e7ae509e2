package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"villastay/internal/models"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
)

// BookingEventPayload is the booking snapshot consumers receive. Refund
// fields are only set on booking_cancelled.
type BookingEventPayload struct {
	BookingID       int64     `json:"booking_id"`
	RoomID          int64     `json:"room_id"`
	RoomName        string    `json:"room_name"`
	GuestName       string    `json:"guest_name"`
	GuestEmail      string    `json:"guest_email"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	Status          string    `json:"status"`
	Amount          int64     `json:"amount"`
	PaymentID       string    `json:"payment_id,omitempty"`
	RefundPercent   int       `json:"refund_percent,omitempty"`
	RefundAmount    int64     `json:"refund_amount,omitempty"`
	CancellationFee int64     `json:"cancellation_fee,omitempty"`
	ChangedBy       string    `json:"changed_by,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewBookingPayload(b *models.Booking, changedBy string) BookingEventPayload {
	return BookingEventPayload{
		BookingID:       b.ID,
		RoomID:          b.RoomID,
		RoomName:        b.RoomName,
		GuestName:       b.GuestName,
		GuestEmail:      b.GuestEmail,
		StartDate:       b.StartDate.Format("2006-01-02"),
		EndDate:         b.EndDate.Format("2006-01-02"),
		Status:          b.Status,
		Amount:          b.Amount,
		PaymentID:       b.PaymentID,
		RefundPercent:   b.RefundPercent,
		RefundAmount:    b.RefundAmount,
		CancellationFee: b.CancellationFee,
		ChangedBy:       changedBy,
		OccurredAt:      time.Now(),
	}
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub. Handlers run synchronously on the
// publisher's goroutine.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish calls every handler for the event type, even if one fails, and
// returns the joined handler errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON marshals payload and publishes it. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
}
