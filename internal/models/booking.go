package models

import (
	"time"

	"villastay/internal/pricing"
)

type Booking struct {
	ID       int64  `json:"id"`
	RoomID   int64  `json:"room_id"`
	RoomName string `json:"room_name"`

	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`

	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	VegGuests    int       `json:"veg_guests"`
	NonVegGuests int       `json:"non_veg_guests"`
	ComboGuests  int       `json:"combo_guests"`

	PricePerNight int64 `json:"price_per_night"`
	RoomTotal     int64 `json:"room_total"`
	MealTotal     int64 `json:"meal_total"`
	Amount        int64 `json:"amount"`

	Status          string `json:"status"` // pending, confirmed, cancelled
	PaymentID       string `json:"payment_id,omitempty"`
	PaymentProvider string `json:"payment_provider,omitempty"`

	RefundPercent   int        `json:"refund_percent"`
	RefundAmount    int64      `json:"refund_amount"`
	CancellationFee int64      `json:"cancellation_fee"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

func (b *Booking) Guests() pricing.Guests {
	return pricing.Guests{Veg: b.VegGuests, NonVeg: b.NonVegGuests, Combo: b.ComboGuests}
}

// Stay builds the calculator snapshot. The nightly rate is the one frozen on
// the booking; meal prices come from the room.
func (b *Booking) Stay(room *Room) pricing.Stay {
	stay := pricing.Stay{
		Start:         b.StartDate,
		End:           b.EndDate,
		PricePerNight: b.PricePerNight,
		Guests:        b.Guests(),
	}
	if room != nil {
		stay.MealPrices = room.MealPrices()
	}
	return stay
}

// BookingRequest is what a client submits to reserve a room. Dates are
// calendar days in YYYY-MM-DD form.
type BookingRequest struct {
	RoomID          int64  `json:"room_id" validate:"required,gt=0"`
	GuestName       string `json:"guest_name" validate:"required,max=200"`
	GuestEmail      string `json:"guest_email" validate:"required,email"`
	GuestPhone      string `json:"guest_phone" validate:"omitempty,max=32"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	VegGuests       int    `json:"veg_guests" validate:"gte=0,lte=100"`
	NonVegGuests    int    `json:"non_veg_guests" validate:"gte=0,lte=100"`
	ComboGuests     int    `json:"combo_guests" validate:"gte=0,lte=100"`
	PaymentID       string `json:"payment_id,omitempty" validate:"omitempty,max=128"`
	PaymentProvider string `json:"payment_provider,omitempty" validate:"omitempty,max=64"`
}
