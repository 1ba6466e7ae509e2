package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villastay/internal/pricing"
)

func TestBooking_Stay(t *testing.T) {
	veg := int64(500)
	room := &Room{ID: 1, Name: "Sea View", PricePerNight: 3000, MealPriceVeg: &veg}
	b := &Booking{
		RoomID:        1,
		StartDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		VegGuests:     2,
		PricePerNight: 2500,
	}

	t.Run("rate frozen on booking", func(t *testing.T) {
		stay := b.Stay(room)
		assert.Equal(t, int64(2500), stay.PricePerNight)
		assert.Equal(t, pricing.Guests{Veg: 2}, stay.Guests)
		require.NotNil(t, stay.MealPrices.Veg)
		assert.Equal(t, int64(500), *stay.MealPrices.Veg)
		assert.Nil(t, stay.MealPrices.Combo)
	})

	t.Run("nil room has no meal prices", func(t *testing.T) {
		stay := b.Stay(nil)
		assert.Nil(t, stay.MealPrices.Veg)

		_, err := pricing.MealLineItems(stay)
		assert.ErrorIs(t, err, pricing.ErrMissingPriceConfiguration)
	})
}

func TestBooking_IsCancelled(t *testing.T) {
	assert.False(t, (&Booking{Status: StatusPending}).IsCancelled())
	assert.True(t, (&Booking{Status: StatusCancelled}).IsCancelled())
}
