package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v int64) *int64 { return &v }

func threeNightStay() Stay {
	return Stay{
		Start:         time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 6, 4, 11, 0, 0, 0, time.UTC),
		PricePerNight: 2500,
		Guests:        Guests{Veg: 2},
		MealPrices:    MealPrices{Veg: price(500), NonVeg: price(700), Combo: price(900)},
	}
}

func TestMealLineItems(t *testing.T) {
	t.Run("veg only", func(t *testing.T) {
		items, err := MealLineItems(threeNightStay())
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, LineItem{Label: "Veg Meal", UnitPrice: 500, Quantity: 6, LineTotal: 3000}, items[0])
	})

	t.Run("all categories in order", func(t *testing.T) {
		stay := threeNightStay()
		stay.Guests = Guests{Veg: 1, NonVeg: 2, Combo: 3}

		items, err := MealLineItems(stay)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, LabelVegMeal, items[0].Label)
		assert.Equal(t, LabelNonVegMeal, items[1].Label)
		assert.Equal(t, int64(4200), items[1].LineTotal)
		assert.Equal(t, LabelComboMeal, items[2].Label)
		assert.Equal(t, int64(9), items[2].Quantity)
	})

	t.Run("zero guests omitted", func(t *testing.T) {
		stay := threeNightStay()
		stay.Guests = Guests{NonVeg: 1}

		items, err := MealLineItems(stay)
		require.NoError(t, err)
		for _, item := range items {
			assert.NotEqual(t, LabelVegMeal, item.Label)
		}
	})

	t.Run("no guests gives empty list", func(t *testing.T) {
		stay := threeNightStay()
		stay.Guests = Guests{}

		items, err := MealLineItems(stay)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("missing price", func(t *testing.T) {
		stay := threeNightStay()
		stay.Guests = Guests{Veg: 1}
		stay.MealPrices.Veg = nil

		_, err := MealLineItems(stay)
		assert.ErrorIs(t, err, ErrMissingPriceConfiguration)
	})

	t.Run("missing price for unused category is fine", func(t *testing.T) {
		stay := threeNightStay()
		stay.MealPrices.Combo = nil

		_, err := MealLineItems(stay)
		assert.NoError(t, err)
	})

	t.Run("negative guests", func(t *testing.T) {
		stay := threeNightStay()
		stay.Guests = Guests{Combo: -1}

		_, err := MealLineItems(stay)
		assert.ErrorIs(t, err, ErrInvalidGuestCount)
	})

	t.Run("negative price", func(t *testing.T) {
		stay := threeNightStay()
		stay.MealPrices.Veg = price(-10)

		_, err := MealLineItems(stay)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("bad range", func(t *testing.T) {
		stay := threeNightStay()
		stay.Start, stay.End = stay.End, stay.Start

		_, err := MealLineItems(stay)
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})
}

func TestInvoiceTotal(t *testing.T) {
	twelve := decimal.NewFromInt(12)

	t.Run("room plus veg meals", func(t *testing.T) {
		items, err := MealLineItems(threeNightStay())
		require.NoError(t, err)

		totals, err := InvoiceTotal(4000, items, twelve)
		require.NoError(t, err)
		assert.Equal(t, Totals{SubTotal: 7000, Tax: 840, GrandTotal: 7840}, totals)
	})

	t.Run("tax rounds half up", func(t *testing.T) {
		totals, err := InvoiceTotal(1000, nil, decimal.RequireFromString("0.05"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), totals.Tax)
	})

	t.Run("fractional rate", func(t *testing.T) {
		totals, err := InvoiceTotal(1999, nil, decimal.RequireFromString("18"))
		require.NoError(t, err)
		assert.Equal(t, int64(360), totals.Tax)
		assert.Equal(t, int64(2359), totals.GrandTotal)
	})

	t.Run("zero rate", func(t *testing.T) {
		totals, err := InvoiceTotal(500, nil, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, totals.SubTotal, totals.GrandTotal)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := InvoiceTotal(-1, nil, twelve)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = InvoiceTotal(100, nil, decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrInvalidPercent)

		_, err = InvoiceTotal(100, []LineItem{{Label: "x", UnitPrice: 10, Quantity: 2, LineTotal: 25}}, twelve)
		assert.ErrorIs(t, err, ErrTotalsMismatch)

		_, err = InvoiceTotal(100, []LineItem{{Label: "x", UnitPrice: -10, Quantity: 2, LineTotal: -20}}, twelve)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("invariant chain", func(t *testing.T) {
		for _, room := range []int64{0, 1, 999, 4000, 250000} {
			for _, guests := range []int{0, 1, 4} {
				stay := threeNightStay()
				stay.Guests = Guests{Veg: guests, Combo: guests}
				items, err := MealLineItems(stay)
				require.NoError(t, err)

				totals, err := InvoiceTotal(room, items, twelve)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, totals.GrandTotal, totals.SubTotal)
				assert.GreaterOrEqual(t, totals.SubTotal, room)
				assert.GreaterOrEqual(t, room, int64(0))
			}
		}
	})
}

func TestPrice(t *testing.T) {
	stay := threeNightStay()
	stay.Guests = Guests{Veg: 2, NonVeg: 1}

	b, err := Price(stay)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Nights)
	assert.Equal(t, int64(7500), b.RoomTotal)
	assert.Equal(t, int64(3000+2100), b.MealTotal)
	assert.Equal(t, b.RoomTotal+b.MealTotal, b.Amount)
	assert.NoError(t, ValidateTotals(b.RoomTotal, b.MealTotal, b.Amount))

	again, err := Price(stay)
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestRoomTotal(t *testing.T) {
	stay := threeNightStay()
	stay.End = stay.Start

	total, err := RoomTotal(stay)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), total)

	stay.PricePerNight = -1
	_, err = RoomTotal(stay)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestValidateTotals(t *testing.T) {
	assert.NoError(t, ValidateTotals(4000, 3000, 7000))
	assert.ErrorIs(t, ValidateTotals(4000, 3000, 7840), ErrTotalsMismatch)
	assert.ErrorIs(t, ValidateTotals(-1, 1, 0), ErrInvalidAmount)
}

func TestBuildInvoice(t *testing.T) {
	inv, err := BuildInvoice(threeNightStay(), decimal.NewFromInt(12))
	require.NoError(t, err)

	assert.Equal(t, 3, inv.Nights)
	assert.Equal(t, LineItem{Label: LabelRoom, UnitPrice: 2500, Quantity: 3, LineTotal: 7500}, inv.Room)
	require.Len(t, inv.Meals, 1)
	assert.Equal(t, Totals{SubTotal: 10500, Tax: 1260, GrandTotal: 11760}, inv.Totals)

	lines := inv.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, LabelRoom, lines[0].Label)

	stay := threeNightStay()
	stay.MealPrices.Veg = nil
	_, err = BuildInvoice(stay, decimal.NewFromInt(12))
	assert.ErrorIs(t, err, ErrMissingPriceConfiguration)
}
