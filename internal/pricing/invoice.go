package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LabelRoom       = "Room"
	LabelVegMeal    = "Veg Meal"
	LabelNonVegMeal = "Non-Veg Meal"
	LabelComboMeal  = "Combo Meal"
)

// LineItem is one row of an invoice. Build it with NewLineItem so that
// LineTotal always equals UnitPrice*Quantity.
type LineItem struct {
	Label     string `json:"label"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

func NewLineItem(label string, unitPrice, quantity int64) (LineItem, error) {
	if unitPrice < 0 {
		return LineItem{}, fmt.Errorf("%w: %s unit price=%d", ErrInvalidAmount, label, unitPrice)
	}
	if quantity < 0 {
		return LineItem{}, fmt.Errorf("%w: %s quantity=%d", ErrInvalidGuestCount, label, quantity)
	}
	return LineItem{Label: label, UnitPrice: unitPrice, Quantity: quantity, LineTotal: unitPrice * quantity}, nil
}

// Guests counts guests per meal category.
type Guests struct {
	Veg    int `json:"veg"`
	NonVeg int `json:"non_veg"`
	Combo  int `json:"combo"`
}

// MealPrices are per guest per night. A nil price is not configured.
type MealPrices struct {
	Veg    *int64 `json:"veg,omitempty"`
	NonVeg *int64 `json:"non_veg,omitempty"`
	Combo  *int64 `json:"combo,omitempty"`
}

// Stay is the booking snapshot the calculator reads.
type Stay struct {
	Start         time.Time
	End           time.Time
	PricePerNight int64
	Guests        Guests
	MealPrices    MealPrices
}

// MealLineItems emits one line per meal category that has guests, in the
// order veg, non-veg, combo.
func MealLineItems(stay Stay) ([]LineItem, error) {
	nights, err := NightsBetween(stay.Start, stay.End)
	if err != nil {
		return nil, err
	}

	categories := []struct {
		label  string
		guests int
		price  *int64
	}{
		{LabelVegMeal, stay.Guests.Veg, stay.MealPrices.Veg},
		{LabelNonVegMeal, stay.Guests.NonVeg, stay.MealPrices.NonVeg},
		{LabelComboMeal, stay.Guests.Combo, stay.MealPrices.Combo},
	}

	items := make([]LineItem, 0, len(categories))
	for _, c := range categories {
		if c.guests < 0 {
			return nil, fmt.Errorf("%w: %s guests=%d", ErrInvalidGuestCount, c.label, c.guests)
		}
		if c.guests == 0 {
			continue
		}
		if c.price == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPriceConfiguration, c.label)
		}

		item, err := NewLineItem(c.label, *c.price, int64(c.guests)*int64(nights))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Totals is the bottom of an invoice.
type Totals struct {
	SubTotal   int64 `json:"sub_total"`
	Tax        int64 `json:"tax"`
	GrandTotal int64 `json:"grand_total"`
}

// InvoiceTotal adds meal lines to the room total and applies tax on top.
func InvoiceTotal(roomTotal int64, items []LineItem, taxRatePercent decimal.Decimal) (Totals, error) {
	if roomTotal < 0 {
		return Totals{}, fmt.Errorf("%w: room total=%d", ErrInvalidAmount, roomTotal)
	}
	if taxRatePercent.IsNegative() {
		return Totals{}, fmt.Errorf("%w: tax rate=%s", ErrInvalidPercent, taxRatePercent)
	}

	subTotal := roomTotal
	for _, item := range items {
		if item.LineTotal < 0 {
			return Totals{}, fmt.Errorf("%w: %s line total=%d", ErrInvalidAmount, item.Label, item.LineTotal)
		}
		if item.LineTotal != item.UnitPrice*item.Quantity {
			return Totals{}, fmt.Errorf("%w: %s %d x %d != %d",
				ErrTotalsMismatch, item.Label, item.UnitPrice, item.Quantity, item.LineTotal)
		}
		subTotal += item.LineTotal
	}

	tax := percentOf(subTotal, taxRatePercent)
	return Totals{SubTotal: subTotal, Tax: tax, GrandTotal: subTotal + tax}, nil
}

// RoomTotal is the nightly rate times the number of nights.
func RoomTotal(stay Stay) (int64, error) {
	if stay.PricePerNight < 0 {
		return 0, fmt.Errorf("%w: price per night=%d", ErrInvalidAmount, stay.PricePerNight)
	}
	nights, err := NightsBetween(stay.Start, stay.End)
	if err != nil {
		return 0, err
	}
	return stay.PricePerNight * int64(nights), nil
}

// Breakdown is what a booking is charged at payment time. Amount is always
// RoomTotal + MealTotal; tax is added only on the invoice.
type Breakdown struct {
	Nights    int        `json:"nights"`
	RoomTotal int64      `json:"room_total"`
	MealItems []LineItem `json:"meal_items"`
	MealTotal int64      `json:"meal_total"`
	Amount    int64      `json:"amount"`
}

func Price(stay Stay) (Breakdown, error) {
	nights, err := NightsBetween(stay.Start, stay.End)
	if err != nil {
		return Breakdown{}, err
	}
	roomTotal, err := RoomTotal(stay)
	if err != nil {
		return Breakdown{}, err
	}
	meals, err := MealLineItems(stay)
	if err != nil {
		return Breakdown{}, err
	}

	var mealTotal int64
	for _, item := range meals {
		mealTotal += item.LineTotal
	}

	return Breakdown{
		Nights:    nights,
		RoomTotal: roomTotal,
		MealItems: meals,
		MealTotal: mealTotal,
		Amount:    roomTotal + mealTotal,
	}, nil
}

// ValidateTotals checks totals that were stored or supplied by someone else.
func ValidateTotals(roomTotal, mealTotal, amount int64) error {
	if roomTotal < 0 || mealTotal < 0 || amount < 0 {
		return fmt.Errorf("%w: room=%d meal=%d amount=%d", ErrInvalidAmount, roomTotal, mealTotal, amount)
	}
	if roomTotal+mealTotal != amount {
		return fmt.Errorf("%w: room %d + meal %d != amount %d", ErrTotalsMismatch, roomTotal, mealTotal, amount)
	}
	return nil
}

// Invoice is the itemized view shared by the JSON endpoint and the PDF.
type Invoice struct {
	Nights         int             `json:"nights"`
	Room           LineItem        `json:"room"`
	Meals          []LineItem      `json:"meals"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	Totals         Totals          `json:"totals"`
}

// Lines returns the room line followed by the meal lines.
func (inv Invoice) Lines() []LineItem {
	return append([]LineItem{inv.Room}, inv.Meals...)
}

func BuildInvoice(stay Stay, taxRatePercent decimal.Decimal) (Invoice, error) {
	b, err := Price(stay)
	if err != nil {
		return Invoice{}, err
	}

	room, err := NewLineItem(LabelRoom, stay.PricePerNight, int64(b.Nights))
	if err != nil {
		return Invoice{}, err
	}

	totals, err := InvoiceTotal(b.RoomTotal, b.MealItems, taxRatePercent)
	if err != nil {
		return Invoice{}, err
	}

	return Invoice{
		Nights:         b.Nights,
		Room:           room,
		Meals:          b.MealItems,
		TaxRatePercent: taxRatePercent,
		Totals:         totals,
	}, nil
}
