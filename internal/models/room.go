package models

import "villastay/internal/pricing"

// Room is a bookable villa or room. A nil meal price means the kitchen does
// not offer that category for this room.
type Room struct {
	ID              int64  `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Description     string `json:"description" yaml:"description"`
	PricePerNight   int64  `json:"price_per_night" yaml:"price_per_night"`
	MealPriceVeg    *int64 `json:"meal_price_veg,omitempty" yaml:"meal_price_veg"`
	MealPriceNonVeg *int64 `json:"meal_price_non_veg,omitempty" yaml:"meal_price_non_veg"`
	MealPriceCombo  *int64 `json:"meal_price_combo,omitempty" yaml:"meal_price_combo"`
	MaxGuests       int    `json:"max_guests" yaml:"max_guests"`
	IsActive        bool   `json:"is_active" yaml:"-"`
	SortOrder       int64  `json:"sort_order" yaml:"sort_order"`
}

func (r *Room) MealPrices() pricing.MealPrices {
	return pricing.MealPrices{
		Veg:    r.MealPriceVeg,
		NonVeg: r.MealPriceNonVeg,
		Combo:  r.MealPriceCombo,
	}
}
