package pricing

import "errors"

var (
	ErrInvalidDateRange          = errors.New("end date is before start date")
	ErrInvalidAmount             = errors.New("invalid monetary amount")
	ErrMissingPriceConfiguration = errors.New("meal price is not configured")
	ErrInvalidPercent            = errors.New("percent out of range")
	ErrInvalidGuestCount         = errors.New("invalid guest count")
	ErrNonMonotonicTiers         = errors.New("refund tiers are not monotonic")
	ErrTotalsMismatch            = errors.New("totals do not add up")
)
