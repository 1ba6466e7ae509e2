package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Tier grants Percent of the paid amount back when a booking is cancelled at
// least MinDays before check-in.
type Tier struct {
	MinDays int `yaml:"min_days" json:"min_days"`
	Percent int `yaml:"percent" json:"percent"`
}

// AdminDialogTiers is the table the admin cancellation dialog applies.
func AdminDialogTiers() []Tier {
	return []Tier{{MinDays: 14, Percent: 100}, {MinDays: 7, Percent: 50}}
}

// PublishedPolicyTiers is the table stated on the customer refund policy page.
func PublishedPolicyTiers() []Tier {
	return []Tier{{MinDays: 10, Percent: 100}, {MinDays: 5, Percent: 50}}
}

// Policy is an immutable tier table ordered from the highest MinDays down.
type Policy struct {
	tiers []Tier
}

// NewPolicy validates and orders tiers. A later check-in may never earn a
// smaller refund than an earlier one.
func NewPolicy(tiers ...Tier) (Policy, error) {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinDays > sorted[j].MinDays
	})

	for i, t := range sorted {
		if t.Percent < 0 || t.Percent > 100 {
			return Policy{}, fmt.Errorf("%w: tier min_days=%d percent=%d", ErrInvalidPercent, t.MinDays, t.Percent)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if prev.MinDays == t.MinDays {
			return Policy{}, fmt.Errorf("%w: duplicate min_days=%d", ErrNonMonotonicTiers, t.MinDays)
		}
		if prev.Percent < t.Percent {
			return Policy{}, fmt.Errorf("%w: %d days gives %d%% but %d days gives %d%%",
				ErrNonMonotonicTiers, prev.MinDays, prev.Percent, t.MinDays, t.Percent)
		}
	}

	return Policy{tiers: sorted}, nil
}

// DefaultPolicy returns the admin dialog table.
func DefaultPolicy() Policy {
	p, _ := NewPolicy(AdminDialogTiers()...)
	return p
}

// Tiers returns a copy of the table, highest MinDays first.
func (p Policy) Tiers() []Tier {
	out := make([]Tier, len(p.tiers))
	copy(out, p.tiers)
	return out
}

// RefundPercentForDays picks the first tier the booking qualifies for.
func (p Policy) RefundPercentForDays(days int) int {
	for _, t := range p.tiers {
		if days >= t.MinDays {
			return t.Percent
		}
	}
	return 0
}

// Refund splits a paid amount into what goes back to the guest and what is kept.
type Refund struct {
	RefundAmount    int64 `json:"refund_amount"`
	CancellationFee int64 `json:"cancellation_fee"`
}

// ComputeRefund returns round_half_up(amount*percent/100) as the refund and the
// remainder as the fee.
func ComputeRefund(amount int64, percent int) (Refund, error) {
	if amount < 0 {
		return Refund{}, fmt.Errorf("%w: amount=%d", ErrInvalidAmount, amount)
	}
	if percent < 0 || percent > 100 {
		return Refund{}, fmt.Errorf("%w: refund percent=%d", ErrInvalidPercent, percent)
	}

	refund := percentOf(amount, decimal.NewFromInt(int64(percent)))
	return Refund{RefundAmount: refund, CancellationFee: amount - refund}, nil
}

// RefundQuote is the outcome of applying a policy to one booking at one moment.
type RefundQuote struct {
	DaysBeforeCheckin int   `json:"days_before_checkin"`
	RefundPercent     int   `json:"refund_percent"`
	RefundAmount      int64 `json:"refund_amount"`
	CancellationFee   int64 `json:"cancellation_fee"`
}

// Quote runs DaysUntilCheckin, RefundPercentForDays and ComputeRefund in order.
func (p Policy) Quote(now, checkin time.Time, amount int64) (RefundQuote, error) {
	days := DaysUntilCheckin(now, checkin)
	percent := p.RefundPercentForDays(days)

	refund, err := ComputeRefund(amount, percent)
	if err != nil {
		return RefundQuote{}, err
	}

	return RefundQuote{
		DaysBeforeCheckin: days,
		RefundPercent:     percent,
		RefundAmount:      refund.RefundAmount,
		CancellationFee:   refund.CancellationFee,
	}, nil
}

var hundred = decimal.NewFromInt(100)

// percentOf rounds half away from zero, which is half-up for the
// non-negative amounts callers pass in.
func percentOf(amount int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(percent).Div(hundred).Round(0).IntPart()
}
