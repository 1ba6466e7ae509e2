package service

import (
	"fmt"
	"time"

	"villastay/internal/config"
	"villastay/internal/pricing"

	"github.com/shopspring/decimal"
)

// Settings are the pricing and notification knobs shared by the services.
type Settings struct {
	TaxRatePercent decimal.Decimal
	Currency       string
	Location       *time.Location
	Policy         pricing.Policy
	QuoteTTL       time.Duration
	ManagerChatIDs []int64
}

func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	tax, err := cfg.TaxRate()
	if err != nil {
		return Settings{}, fmt.Errorf("tax rate: %w", err)
	}
	policy, err := cfg.RefundPolicy()
	if err != nil {
		return Settings{}, fmt.Errorf("refund policy: %w", err)
	}
	return Settings{
		TaxRatePercent: tax,
		Currency:       cfg.Pricing.Currency,
		Location:       cfg.Location(),
		Policy:         policy,
		QuoteTTL:       cfg.Cancellation.QuoteTTL,
		ManagerChatIDs: cfg.Notifications.Telegram.ManagerChatIDs,
	}, nil
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
