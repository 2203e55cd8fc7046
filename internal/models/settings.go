package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutFrequency represents how often automatic payouts fire
type PayoutFrequency string

const (
	PayoutFrequencyWeekly   PayoutFrequency = "weekly"
	PayoutFrequencyBiweekly PayoutFrequency = "biweekly"
	PayoutFrequencyMonthly  PayoutFrequency = "monthly"
)

// PayoutSettings holds a creator's payout preferences.
// PayoutDay is a day-of-month for monthly frequency and a weekday
// (0 = Sunday) for weekly and biweekly.
type PayoutSettings struct {
	UserID           uuid.UUID       `json:"user_id" db:"user_id"`
	AutomaticPayouts bool            `json:"automatic_payouts" db:"automatic_payouts"`
	MinimumPayout    decimal.Decimal `json:"minimum_payout" db:"minimum_payout"`
	PayoutFrequency  PayoutFrequency `json:"payout_frequency" db:"payout_frequency"`
	PayoutDay        int             `json:"payout_day" db:"payout_day"`
	StripeCustomerID *string         `json:"-" db:"stripe_customer_id"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// DefaultPayoutSettings returns the settings a creator starts with
func DefaultPayoutSettings(userID uuid.UUID) *PayoutSettings {
	return &PayoutSettings{
		UserID:           userID,
		AutomaticPayouts: false,
		MinimumPayout:    decimal.NewFromFloat(50.00),
		PayoutFrequency:  PayoutFrequencyMonthly,
		PayoutDay:        1,
	}
}
