package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateType identifies the revenue source a payout rate applies to
type RateType string

const (
	RateTypeView         RateType = "view"
	RateTypeEngagement   RateType = "engagement"
	RateTypeSubscription RateType = "subscription"
	RateTypeAdImpression RateType = "ad_impression"
	RateTypeAdClick      RateType = "ad_click"
)

// AllRateTypes lists every known rate type
var AllRateTypes = []RateType{
	RateTypeView,
	RateTypeEngagement,
	RateTypeSubscription,
	RateTypeAdImpression,
	RateTypeAdClick,
}

// Valid reports whether t is a known rate type
func (t RateType) Valid() bool {
	for _, known := range AllRateTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PayoutRate represents a per-unit payout rate row
type PayoutRate struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	RateType  RateType        `json:"rate_type" db:"rate_type"`
	Rate      decimal.Decimal `json:"rate" db:"rate"`
	IsActive  bool            `json:"is_active" db:"is_active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// RateSnapshot is a complete rate table frozen at a point in time.
// The subscription entry is a revenue-share fraction, all others are
// per-unit amounts in USD.
type RateSnapshot map[RateType]decimal.Decimal

// Get returns the rate for a type, zero if absent
func (s RateSnapshot) Get(t RateType) decimal.Decimal {
	if r, ok := s[t]; ok {
		return r
	}
	return decimal.Zero
}
