package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodStatus represents the lifecycle state of an earnings period
type PeriodStatus string

const (
	PeriodStatusPending   PeriodStatus = "pending"
	PeriodStatusFinalized PeriodStatus = "finalized"
)

// EarningsPeriod is a non-overlapping accounting window for one creator.
// All monetary fields are frozen at creation; only the finalize transition
// mutates the row afterwards.
type EarningsPeriod struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	CreatorID           uuid.UUID       `json:"creator_id" db:"creator_id"`
	StartDate           time.Time       `json:"start_date" db:"start_date"`
	EndDate             time.Time       `json:"end_date" db:"end_date"`
	Status              PeriodStatus    `json:"status" db:"status"`
	TotalAmount         decimal.Decimal `json:"total_amount" db:"total_amount"`
	ViewsAmount         decimal.Decimal `json:"views_amount" db:"views_amount"`
	EngagementsAmount   decimal.Decimal `json:"engagements_amount" db:"engagements_amount"`
	SubscriptionsAmount decimal.Decimal `json:"subscriptions_amount" db:"subscriptions_amount"`
	AdImpressionsAmount decimal.Decimal `json:"ad_impressions_amount" db:"ad_impressions_amount"`
	AdClicksAmount      decimal.Decimal `json:"ad_clicks_amount" db:"ad_clicks_amount"`
	RateSnapshot        RateSnapshot    `json:"rate_snapshot" db:"rate_snapshot"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	FinalizedAt         *time.Time      `json:"finalized_at,omitempty" db:"finalized_at"`
}

// VideoBreakdown is the per-video earnings projection for a period.
// Derived on demand, never persisted.
type VideoBreakdown struct {
	VideoID             uuid.UUID       `json:"video_id"`
	Title               string          `json:"title"`
	Views               int64           `json:"views"`
	Engagements         int64           `json:"engagements"`
	AdImpressions       int64           `json:"ad_impressions"`
	AdClicks            int64           `json:"ad_clicks"`
	SubscriptionRevenue decimal.Decimal `json:"subscription_revenue"`
	ViewsAmount         decimal.Decimal `json:"views_amount"`
	EngagementsAmount   decimal.Decimal `json:"engagements_amount"`
	SubscriptionsAmount decimal.Decimal `json:"subscriptions_amount"`
	AdImpressionsAmount decimal.Decimal `json:"ad_impressions_amount"`
	AdClicksAmount      decimal.Decimal `json:"ad_clicks_amount"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
}

// Video represents a creator-owned video, the grouping unit for breakdowns
type Video struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatorID uuid.UUID `json:"creator_id" db:"creator_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
