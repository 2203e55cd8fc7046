package earnings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/playmix/creatorpay/internal/logging"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/rates"
)

// AutoPayoutTrigger fires an automatic payout for a creator after one of
// their periods finalizes. Implemented by the payout service; declared
// here so finalization does not depend on the payout package directly.
type AutoPayoutTrigger interface {
	TriggerAutomaticPayout(ctx context.Context, creatorID uuid.UUID) (bool, error)
}

// Service aggregates raw platform events into monetary earnings and
// manages the per-creator accounting periods built from them.
type Service struct {
	db         *pgxpool.Pool
	rates      *rates.Service
	autoPayout AutoPayoutTrigger
}

// NewService creates a new earnings service
func NewService(db *pgxpool.Pool, ratesService *rates.Service) *Service {
	return &Service{
		db:    db,
		rates: ratesService,
	}
}

// SetAutoPayout wires the automatic payout trigger invoked on finalization
func (s *Service) SetAutoPayout(trigger AutoPayoutTrigger) {
	s.autoPayout = trigger
}

// SourceCounts holds raw event totals for one creator and window
type SourceCounts struct {
	Views               int64           `json:"views"`
	Engagements         int64           `json:"engagements"`
	SubscriptionRevenue decimal.Decimal `json:"subscription_revenue"`
	AdImpressions       int64           `json:"ad_impressions"`
	AdClicks            int64           `json:"ad_clicks"`
}

// SourceAmounts holds the monetary value of each revenue source
type SourceAmounts struct {
	Views         decimal.Decimal `json:"views_amount"`
	Engagements   decimal.Decimal `json:"engagements_amount"`
	Subscriptions decimal.Decimal `json:"subscriptions_amount"`
	AdImpressions decimal.Decimal `json:"ad_impressions_amount"`
	AdClicks      decimal.Decimal `json:"ad_clicks_amount"`
	Total         decimal.Decimal `json:"total_amount"`
}

// CurrentEarnings is the unsettled earnings estimate for a creator
type CurrentEarnings struct {
	CreatorID uuid.UUID           `json:"creator_id"`
	StartDate time.Time           `json:"start_date"`
	EndDate   time.Time           `json:"end_date"`
	Counts    SourceCounts        `json:"counts"`
	Amounts   SourceAmounts       `json:"amounts"`
	Rates     models.RateSnapshot `json:"rates"`
}

// ComputeAmounts prices raw event counts against a rate snapshot.
// Subscription revenue is multiplied by the revenue-share fraction,
// all other sources by their per-unit rate.
func ComputeAmounts(counts SourceCounts, snapshot models.RateSnapshot) SourceAmounts {
	amounts := SourceAmounts{
		Views:         snapshot.Get(models.RateTypeView).Mul(decimal.NewFromInt(counts.Views)),
		Engagements:   snapshot.Get(models.RateTypeEngagement).Mul(decimal.NewFromInt(counts.Engagements)),
		Subscriptions: snapshot.Get(models.RateTypeSubscription).Mul(counts.SubscriptionRevenue),
		AdImpressions: snapshot.Get(models.RateTypeAdImpression).Mul(decimal.NewFromInt(counts.AdImpressions)),
		AdClicks:      snapshot.Get(models.RateTypeAdClick).Mul(decimal.NewFromInt(counts.AdClicks)),
	}
	amounts.Total = amounts.Views.
		Add(amounts.Engagements).
		Add(amounts.Subscriptions).
		Add(amounts.AdImpressions).
		Add(amounts.AdClicks)
	return amounts
}

// NextWindowStart returns the first day of the window that follows a
// finalized period ending on lastEnd. Starting exactly one day later
// keeps consecutive windows gap-free without double counting.
func NextWindowStart(lastEnd time.Time) time.Time {
	return lastEnd.AddDate(0, 0, 1)
}

// CalculateCurrentEarnings estimates the creator's earnings accrued since
// their last finalized period. Creators with no finalized period yet get
// a trailing 30 day window.
func (s *Service) CalculateCurrentEarnings(ctx context.Context, creatorID uuid.UUID) (*CurrentEarnings, error) {
	now := time.Now()

	var lastEnd time.Time
	err := s.db.QueryRow(ctx, `
		SELECT end_date
		FROM earnings_periods
		WHERE creator_id = $1 AND status = 'finalized'
		ORDER BY end_date DESC
		LIMIT 1
	`, creatorID).Scan(&lastEnd)

	var start time.Time
	switch {
	case err == nil:
		start = NextWindowStart(lastEnd)
	case err == pgx.ErrNoRows:
		start = now.AddDate(0, 0, -30)
	default:
		return nil, fmt.Errorf("failed to query last finalized period: %w", err)
	}

	snapshot, err := s.rates.CurrentRates(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.aggregateCreator(ctx, creatorID, start, now)
	if err != nil {
		return nil, err
	}

	return &CurrentEarnings{
		CreatorID: creatorID,
		StartDate: start,
		EndDate:   now,
		Counts:    counts,
		Amounts:   ComputeAmounts(counts, snapshot),
		Rates:     snapshot,
	}, nil
}

// aggregateCreator sums raw events across all of a creator's videos for
// a time window. Sources with no matching rows contribute zero.
func (s *Service) aggregateCreator(ctx context.Context, creatorID uuid.UUID, start, end time.Time) (SourceCounts, error) {
	counts := SourceCounts{SubscriptionRevenue: decimal.Zero}

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM view_events v
		JOIN videos vid ON vid.id = v.video_id
		WHERE vid.creator_id = $1 AND v.created_at BETWEEN $2 AND $3
	`, creatorID, start, end).Scan(&counts.Views)
	if err != nil {
		return counts, fmt.Errorf("failed to count views: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM engagement_events e
		JOIN videos vid ON vid.id = e.video_id
		WHERE vid.creator_id = $1 AND e.created_at BETWEEN $2 AND $3
	`, creatorID, start, end).Scan(&counts.Engagements)
	if err != nil {
		return counts, fmt.Errorf("failed to count engagements: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM subscription_payments
		WHERE creator_id = $1 AND created_at BETWEEN $2 AND $3
	`, creatorID, start, end).Scan(&counts.SubscriptionRevenue)
	if err != nil {
		return counts, fmt.Errorf("failed to sum subscription revenue: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM ad_impressions a
		JOIN videos vid ON vid.id = a.video_id
		WHERE vid.creator_id = $1 AND a.created_at BETWEEN $2 AND $3
	`, creatorID, start, end).Scan(&counts.AdImpressions)
	if err != nil {
		return counts, fmt.Errorf("failed to count ad impressions: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM ad_clicks a
		JOIN videos vid ON vid.id = a.video_id
		WHERE vid.creator_id = $1 AND a.created_at BETWEEN $2 AND $3
	`, creatorID, start, end).Scan(&counts.AdClicks)
	if err != nil {
		return counts, fmt.Errorf("failed to count ad clicks: %w", err)
	}

	return counts, nil
}

// aggregateVideo sums raw events for a single video and window
func (s *Service) aggregateVideo(ctx context.Context, videoID uuid.UUID, start, end time.Time) (SourceCounts, error) {
	counts := SourceCounts{SubscriptionRevenue: decimal.Zero}

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM view_events
		WHERE video_id = $1 AND created_at BETWEEN $2 AND $3
	`, videoID, start, end).Scan(&counts.Views)
	if err != nil {
		return counts, fmt.Errorf("failed to count views: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM engagement_events
		WHERE video_id = $1 AND created_at BETWEEN $2 AND $3
	`, videoID, start, end).Scan(&counts.Engagements)
	if err != nil {
		return counts, fmt.Errorf("failed to count engagements: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM subscription_payments
		WHERE video_id = $1 AND created_at BETWEEN $2 AND $3
	`, videoID, start, end).Scan(&counts.SubscriptionRevenue)
	if err != nil {
		return counts, fmt.Errorf("failed to sum subscription revenue: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM ad_impressions
		WHERE video_id = $1 AND created_at BETWEEN $2 AND $3
	`, videoID, start, end).Scan(&counts.AdImpressions)
	if err != nil {
		return counts, fmt.Errorf("failed to count ad impressions: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM ad_clicks
		WHERE video_id = $1 AND created_at BETWEEN $2 AND $3
	`, videoID, start, end).Scan(&counts.AdClicks)
	if err != nil {
		return counts, fmt.Errorf("failed to count ad clicks: %w", err)
	}

	return counts, nil
}

// GetEarningsBreakdown recomputes a period's earnings grouped by video.
// The period's frozen rate snapshot is used so the breakdown always
// reconciles with the stored totals, even after rates change.
func (s *Service) GetEarningsBreakdown(ctx context.Context, periodID uuid.UUID) ([]*models.VideoBreakdown, error) {
	period, err := s.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, title
		FROM videos
		WHERE creator_id = $1
		ORDER BY created_at
	`, period.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	type videoRef struct {
		id    uuid.UUID
		title string
	}
	var videos []videoRef
	for rows.Next() {
		var v videoRef
		if err := rows.Scan(&v.id, &v.title); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read videos: %w", err)
	}

	breakdown := make([]*models.VideoBreakdown, 0, len(videos))
	for _, v := range videos {
		counts, err := s.aggregateVideo(ctx, v.id, period.StartDate, period.EndDate)
		if err != nil {
			return nil, err
		}
		amounts := ComputeAmounts(counts, period.RateSnapshot)

		breakdown = append(breakdown, &models.VideoBreakdown{
			VideoID:             v.id,
			Title:               v.title,
			Views:               counts.Views,
			Engagements:         counts.Engagements,
			AdImpressions:       counts.AdImpressions,
			AdClicks:            counts.AdClicks,
			SubscriptionRevenue: counts.SubscriptionRevenue,
			ViewsAmount:         amounts.Views,
			EngagementsAmount:   amounts.Engagements,
			SubscriptionsAmount: amounts.Subscriptions,
			AdImpressionsAmount: amounts.AdImpressions,
			AdClicksAmount:      amounts.AdClicks,
			TotalAmount:         amounts.Total,
		})
	}

	logger := logging.NewLogger("earnings")
	logger.Debug().
		Str("period_id", periodID.String()).
		Int("videos", len(breakdown)).
		Msg("Computed earnings breakdown")

	return breakdown, nil
}
