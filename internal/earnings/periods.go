package earnings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/playmix/creatorpay/internal/logging"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/monitoring"
)

var (
	ErrPeriodNotFound = errors.New("earnings period not found")
	ErrPeriodOverlap  = errors.New("period overlaps an existing period")
	ErrInvalidWindow  = errors.New("period end date must not precede start date")
)

// PeriodList is a paginated page of earnings periods
type PeriodList struct {
	Periods    []*models.EarningsPeriod `json:"periods"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
}

// CreateEarningsPeriod aggregates the creator's events over an explicit
// window and persists a pending period with all monetary fields and the
// rate snapshot frozen at creation time.
func (s *Service) CreateEarningsPeriod(ctx context.Context, creatorID uuid.UUID, startDate, endDate time.Time) (*models.EarningsPeriod, error) {
	if endDate.Before(startDate) {
		return nil, ErrInvalidWindow
	}

	var overlapping bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM earnings_periods
			WHERE creator_id = $1 AND start_date <= $3 AND end_date >= $2
		)
	`, creatorID, startDate, endDate).Scan(&overlapping)
	if err != nil {
		return nil, fmt.Errorf("failed to check period overlap: %w", err)
	}
	if overlapping {
		return nil, ErrPeriodOverlap
	}

	snapshot, err := s.rates.CurrentRates(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.aggregateCreator(ctx, creatorID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	amounts := ComputeAmounts(counts, snapshot)

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rate snapshot: %w", err)
	}

	period := &models.EarningsPeriod{
		ID:                  uuid.New(),
		CreatorID:           creatorID,
		StartDate:           startDate,
		EndDate:             endDate,
		Status:              models.PeriodStatusPending,
		TotalAmount:         amounts.Total,
		ViewsAmount:         amounts.Views,
		EngagementsAmount:   amounts.Engagements,
		SubscriptionsAmount: amounts.Subscriptions,
		AdImpressionsAmount: amounts.AdImpressions,
		AdClicksAmount:      amounts.AdClicks,
		RateSnapshot:        snapshot,
		CreatedAt:           time.Now(),
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO earnings_periods (
			id, creator_id, start_date, end_date, status,
			total_amount, views_amount, engagements_amount,
			subscriptions_amount, ad_impressions_amount, ad_clicks_amount,
			rate_snapshot, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, period.ID, period.CreatorID, period.StartDate, period.EndDate, period.Status,
		period.TotalAmount, period.ViewsAmount, period.EngagementsAmount,
		period.SubscriptionsAmount, period.AdImpressionsAmount, period.AdClicksAmount,
		snapshotJSON, period.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert period: %w", err)
	}

	monitoring.Get().PeriodsCreated.Inc()
	for source, amount := range map[string]decimal.Decimal{
		"views":          amounts.Views,
		"engagements":    amounts.Engagements,
		"subscriptions":  amounts.Subscriptions,
		"ad_impressions": amounts.AdImpressions,
		"ad_clicks":      amounts.AdClicks,
	} {
		monitoring.Get().EarningsAccrued.WithLabelValues(source).Add(amount.InexactFloat64())
	}

	logging.LogPeriod(period.ID.String(), creatorID.String(), "created", period.TotalAmount.String())

	return period, nil
}

// GetPeriod loads a single period by id
func (s *Service) GetPeriod(ctx context.Context, periodID uuid.UUID) (*models.EarningsPeriod, error) {
	period := &models.EarningsPeriod{}
	var snapshotJSON []byte

	err := s.db.QueryRow(ctx, `
		SELECT id, creator_id, start_date, end_date, status,
		       total_amount, views_amount, engagements_amount,
		       subscriptions_amount, ad_impressions_amount, ad_clicks_amount,
		       rate_snapshot, created_at, finalized_at
		FROM earnings_periods
		WHERE id = $1
	`, periodID).Scan(
		&period.ID, &period.CreatorID, &period.StartDate, &period.EndDate, &period.Status,
		&period.TotalAmount, &period.ViewsAmount, &period.EngagementsAmount,
		&period.SubscriptionsAmount, &period.AdImpressionsAmount, &period.AdClicksAmount,
		&snapshotJSON, &period.CreatedAt, &period.FinalizedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("failed to query period: %w", err)
	}

	if len(snapshotJSON) > 0 {
		if err := json.Unmarshal(snapshotJSON, &period.RateSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode rate snapshot: %w", err)
		}
	}

	return period, nil
}

// ListPeriods returns a creator's periods newest first, paginated
func (s *Service) ListPeriods(ctx context.Context, creatorID uuid.UUID, page, pageSize int) (*PeriodList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM earnings_periods WHERE creator_id = $1
	`, creatorID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count periods: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, creator_id, start_date, end_date, status,
		       total_amount, views_amount, engagements_amount,
		       subscriptions_amount, ad_impressions_amount, ad_clicks_amount,
		       rate_snapshot, created_at, finalized_at
		FROM earnings_periods
		WHERE creator_id = $1
		ORDER BY start_date DESC
		LIMIT $2 OFFSET $3
	`, creatorID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	periods := make([]*models.EarningsPeriod, 0, pageSize)
	for rows.Next() {
		period := &models.EarningsPeriod{}
		var snapshotJSON []byte
		err := rows.Scan(
			&period.ID, &period.CreatorID, &period.StartDate, &period.EndDate, &period.Status,
			&period.TotalAmount, &period.ViewsAmount, &period.EngagementsAmount,
			&period.SubscriptionsAmount, &period.AdImpressionsAmount, &period.AdClicksAmount,
			&snapshotJSON, &period.CreatedAt, &period.FinalizedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		if len(snapshotJSON) > 0 {
			if err := json.Unmarshal(snapshotJSON, &period.RateSnapshot); err != nil {
				return nil, fmt.Errorf("failed to decode rate snapshot: %w", err)
			}
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read periods: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize

	return &PeriodList{
		Periods:    periods,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// FinalizeEarningsPeriod transitions a pending period to finalized,
// unlocking its total into the creator's available balance. Returns
// false without mutating anything when the period is missing or already
// finalized. The status guard on the UPDATE makes concurrent finalizers
// safe: exactly one of them observes the transition.
func (s *Service) FinalizeEarningsPeriod(ctx context.Context, periodID uuid.UUID) (bool, error) {
	var creatorID uuid.UUID
	var totalAmount string
	err := s.db.QueryRow(ctx, `
		UPDATE earnings_periods
		SET status = 'finalized', finalized_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING creator_id, total_amount
	`, periodID).Scan(&creatorID, &totalAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to finalize period: %w", err)
	}

	monitoring.Get().PeriodsFinalized.Inc()
	logging.LogPeriod(periodID.String(), creatorID.String(), "finalized", totalAmount)

	s.maybeTriggerAutoPayout(ctx, creatorID)

	return true, nil
}

// maybeTriggerAutoPayout fires the automatic payout trigger when the
// creator has opted in. Trigger failures are logged, never propagated;
// finalization has already committed.
func (s *Service) maybeTriggerAutoPayout(ctx context.Context, creatorID uuid.UUID) {
	if s.autoPayout == nil {
		return
	}

	var enabled bool
	err := s.db.QueryRow(ctx, `
		SELECT automatic_payouts FROM payout_settings WHERE user_id = $1
	`, creatorID).Scan(&enabled)
	if err != nil || !enabled {
		return
	}

	if _, err := s.autoPayout.TriggerAutomaticPayout(ctx, creatorID); err != nil {
		logger := logging.NewLogger("earnings")
		logger.Warn().
			Err(err).
			Str("creator_id", creatorID.String()).
			Msg("Automatic payout after finalization failed")
	}
}
