package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/playmix/creatorpay/internal/models"
)

var (
	ErrUnknownRateType = errors.New("unknown rate type")
	ErrInvalidRate     = errors.New("rate must be non-negative")
)

// defaultRates are used for any rate type that has no active row in the
// database, so earnings computation stays total even before an operator
// has configured custom rates.
var defaultRates = models.RateSnapshot{
	models.RateTypeView:         decimal.NewFromFloat(0.001),
	models.RateTypeEngagement:   decimal.NewFromFloat(0.01),
	models.RateTypeSubscription: decimal.NewFromFloat(0.70),
	models.RateTypeAdImpression: decimal.NewFromFloat(0.001),
	models.RateTypeAdClick:      decimal.NewFromFloat(0.10),
}

// DefaultRates returns a copy of the built-in fallback rates.
func DefaultRates() models.RateSnapshot {
	snapshot := make(models.RateSnapshot, len(defaultRates))
	for rateType, rate := range defaultRates {
		snapshot[rateType] = rate
	}
	return snapshot
}

// Service manages the per-unit payout rate table
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a new rates service
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// CurrentRates returns a complete snapshot of the active rate for every
// rate type. Types without an active database row fall back to the
// built-in defaults, so the returned snapshot always covers all types.
func (s *Service) CurrentRates(ctx context.Context) (models.RateSnapshot, error) {
	snapshot := DefaultRates()

	rows, err := s.db.Query(ctx, `
		SELECT rate_type, rate
		FROM payout_rates
		WHERE is_active = true
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rateType string
		var rate decimal.Decimal
		if err := rows.Scan(&rateType, &rate); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		snapshot[models.RateType(rateType)] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rates: %w", err)
	}

	return snapshot, nil
}

// ListRates returns the full rate history, newest first
func (s *Service) ListRates(ctx context.Context) ([]*models.PayoutRate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, rate_type, rate, is_active, created_at, updated_at
		FROM payout_rates
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	var rates []*models.PayoutRate
	for rows.Next() {
		rate := &models.PayoutRate{}
		err := rows.Scan(&rate.ID, &rate.RateType, &rate.Rate, &rate.IsActive,
			&rate.CreatedAt, &rate.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rates = append(rates, rate)
	}

	return rates, rows.Err()
}

// SetRate activates a new rate for the given type, deactivating any
// previously active rate. The change only affects periods created after
// this call; already created periods keep their frozen snapshot.
func (s *Service) SetRate(ctx context.Context, rateType models.RateType, rate decimal.Decimal) (*models.PayoutRate, error) {
	if !rateType.Valid() {
		return nil, ErrUnknownRateType
	}
	if rate.IsNegative() {
		return nil, ErrInvalidRate
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE payout_rates
		SET is_active = false, updated_at = NOW()
		WHERE rate_type = $1 AND is_active = true
	`, rateType)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate previous rate: %w", err)
	}

	now := time.Now()
	row := &models.PayoutRate{
		ID:        uuid.New(),
		RateType:  rateType,
		Rate:      rate,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payout_rates (id, rate_type, rate, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, row.ID, row.RateType, row.Rate, row.IsActive, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return row, nil
}

// GetRate returns the active rate for a single type, falling back to the
// built-in default when none is configured
func (s *Service) GetRate(ctx context.Context, rateType models.RateType) (decimal.Decimal, error) {
	if !rateType.Valid() {
		return decimal.Zero, ErrUnknownRateType
	}

	var rate decimal.Decimal
	err := s.db.QueryRow(ctx, `
		SELECT rate
		FROM payout_rates
		WHERE rate_type = $1 AND is_active = true
	`, rateType).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defaultRates[rateType], nil
		}
		return decimal.Zero, fmt.Errorf("failed to query rate: %w", err)
	}

	return rate, nil
}
