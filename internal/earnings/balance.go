package earnings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AvailableFrom derives the spendable balance from finalized earnings
// and the amount already committed to payouts. Never negative.
func AvailableFrom(finalized, committed decimal.Decimal) decimal.Decimal {
	available := finalized.Sub(committed)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// GetAvailableBalance recomputes a creator's spendable balance on every
// call: finalized period totals minus payout transactions that have
// already completed or are still in flight. Processing transactions are
// subtracted so a balance cannot be spent twice while a transfer runs.
func (s *Service) GetAvailableBalance(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error) {
	var finalized decimal.Decimal
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM earnings_periods
		WHERE creator_id = $1 AND status = 'finalized'
	`, creatorID).Scan(&finalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum finalized periods: %w", err)
	}

	var committed decimal.Decimal
	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payout_transactions
		WHERE user_id = $1 AND status IN ('completed', 'processing')
	`, creatorID).Scan(&committed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payout transactions: %w", err)
	}

	return AvailableFrom(finalized, committed), nil
}
