package payout

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/playmix/creatorpay/internal/logging"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/monitoring"
)

var (
	ErrTransactionNotFound   = errors.New("payout transaction not found")
	ErrTransactionNotPending = errors.New("payout transaction is not pending")
)

// SettlementResult is the structured outcome of a successful transfer
type SettlementResult struct {
	ExternalTxID string `json:"external_tx_id,omitempty"`
}

// Settler executes a funds transfer on one payout rail. Implementations
// return an error on any provider failure; the processor owns all
// transaction state transitions.
type Settler interface {
	Settle(ctx context.Context, tx *models.PayoutTransaction, account *models.PayoutAccount) (*SettlementResult, error)
}

// ProcessPayoutRequest drives a pending transaction through the payout
// state machine: pending -> processing -> completed or failed. The
// processing status is persisted before the provider call so the balance
// ledger counts in-flight funds; every later transition is durable
// before this function returns. Provider errors mark the transaction
// failed and are re-returned so a synchronous caller can surface them.
func (s *Service) ProcessPayoutRequest(ctx context.Context, transactionID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE payout_transactions SET status = 'processing'
		WHERE id = $1 AND status = 'pending'
	`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark transaction processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetTransaction(ctx, transactionID); err != nil {
			return err
		}
		return ErrTransactionNotPending
	}

	tx, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	account, err := s.getAccount(ctx, tx.PayoutAccountID)
	if err != nil {
		s.markFailed(ctx, tx, "unknown", err)
		return err
	}
	if account.DeletedAt != nil {
		s.markFailed(ctx, tx, string(account.Type), ErrAccountDeleted)
		return ErrAccountDeleted
	}

	settler, ok := s.settlers[account.Type]
	if !ok {
		err := ErrUnknownAccountType
		s.markFailed(ctx, tx, string(account.Type), err)
		return err
	}

	result, err := settler.Settle(ctx, tx, account)
	if err != nil {
		s.markFailed(ctx, tx, string(account.Type), err)
		return err
	}

	var externalID *string
	if result != nil && result.ExternalTxID != "" {
		externalID = &result.ExternalTxID
	}
	_, err = s.db.Exec(ctx, `
		UPDATE payout_transactions
		SET status = 'completed', external_tx_id = $1, processed_at = NOW()
		WHERE id = $2
	`, externalID, tx.ID)
	if err != nil {
		return fmt.Errorf("failed to mark transaction completed: %w", err)
	}

	monitoring.Get().PayoutsTotal.WithLabelValues(string(account.Type), "completed").Inc()
	monitoring.Get().PayoutAmountTotal.WithLabelValues(string(account.Type)).Add(tx.Amount.InexactFloat64())
	logging.LogPayout(tx.ID.String(), tx.UserID.String(), string(account.Type), "completed", tx.Amount.StringFixed(2))

	return nil
}

// markFailed transitions a transaction to failed, capturing the provider
// message verbatim. The row stays as a permanent audit record and the
// amount is no longer subtracted from the available balance.
func (s *Service) markFailed(ctx context.Context, tx *models.PayoutTransaction, provider string, cause error) {
	reason := cause.Error()
	if IsRetryable(cause) {
		reason = "retryable: " + reason
	}

	if _, err := s.db.Exec(ctx, `
		UPDATE payout_transactions SET status = 'failed', failure_reason = $1 WHERE id = $2
	`, reason, tx.ID); err != nil {
		logger := logging.NewLogger("payout")
		logger.Error().
			Err(err).
			Str("transaction_id", tx.ID.String()).
			Msg("Failed to persist failure status")
	}

	monitoring.Get().PayoutsTotal.WithLabelValues(provider, "failed").Inc()
	logging.LogPayout(tx.ID.String(), tx.UserID.String(), provider, "failed", tx.Amount.StringFixed(2))
}

// IsRetryable reports whether a settlement error looks transient.
// Timeouts and provider unavailability are worth retrying; validation
// and configuration failures are not.
func IsRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"status 500", "status 502", "status 503", "status 504", "connection refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// GetTransaction loads a payout transaction by id
func (s *Service) GetTransaction(ctx context.Context, transactionID uuid.UUID) (*models.PayoutTransaction, error) {
	tx := &models.PayoutTransaction{}
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, payout_account_id, amount, currency, status,
		       reference, description, external_tx_id, failure_reason,
		       created_at, processed_at
		FROM payout_transactions
		WHERE id = $1
	`, transactionID).Scan(
		&tx.ID, &tx.UserID, &tx.PayoutAccountID, &tx.Amount, &tx.Currency, &tx.Status,
		&tx.Reference, &tx.Description, &tx.ExternalTxID, &tx.FailureReason,
		&tx.CreatedAt, &tx.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return tx, nil
}
