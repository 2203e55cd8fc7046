package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the state of a payout transaction
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// PayoutTransaction is one attempted or completed transfer of funds from a
// creator's available balance to a payout account. Completed and failed rows
// are an append-only audit trail.
type PayoutTransaction struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	UserID          uuid.UUID         `json:"user_id" db:"user_id"`
	PayoutAccountID uuid.UUID         `json:"payout_account_id" db:"payout_account_id"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	Currency        string            `json:"currency" db:"currency"`
	Status          TransactionStatus `json:"status" db:"status"`
	Reference       string            `json:"reference" db:"reference"`
	Description     string            `json:"description" db:"description"`
	ExternalTxID    *string           `json:"external_tx_id,omitempty" db:"external_tx_id"`
	FailureReason   *string           `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty" db:"processed_at"`
}
