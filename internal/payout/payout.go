package payout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"

	"github.com/playmix/creatorpay/internal/config"
	"github.com/playmix/creatorpay/internal/earnings"
	"github.com/playmix/creatorpay/internal/logging"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/monitoring"
)

var (
	ErrInvalidAmount       = errors.New("payout amount must be positive")
	ErrInsufficientBalance = errors.New("available balance is insufficient for this payout")
	ErrAccountNotVerified  = errors.New("payout account is not verified")
	ErrInvalidFrequency    = errors.New("unknown payout frequency")
	ErrInvalidPayoutDay    = errors.New("payout day is out of range for the chosen frequency")
)

// Service owns payout accounts, verification, settlement and settings
type Service struct {
	db       *pgxpool.Pool
	earnings *earnings.Service
	locks    *CreatorLocks

	verifiers map[models.AccountType]Verifier
	settlers  map[models.AccountType]Settler
}

// NewService creates a new payout service and wires one verifier and one
// settler per supported rail
func NewService(db *pgxpool.Pool, earningsService *earnings.Service, locks *CreatorLocks, cfg *config.Config) *Service {
	if cfg.Stripe.SecretKey != "" {
		stripe.Key = cfg.Stripe.SecretKey
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	s := &Service{
		db:       db,
		earnings: earningsService,
		locks:    locks,
		verifiers: map[models.AccountType]Verifier{
			models.AccountTypeStripe:       &stripeVerifier{serverURL: cfg.Server.URL},
			models.AccountTypePayPal:       &paypalVerifier{httpClient: httpClient},
			models.AccountTypeBankTransfer: &bankVerifier{},
			models.AccountTypeCrypto:       &cryptoVerifier{},
		},
		settlers: map[models.AccountType]Settler{
			models.AccountTypeStripe:       &stripeSettler{},
			models.AccountTypePayPal:       &paypalSettler{config: &cfg.PayPal, httpClient: httpClient},
			models.AccountTypeBankTransfer: &bankSettler{db: db},
			models.AccountTypeCrypto: &cryptoSettler{
				coinbase:     &cfg.Coinbase,
				exchangeRate: &cfg.ExchangeRate,
				httpClient:   httpClient,
			},
		},
	}

	return s
}

// RequestPayoutRequest carries a creator-initiated payout request
type RequestPayoutRequest struct {
	PayoutAccountID uuid.UUID       `json:"payout_account_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Description     string          `json:"description"`
}

// RequestPayout creates and immediately processes a payout transaction.
// The per-creator lock covers the balance read and the insert so two
// concurrent requests cannot both spend the same funds. Settlement
// errors are returned to the caller; the failed transaction remains as
// an audit record.
func (s *Service) RequestPayout(ctx context.Context, userID uuid.UUID, req *RequestPayoutRequest) (*models.PayoutTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	account, err := s.GetAccount(ctx, req.PayoutAccountID, userID)
	if err != nil {
		return nil, err
	}
	if account.Status != models.AccountStatusVerified {
		return nil, ErrAccountNotVerified
	}

	if err := s.locks.Acquire(ctx, userID); err != nil {
		return nil, err
	}
	defer s.locks.Release(ctx, userID)

	balance, err := s.earnings.GetAvailableBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(balance) {
		return nil, ErrInsufficientBalance
	}

	tx, err := s.createTransaction(ctx, userID, account.ID, req.Amount, req.Description, "")
	if err != nil {
		return nil, err
	}

	if err := s.ProcessPayoutRequest(ctx, tx.ID); err != nil {
		// Re-read so the caller sees the failed status and reason
		if failed, readErr := s.GetTransaction(ctx, tx.ID); readErr == nil {
			return failed, err
		}
		return tx, err
	}

	return s.GetTransaction(ctx, tx.ID)
}

// TriggerAutomaticPayout pays out a creator's full available balance to
// their default verified account, provided automatic payouts are enabled
// and the balance clears the configured minimum. Returns false without
// error for every abort condition: this runs unattended from the
// scheduler and from period finalization, and must never crash either.
func (s *Service) TriggerAutomaticPayout(ctx context.Context, creatorID uuid.UUID) (bool, error) {
	settings, err := s.GetPayoutSettings(ctx, creatorID)
	if err != nil {
		return false, err
	}
	if !settings.AutomaticPayouts {
		return false, nil
	}

	if err := s.locks.Acquire(ctx, creatorID); err != nil {
		if errors.Is(err, ErrPayoutInFlight) {
			return false, nil
		}
		return false, err
	}
	defer s.locks.Release(ctx, creatorID)

	balance, err := s.earnings.GetAvailableBalance(ctx, creatorID)
	if err != nil {
		return false, err
	}
	if balance.LessThan(settings.MinimumPayout) {
		return false, nil
	}

	account, err := s.defaultVerifiedAccount(ctx, creatorID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}

	tx, err := s.createTransaction(ctx, creatorID, account.ID, balance, "Automatic payout", "AUTO")
	if err != nil {
		return false, err
	}

	monitoring.Get().AutoPayoutsTriggered.Inc()

	if err := s.ProcessPayoutRequest(ctx, tx.ID); err != nil {
		logger := logging.NewLogger("payout")
		logger.Warn().
			Err(err).
			Str("creator_id", creatorID.String()).
			Str("transaction_id", tx.ID.String()).
			Msg("Automatic payout settlement failed")
		return false, nil
	}

	return true, nil
}

// createTransaction inserts a new pending payout transaction. The
// reference is derived from the transaction id; automatic payouts get
// the AUTO prefix.
func (s *Service) createTransaction(ctx context.Context, userID, accountID uuid.UUID, amount decimal.Decimal, description, prefix string) (*models.PayoutTransaction, error) {
	id := uuid.New()
	if prefix == "" {
		prefix = "PAY"
	}

	tx := &models.PayoutTransaction{
		ID:              id,
		UserID:          userID,
		PayoutAccountID: accountID,
		Amount:          amount,
		Currency:        "USD",
		Status:          models.TransactionStatusPending,
		Reference:       fmt.Sprintf("%s-%s", prefix, id.String()),
		Description:     description,
		CreatedAt:       time.Now(),
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO payout_transactions (
			id, user_id, payout_account_id, amount, currency,
			status, reference, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, tx.ID, tx.UserID, tx.PayoutAccountID, tx.Amount, tx.Currency,
		tx.Status, tx.Reference, tx.Description, tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return tx, nil
}

// TransactionList is a paginated page of payout transactions
type TransactionList struct {
	Transactions []*models.PayoutTransaction `json:"transactions"`
	Total        int                         `json:"total"`
	Page         int                         `json:"page"`
	PageSize     int                         `json:"page_size"`
	TotalPages   int                         `json:"total_pages"`
}

// ListTransactions returns a creator's payout history newest first
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) (*TransactionList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM payout_transactions WHERE user_id = $1
	`, userID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, payout_account_id, amount, currency, status,
		       reference, description, external_tx_id, failure_reason,
		       created_at, processed_at
		FROM payout_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*models.PayoutTransaction, 0, pageSize)
	for rows.Next() {
		tx := &models.PayoutTransaction{}
		err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.PayoutAccountID, &tx.Amount, &tx.Currency, &tx.Status,
			&tx.Reference, &tx.Description, &tx.ExternalTxID, &tx.FailureReason,
			&tx.CreatedAt, &tx.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	return &TransactionList{
		Transactions: transactions,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   (total + pageSize - 1) / pageSize,
	}, nil
}

// TransactionSummary aggregates a creator's payout history by status
type TransactionSummary struct {
	TotalPaidOut    decimal.Decimal `json:"total_paid_out"`
	InFlightAmount  decimal.Decimal `json:"in_flight_amount"`
	FailedCount     int             `json:"failed_count"`
	CompletedCount  int             `json:"completed_count"`
	ProcessingCount int             `json:"processing_count"`
	PendingCount    int             `json:"pending_count"`
}

// GetTransactionSummary computes status rollups for a creator
func (s *Service) GetTransactionSummary(ctx context.Context, userID uuid.UUID) (*TransactionSummary, error) {
	summary := &TransactionSummary{
		TotalPaidOut:   decimal.Zero,
		InFlightAmount: decimal.Zero,
	}

	rows, err := s.db.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM payout_transactions
		WHERE user_id = $1
		GROUP BY status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.TransactionStatus
		var count int
		var amount decimal.Decimal
		if err := rows.Scan(&status, &count, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		switch status {
		case models.TransactionStatusCompleted:
			summary.CompletedCount = count
			summary.TotalPaidOut = amount
		case models.TransactionStatusProcessing:
			summary.ProcessingCount = count
			summary.InFlightAmount = amount
		case models.TransactionStatusPending:
			summary.PendingCount = count
		case models.TransactionStatusFailed:
			summary.FailedCount = count
		}
	}

	return summary, rows.Err()
}

// ============================================
// Payout settings
// ============================================

// GetPayoutSettings loads a creator's settings, falling back to defaults
// when they have never saved any
func (s *Service) GetPayoutSettings(ctx context.Context, userID uuid.UUID) (*models.PayoutSettings, error) {
	settings := &models.PayoutSettings{}
	err := s.db.QueryRow(ctx, `
		SELECT user_id, automatic_payouts, minimum_payout, payout_frequency,
		       payout_day, stripe_customer_id, updated_at
		FROM payout_settings
		WHERE user_id = $1
	`, userID).Scan(
		&settings.UserID, &settings.AutomaticPayouts, &settings.MinimumPayout,
		&settings.PayoutFrequency, &settings.PayoutDay, &settings.StripeCustomerID,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultPayoutSettings(userID), nil
		}
		return nil, fmt.Errorf("failed to query payout settings: %w", err)
	}
	return settings, nil
}

// UpdateSettingsRequest carries the mutable payout preferences
type UpdateSettingsRequest struct {
	AutomaticPayouts *bool                   `json:"automatic_payouts"`
	MinimumPayout    *decimal.Decimal        `json:"minimum_payout"`
	PayoutFrequency  *models.PayoutFrequency `json:"payout_frequency"`
	PayoutDay        *int                    `json:"payout_day"`
}

// ValidateSchedule checks a frequency and day combination. PayoutDay is
// a day-of-month for monthly and a weekday (0 = Sunday) otherwise.
func ValidateSchedule(frequency models.PayoutFrequency, day int) error {
	switch frequency {
	case models.PayoutFrequencyMonthly:
		if day < 1 || day > 28 {
			return ErrInvalidPayoutDay
		}
	case models.PayoutFrequencyWeekly, models.PayoutFrequencyBiweekly:
		if day < 0 || day > 6 {
			return ErrInvalidPayoutDay
		}
	default:
		return ErrInvalidFrequency
	}
	return nil
}

// UpdatePayoutSettings upserts a creator's payout preferences
func (s *Service) UpdatePayoutSettings(ctx context.Context, userID uuid.UUID, req *UpdateSettingsRequest) (*models.PayoutSettings, error) {
	settings, err := s.GetPayoutSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.AutomaticPayouts != nil {
		settings.AutomaticPayouts = *req.AutomaticPayouts
	}
	if req.MinimumPayout != nil {
		if req.MinimumPayout.IsNegative() {
			return nil, ErrInvalidAmount
		}
		settings.MinimumPayout = *req.MinimumPayout
	}
	if req.PayoutFrequency != nil {
		settings.PayoutFrequency = *req.PayoutFrequency
	}
	if req.PayoutDay != nil {
		settings.PayoutDay = *req.PayoutDay
	}

	if err := ValidateSchedule(settings.PayoutFrequency, settings.PayoutDay); err != nil {
		return nil, err
	}

	settings.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx, `
		INSERT INTO payout_settings (
			user_id, automatic_payouts, minimum_payout, payout_frequency,
			payout_day, stripe_customer_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			automatic_payouts = $2, minimum_payout = $3, payout_frequency = $4,
			payout_day = $5, updated_at = $7
	`, settings.UserID, settings.AutomaticPayouts, settings.MinimumPayout,
		settings.PayoutFrequency, settings.PayoutDay, settings.StripeCustomerID,
		settings.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert payout settings: %w", err)
	}

	return settings, nil
}
