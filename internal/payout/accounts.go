package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/playmix/creatorpay/internal/models"
)

var (
	ErrAccountNotFound    = errors.New("payout account not found")
	ErrAccountNotOwned    = errors.New("payout account belongs to another creator")
	ErrAccountDeleted     = errors.New("payout account has been deleted")
	ErrInvalidAccount     = errors.New("invalid payout account")
	ErrMissingFields      = errors.New("missing required account fields")
	ErrUnknownAccountType = errors.New("unknown payout account type")
)

// CreateAccountRequest carries the fields for a new payout destination
type CreateAccountRequest struct {
	Type      models.AccountType `json:"type" binding:"required"`
	IsDefault bool               `json:"is_default"`

	AccountNumber     *string `json:"account_number"`
	RoutingNumber     *string `json:"routing_number"`
	BankName          *string `json:"bank_name"`
	AccountHolderName *string `json:"account_holder_name"`
	BankAccountType   *string `json:"bank_account_type"`

	PayPalEmail *string `json:"paypal_email"`

	WalletAddress  *string `json:"wallet_address"`
	CryptoCurrency *string `json:"crypto_currency"`
	CryptoNetwork  *string `json:"crypto_network"`
}

// validate checks that the fields the account type needs are present.
// Format checks (routing digits, wallet patterns) belong to verification,
// not registration.
func (r *CreateAccountRequest) validate() error {
	switch r.Type {
	case models.AccountTypeBankTransfer:
		if isBlank(r.AccountNumber) || isBlank(r.RoutingNumber) ||
			isBlank(r.BankName) || isBlank(r.AccountHolderName) {
			return ErrMissingFields
		}
	case models.AccountTypePayPal:
		if isBlank(r.PayPalEmail) {
			return ErrMissingFields
		}
	case models.AccountTypeStripe:
		// Connect id is provisioned during verification
	case models.AccountTypeCrypto:
		if isBlank(r.WalletAddress) || isBlank(r.CryptoCurrency) || isBlank(r.CryptoNetwork) {
			return ErrMissingFields
		}
	default:
		return ErrUnknownAccountType
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

// CreateAccount registers a new payout destination in pending status
func (s *Service) CreateAccount(ctx context.Context, userID uuid.UUID, req *CreateAccountRequest) (*models.PayoutAccount, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	account := &models.PayoutAccount{
		ID:                uuid.New(),
		UserID:            userID,
		Type:              req.Type,
		Status:            models.AccountStatusPending,
		IsDefault:         req.IsDefault,
		AccountNumber:     req.AccountNumber,
		RoutingNumber:     req.RoutingNumber,
		BankName:          req.BankName,
		AccountHolderName: req.AccountHolderName,
		BankAccountType:   req.BankAccountType,
		PayPalEmail:       req.PayPalEmail,
		WalletAddress:     req.WalletAddress,
		CryptoCurrency:    req.CryptoCurrency,
		CryptoNetwork:     req.CryptoNetwork,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if account.IsDefault {
		_, err = tx.Exec(ctx, `
			UPDATE payout_accounts SET is_default = false, updated_at = NOW()
			WHERE user_id = $1 AND is_default = true
		`, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payout_accounts (
			id, user_id, type, status, is_default,
			account_number, routing_number, bank_name, account_holder_name, bank_account_type,
			paypal_email, stripe_connect_id,
			wallet_address, crypto_currency, crypto_network,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, account.ID, account.UserID, account.Type, account.Status, account.IsDefault,
		account.AccountNumber, account.RoutingNumber, account.BankName,
		account.AccountHolderName, account.BankAccountType,
		account.PayPalEmail, account.StripeConnectID,
		account.WalletAddress, account.CryptoCurrency, account.CryptoNetwork,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, nil
}

const accountColumns = `
	id, user_id, type, status, is_default,
	account_number, routing_number, bank_name, account_holder_name, bank_account_type,
	paypal_email, stripe_connect_id,
	wallet_address, crypto_currency, crypto_network,
	created_at, updated_at, deleted_at`

func scanAccount(row pgx.Row) (*models.PayoutAccount, error) {
	account := &models.PayoutAccount{}
	err := row.Scan(
		&account.ID, &account.UserID, &account.Type, &account.Status, &account.IsDefault,
		&account.AccountNumber, &account.RoutingNumber, &account.BankName,
		&account.AccountHolderName, &account.BankAccountType,
		&account.PayPalEmail, &account.StripeConnectID,
		&account.WalletAddress, &account.CryptoCurrency, &account.CryptoNetwork,
		&account.CreatedAt, &account.UpdatedAt, &account.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return account, nil
}

// GetAccount loads an account and checks creator ownership. Retired
// accounts read as not found.
func (s *Service) GetAccount(ctx context.Context, accountID, userID uuid.UUID) (*models.PayoutAccount, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrAccountNotOwned
	}
	if account.DeletedAt != nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) getAccount(ctx context.Context, accountID uuid.UUID) (*models.PayoutAccount, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM payout_accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

// ListAccounts returns all of a creator's payout accounts, default first
func (s *Service) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*models.PayoutAccount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM payout_accounts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY is_default DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.PayoutAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpdateAccountRequest carries mutable account fields. Changing rail
// details resets verification: the account drops back to pending.
type UpdateAccountRequest struct {
	AccountNumber     *string `json:"account_number"`
	RoutingNumber     *string `json:"routing_number"`
	BankName          *string `json:"bank_name"`
	AccountHolderName *string `json:"account_holder_name"`
	BankAccountType   *string `json:"bank_account_type"`
	PayPalEmail       *string `json:"paypal_email"`
	WalletAddress     *string `json:"wallet_address"`
	CryptoCurrency    *string `json:"crypto_currency"`
	CryptoNetwork     *string `json:"crypto_network"`
}

// UpdateAccount applies field changes and resets the account to pending
func (s *Service) UpdateAccount(ctx context.Context, accountID, userID uuid.UUID, req *UpdateAccountRequest) (*models.PayoutAccount, error) {
	account, err := s.GetAccount(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}

	apply := func(dst **string, src *string) {
		if src != nil {
			*dst = src
		}
	}
	apply(&account.AccountNumber, req.AccountNumber)
	apply(&account.RoutingNumber, req.RoutingNumber)
	apply(&account.BankName, req.BankName)
	apply(&account.AccountHolderName, req.AccountHolderName)
	apply(&account.BankAccountType, req.BankAccountType)
	apply(&account.PayPalEmail, req.PayPalEmail)
	apply(&account.WalletAddress, req.WalletAddress)
	apply(&account.CryptoCurrency, req.CryptoCurrency)
	apply(&account.CryptoNetwork, req.CryptoNetwork)

	account.Status = models.AccountStatusPending
	account.UpdatedAt = time.Now()

	_, err = s.db.Exec(ctx, `
		UPDATE payout_accounts SET
			status = $1,
			account_number = $2, routing_number = $3, bank_name = $4,
			account_holder_name = $5, bank_account_type = $6,
			paypal_email = $7,
			wallet_address = $8, crypto_currency = $9, crypto_network = $10,
			updated_at = $11
		WHERE id = $12
	`, account.Status,
		account.AccountNumber, account.RoutingNumber, account.BankName,
		account.AccountHolderName, account.BankAccountType,
		account.PayPalEmail,
		account.WalletAddress, account.CryptoCurrency, account.CryptoNetwork,
		account.UpdatedAt, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return account, nil
}

// DeleteAccount retires a payout destination. The row is kept and
// flagged so history rows in payout_transactions keep their account id
// for auditing; a retired account disappears from reads and can no
// longer be a default or receive payouts.
func (s *Service) DeleteAccount(ctx context.Context, accountID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE payout_accounts
		SET deleted_at = NOW(), is_default = false, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, accountID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetDefaultAccount marks one account as the automatic payout target,
// clearing the flag on every other account the creator owns
func (s *Service) SetDefaultAccount(ctx context.Context, accountID, userID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE payout_accounts SET is_default = false, updated_at = NOW()
		WHERE user_id = $1 AND is_default = true
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear previous default: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE payout_accounts SET is_default = true, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, accountID, userID)
	if err != nil {
		return fmt.Errorf("failed to set default account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return tx.Commit(ctx)
}

// defaultVerifiedAccount finds the creator's default account if it has
// passed verification
func (s *Service) defaultVerifiedAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM payout_accounts
		WHERE user_id = $1 AND is_default = true AND status = 'verified' AND deleted_at IS NULL
	`, userID)
	return scanAccount(row)
}
