package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountType represents the payout rail an account targets
type AccountType string

const (
	AccountTypeBankTransfer AccountType = "bank_transfer"
	AccountTypePayPal       AccountType = "paypal"
	AccountTypeStripe       AccountType = "stripe"
	AccountTypeCrypto       AccountType = "crypto"
)

// AccountStatus represents the verification state of a payout account
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusVerified AccountStatus = "verified"
	AccountStatusRejected AccountStatus = "rejected"
)

// PayoutAccount is an external destination a creator can be paid into.
// Type-specific fields are nullable; only the columns matching Type are set.
type PayoutAccount struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	UserID    uuid.UUID     `json:"user_id" db:"user_id"`
	Type      AccountType   `json:"type" db:"type"`
	Status    AccountStatus `json:"status" db:"status"`
	IsDefault bool          `json:"is_default" db:"is_default"`

	// bank_transfer
	AccountNumber     *string `json:"account_number,omitempty" db:"account_number"`
	RoutingNumber     *string `json:"routing_number,omitempty" db:"routing_number"`
	BankName          *string `json:"bank_name,omitempty" db:"bank_name"`
	AccountHolderName *string `json:"account_holder_name,omitempty" db:"account_holder_name"`
	BankAccountType   *string `json:"bank_account_type,omitempty" db:"bank_account_type"`

	// paypal
	PayPalEmail *string `json:"paypal_email,omitempty" db:"paypal_email"`

	// stripe
	StripeConnectID *string `json:"stripe_connect_id,omitempty" db:"stripe_connect_id"`

	// crypto
	WalletAddress  *string `json:"wallet_address,omitempty" db:"wallet_address"`
	CryptoCurrency *string `json:"crypto_currency,omitempty" db:"crypto_currency"`
	CryptoNetwork  *string `json:"crypto_network,omitempty" db:"crypto_network"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// DeletedAt is set when the creator retires the account. The row is
	// kept so payout history retains its account reference.
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}
