package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	stripeaccount "github.com/stripe/stripe-go/v76/account"
	"github.com/stripe/stripe-go/v76/accountlink"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentsource"
	stripepayout "github.com/stripe/stripe-go/v76/payout"
	"github.com/stripe/stripe-go/v76/token"
	"github.com/stripe/stripe-go/v76/transfer"

	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/monitoring"
)

var ErrConnectAccountMissing = errors.New("stripe connect account has not been provisioned for this payout account")

// ============================================
// Stripe Connect verification
// ============================================

// stripeVerifier provisions and checks a Stripe Express Connect account.
// Verification is asynchronous on this rail: until the creator finishes
// onboarding, the account stays pending and the result carries an
// onboarding link to surface to them.
type stripeVerifier struct {
	serverURL string
}

func (v *stripeVerifier) Verify(ctx context.Context, acct *models.PayoutAccount) (*VerificationResult, error) {
	result := &VerificationResult{Status: acct.Status}

	connectID := ""
	if acct.StripeConnectID != nil {
		connectID = *acct.StripeConnectID
	}

	if connectID == "" {
		start := time.Now()
		created, err := stripeaccount.New(&stripe.AccountParams{
			Type: stripe.String(string(stripe.AccountTypeExpress)),
			Capabilities: &stripe.AccountCapabilitiesParams{
				Transfers: &stripe.AccountCapabilitiesTransfersParams{
					Requested: stripe.Bool(true),
				},
			},
			Metadata: map[string]string{
				"payout_account_id": acct.ID.String(),
				"creator_id":        acct.UserID.String(),
			},
		})
		monitoring.ObserveProviderCall("stripe", "account_create", start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to create connect account: %w", err)
		}
		connectID = created.ID
		result.stripeConnectID = connectID
	}

	start := time.Now()
	remote, err := stripeaccount.GetByID(connectID, nil)
	monitoring.ObserveProviderCall("stripe", "account_get", start, err)
	if err != nil {
		// The partial result rides along with the error so a freshly
		// provisioned account id still reaches the orchestrator
		return result, fmt.Errorf("failed to retrieve connect account: %w", err)
	}

	if remote.DetailsSubmitted && remote.PayoutsEnabled {
		result.Status = models.AccountStatusVerified
		return result, nil
	}

	// Onboarding incomplete is not a rejection; the creator still has to
	// finish the hosted flow.
	start = time.Now()
	link, err := accountlink.New(&stripe.AccountLinkParams{
		Account:    stripe.String(connectID),
		RefreshURL: stripe.String(v.serverURL + "/payouts/accounts/" + acct.ID.String() + "/verify"),
		ReturnURL:  stripe.String(v.serverURL + "/payouts/accounts"),
		Type:       stripe.String("account_onboarding"),
	})
	monitoring.ObserveProviderCall("stripe", "account_link", start, err)
	if err != nil {
		return result, fmt.Errorf("failed to create onboarding link: %w", err)
	}

	result.Reason = "stripe onboarding incomplete"
	result.OnboardingURL = link.URL
	return result, nil
}

// ============================================
// Stripe Connect settlement
// ============================================

// stripeSettler transfers funds to an already onboarded Connect account.
// It never provisions one lazily; that only happens during verification.
type stripeSettler struct{}

func (s *stripeSettler) Settle(ctx context.Context, tx *models.PayoutTransaction, acct *models.PayoutAccount) (*SettlementResult, error) {
	if acct.StripeConnectID == nil || *acct.StripeConnectID == "" {
		return nil, ErrConnectAccountMissing
	}

	start := time.Now()
	tr, err := transfer.New(&stripe.TransferParams{
		Amount:      stripe.Int64(amountCents(tx.Amount)),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Destination: stripe.String(*acct.StripeConnectID),
		Metadata: map[string]string{
			"transaction_id": tx.ID.String(),
			"reference":      tx.Reference,
		},
	})
	monitoring.ObserveProviderCall("stripe", "transfer", start, err)
	if err != nil {
		return nil, fmt.Errorf("stripe transfer failed: %w", err)
	}

	return &SettlementResult{ExternalTxID: tr.ID}, nil
}

// ============================================
// Bank transfer settlement (via Stripe)
// ============================================

// bankSettler pays out to a raw bank account by tokenizing it, attaching
// it as a source on a per-creator Stripe customer, and issuing a payout
// to that source. The customer id is cached on the creator's payout
// settings so repeat payouts reuse it.
type bankSettler struct {
	db *pgxpool.Pool
}

func (s *bankSettler) Settle(ctx context.Context, tx *models.PayoutTransaction, acct *models.PayoutAccount) (*SettlementResult, error) {
	if reason := ValidateBankFields(acct); reason != "" {
		return nil, errors.New(reason)
	}

	customerID, err := s.getOrCreateCustomer(ctx, tx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	bankToken, err := token.New(&stripe.TokenParams{
		BankAccount: &stripe.BankAccountParams{
			Country:           stripe.String("US"),
			Currency:          stripe.String(string(stripe.CurrencyUSD)),
			AccountNumber:     stripe.String(*acct.AccountNumber),
			RoutingNumber:     stripe.String(*acct.RoutingNumber),
			AccountHolderName: stripe.String(*acct.AccountHolderName),
			AccountHolderType: stripe.String("individual"),
		},
	})
	monitoring.ObserveProviderCall("stripe", "bank_token", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize bank account: %w", err)
	}

	start = time.Now()
	source, err := paymentsource.New(&stripe.PaymentSourceParams{
		Customer: stripe.String(customerID),
		Source:   &stripe.PaymentSourceSourceParams{Token: stripe.String(bankToken.ID)},
	})
	monitoring.ObserveProviderCall("stripe", "attach_source", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to attach bank account: %w", err)
	}

	start = time.Now()
	po, err := stripepayout.New(&stripe.PayoutParams{
		Amount:      stripe.Int64(amountCents(tx.Amount)),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Destination: stripe.String(source.ID),
		Metadata: map[string]string{
			"transaction_id": tx.ID.String(),
			"reference":      tx.Reference,
		},
	})
	monitoring.ObserveProviderCall("stripe", "payout", start, err)
	if err != nil {
		return nil, fmt.Errorf("stripe payout failed: %w", err)
	}

	return &SettlementResult{ExternalTxID: po.ID}, nil
}

// getOrCreateCustomer returns the creator's cached Stripe customer id,
// creating and persisting one on first use
func (s *bankSettler) getOrCreateCustomer(ctx context.Context, tx *models.PayoutTransaction) (string, error) {
	var customerID *string
	err := s.db.QueryRow(ctx, `
		SELECT stripe_customer_id FROM payout_settings WHERE user_id = $1
	`, tx.UserID).Scan(&customerID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to read payout settings: %w", err)
	}
	if customerID != nil && *customerID != "" {
		return *customerID, nil
	}

	start := time.Now()
	cust, err := customer.New(&stripe.CustomerParams{
		Description: stripe.String("creator " + tx.UserID.String()),
		Metadata: map[string]string{
			"creator_id": tx.UserID.String(),
		},
	})
	monitoring.ObserveProviderCall("stripe", "customer_create", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO payout_settings (user_id, stripe_customer_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET stripe_customer_id = $2, updated_at = NOW()
	`, tx.UserID, cust.ID)
	if err != nil {
		return "", fmt.Errorf("failed to persist stripe customer id: %w", err)
	}

	return cust.ID, nil
}

// amountCents converts a USD decimal to integer cents for the Stripe API
func amountCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
