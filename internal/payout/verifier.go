package payout

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/playmix/creatorpay/internal/logging"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/monitoring"
)

// VerificationResult is the structured outcome of a verification attempt.
// Verified and Rejected are terminal; an account can also stay pending
// when the rail needs asynchronous action from the creator (Stripe
// onboarding), in which case OnboardingURL tells them where to go.
type VerificationResult struct {
	Status        models.AccountStatus `json:"status"`
	Reason        string               `json:"reason,omitempty"`
	OnboardingURL string               `json:"onboarding_url,omitempty"`

	// stripeConnectID carries a freshly provisioned Connect account id
	// back to the orchestrator for persistence
	stripeConnectID string
}

// Verifier validates a payout account against its target rail.
// Implementations return an error only for provider failures; bad
// account data is a rejected result, not an error. A non-nil result may
// accompany an error when the attempt produced state that must be
// persisted regardless, such as a provisioned Connect account id.
type Verifier interface {
	Verify(ctx context.Context, account *models.PayoutAccount) (*VerificationResult, error)
}

// VerifyAccount runs the rail-specific verifier for an account and
// persists the outcome. Provider errors are swallowed into a rejected
// status: verification failure is routine and must never surface as a
// server error to the scheduler or the dashboard.
func (s *Service) VerifyAccount(ctx context.Context, accountID, userID uuid.UUID) (*VerificationResult, error) {
	account, err := s.GetAccount(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}

	verifier, ok := s.verifiers[account.Type]
	if !ok {
		return nil, ErrUnknownAccountType
	}

	result, err := verifier.Verify(ctx, account)
	if err != nil {
		rejected := &VerificationResult{
			Status: models.AccountStatusRejected,
			Reason: err.Error(),
		}
		// Keep any provisioned Connect account id from a partial result;
		// dropping it would orphan the Stripe account and make the next
		// attempt provision a duplicate
		if result != nil {
			rejected.stripeConnectID = result.stripeConnectID
		}
		result = rejected
	}

	if result.stripeConnectID != "" {
		_, dbErr := s.db.Exec(ctx, `
			UPDATE payout_accounts SET stripe_connect_id = $1, updated_at = NOW() WHERE id = $2
		`, result.stripeConnectID, account.ID)
		if dbErr != nil {
			return nil, fmt.Errorf("failed to persist connect account id: %w", dbErr)
		}
	}

	if result.Status != account.Status {
		_, dbErr := s.db.Exec(ctx, `
			UPDATE payout_accounts SET status = $1, updated_at = NOW() WHERE id = $2
		`, result.Status, account.ID)
		if dbErr != nil {
			return nil, fmt.Errorf("failed to persist verification status: %w", dbErr)
		}
	}

	monitoring.Get().VerificationsTotal.WithLabelValues(string(account.Type), string(result.Status)).Inc()
	logging.LogVerification(account.ID.String(), userID.String(), string(account.Type),
		string(result.Status), result.Reason)

	return result, nil
}

// ============================================
// PayPal verification
// ============================================

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// paypalVerifier accepts any syntactically valid email. A HEAD request
// against the email's domain is attempted as a liveness hint but its
// failure never blocks verification.
type paypalVerifier struct {
	httpClient *http.Client
}

func (v *paypalVerifier) Verify(ctx context.Context, account *models.PayoutAccount) (*VerificationResult, error) {
	if isBlank(account.PayPalEmail) {
		return &VerificationResult{
			Status: models.AccountStatusRejected,
			Reason: "paypal email is required",
		}, nil
	}

	email := *account.PayPalEmail
	if !emailPattern.MatchString(email) {
		return &VerificationResult{
			Status: models.AccountStatusRejected,
			Reason: "paypal email is not a valid email address",
		}, nil
	}

	if at := strings.LastIndex(email, "@"); at >= 0 && v.httpClient != nil {
		domain := email[at+1:]
		if req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://"+domain, nil); err == nil {
			if resp, err := v.httpClient.Do(req); err == nil {
				resp.Body.Close()
			}
		}
	}

	return &VerificationResult{Status: models.AccountStatusVerified}, nil
}

// ============================================
// Bank account verification
// ============================================

var (
	routingNumberPattern = regexp.MustCompile(`^\d{9}$`)
	accountNumberPattern = regexp.MustCompile(`^\d{4,17}$`)
)

// ValidateBankFields checks bank detail formats. Returns an empty string
// when the fields pass, otherwise the rejection reason. No external bank
// registry is consulted.
func ValidateBankFields(account *models.PayoutAccount) string {
	if isBlank(account.AccountNumber) || isBlank(account.RoutingNumber) ||
		isBlank(account.BankName) || isBlank(account.AccountHolderName) {
		return "bank accounts require account number, routing number, bank name and account holder name"
	}
	if !routingNumberPattern.MatchString(*account.RoutingNumber) {
		return "routing number must be exactly 9 digits"
	}
	if !accountNumberPattern.MatchString(*account.AccountNumber) {
		return "account number must be 4 to 17 digits"
	}
	return ""
}

type bankVerifier struct{}

func (v *bankVerifier) Verify(ctx context.Context, account *models.PayoutAccount) (*VerificationResult, error) {
	if reason := ValidateBankFields(account); reason != "" {
		return &VerificationResult{
			Status: models.AccountStatusRejected,
			Reason: reason,
		}, nil
	}
	return &VerificationResult{Status: models.AccountStatusVerified}, nil
}

// ============================================
// Crypto wallet verification
// ============================================

var (
	btcAddressPattern = regexp.MustCompile(`^(1|3|bc1)[a-zA-HJ-NP-Z0-9]{25,62}$`)
	ethAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ValidateWalletAddress checks a wallet address against the pattern for
// its currency. Currencies without a known pattern fall back to a
// minimum length check.
func ValidateWalletAddress(address, currency string) bool {
	switch strings.ToUpper(currency) {
	case "BTC":
		return btcAddressPattern.MatchString(address)
	case "ETH", "USDC", "USDT":
		return ethAddressPattern.MatchString(address)
	default:
		return len(address) >= 26
	}
}

type cryptoVerifier struct{}

func (v *cryptoVerifier) Verify(ctx context.Context, account *models.PayoutAccount) (*VerificationResult, error) {
	if isBlank(account.WalletAddress) || isBlank(account.CryptoCurrency) || isBlank(account.CryptoNetwork) {
		return &VerificationResult{
			Status: models.AccountStatusRejected,
			Reason: "crypto accounts require wallet address, currency and network",
		}, nil
	}
	if !ValidateWalletAddress(*account.WalletAddress, *account.CryptoCurrency) {
		return &VerificationResult{
			Status: models.AccountStatusRejected,
			Reason: fmt.Sprintf("wallet address does not match the expected %s format", strings.ToUpper(*account.CryptoCurrency)),
		}, nil
	}
	return &VerificationResult{Status: models.AccountStatusVerified}, nil
}
