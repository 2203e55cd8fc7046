package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/playmix/creatorpay/internal/models"
)

// ============================================
// Schedule validation
// ============================================

func TestValidateSchedule(t *testing.T) {
	cases := []struct {
		frequency models.PayoutFrequency
		day       int
		wantErr   error
	}{
		{models.PayoutFrequencyMonthly, 1, nil},
		{models.PayoutFrequencyMonthly, 28, nil},
		{models.PayoutFrequencyMonthly, 0, ErrInvalidPayoutDay},
		{models.PayoutFrequencyMonthly, 29, ErrInvalidPayoutDay},
		{models.PayoutFrequencyWeekly, 0, nil},
		{models.PayoutFrequencyWeekly, 6, nil},
		{models.PayoutFrequencyWeekly, 7, ErrInvalidPayoutDay},
		{models.PayoutFrequencyBiweekly, 3, nil},
		{models.PayoutFrequencyBiweekly, -1, ErrInvalidPayoutDay},
		{models.PayoutFrequency("daily"), 1, ErrInvalidFrequency},
	}
	for _, c := range cases {
		if err := ValidateSchedule(c.frequency, c.day); !errors.Is(err, c.wantErr) {
			t.Errorf("ValidateSchedule(%q, %d) = %v, expected %v", c.frequency, c.day, err, c.wantErr)
		}
	}
}

// ============================================
// Per-creator lock
// ============================================

func TestCreatorLocks_SecondAcquireFails(t *testing.T) {
	locks := NewCreatorLocks(nil)
	ctx := context.Background()
	creatorID := uuid.New()

	if err := locks.Acquire(ctx, creatorID); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	if err := locks.Acquire(ctx, creatorID); !errors.Is(err, ErrPayoutInFlight) {
		t.Fatalf("Second acquire should return ErrPayoutInFlight, got %v", err)
	}

	locks.Release(ctx, creatorID)
	if err := locks.Acquire(ctx, creatorID); err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
}

func TestCreatorLocks_IndependentCreators(t *testing.T) {
	locks := NewCreatorLocks(nil)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	if err := locks.Acquire(ctx, first); err != nil {
		t.Fatalf("Acquire for first creator failed: %v", err)
	}
	if err := locks.Acquire(ctx, second); err != nil {
		t.Fatalf("Lock for one creator should not block another: %v", err)
	}
}

// TestProperty_CreatorLocks_SingleHolder tests mutual exclusion under contention
// *For any* number of concurrent acquirers, exactly one SHALL hold the lock.
func TestProperty_CreatorLocks_SingleHolder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		locks := NewCreatorLocks(nil)
		ctx := context.Background()
		creatorID := uuid.New()
		contenders := rapid.IntRange(2, 16).Draw(rt, "contenders")

		var wg sync.WaitGroup
		var mu sync.Mutex
		acquired := 0

		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := locks.Acquire(ctx, creatorID); err == nil {
					mu.Lock()
					acquired++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if acquired != 1 {
			t.Fatalf("PROPERTY VIOLATION: %d of %d contenders acquired the lock, expected exactly 1",
				acquired, contenders)
		}
	})
}

// ============================================
// Failure classification
// ============================================

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{context.DeadlineExceeded, true},
		{fmt.Errorf("%w: status 503, body: down", ErrPayPalAPIError), true},
		{fmt.Errorf("dial tcp: connection refused"), true},
		{fmt.Errorf("%w: status 400, body: bad request", ErrCoinbaseAPIError), false},
		{errors.New("routing number must be exactly 9 digits"), false},
		{ErrConnectAccountMissing, false},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.retryable {
			t.Errorf("IsRetryable(%v) = %v, expected %v", c.err, got, c.retryable)
		}
	}
}

// ============================================
// Account request validation
// ============================================

func TestCreateAccountRequest_Validate(t *testing.T) {
	valid := []CreateAccountRequest{
		{
			Type:              models.AccountTypeBankTransfer,
			AccountNumber:     strPtr("00012345"),
			RoutingNumber:     strPtr("123456789"),
			BankName:          strPtr("Test Bank"),
			AccountHolderName: strPtr("Test Creator"),
		},
		{Type: models.AccountTypePayPal, PayPalEmail: strPtr("creator@example.com")},
		{Type: models.AccountTypeStripe},
		{
			Type:           models.AccountTypeCrypto,
			WalletAddress:  strPtr("0x" + strings.Repeat("ab12", 10)),
			CryptoCurrency: strPtr("ETH"),
			CryptoNetwork:  strPtr("mainnet"),
		},
	}
	for _, req := range valid {
		if err := req.validate(); err != nil {
			t.Errorf("validate() for %q account = %v, expected nil", req.Type, err)
		}
	}

	invalid := []CreateAccountRequest{
		{Type: models.AccountTypeBankTransfer, AccountNumber: strPtr("00012345")},
		{Type: models.AccountTypePayPal},
		{Type: models.AccountTypeCrypto, WalletAddress: strPtr("0x" + strings.Repeat("ab12", 10))},
		{Type: models.AccountType("venmo")},
	}
	for _, req := range invalid {
		if err := req.validate(); err == nil {
			t.Errorf("validate() for incomplete %q account should fail", req.Type)
		}
	}
}
