package payout

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/playmix/creatorpay/internal/models"
)

func strPtr(s string) *string { return &s }

func bankAccount(routing, number string) *models.PayoutAccount {
	return &models.PayoutAccount{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Type:              models.AccountTypeBankTransfer,
		Status:            models.AccountStatusPending,
		AccountNumber:     strPtr(number),
		RoutingNumber:     strPtr(routing),
		BankName:          strPtr("Test Bank"),
		AccountHolderName: strPtr("Test Creator"),
	}
}

func cryptoAccount(address, currency string) *models.PayoutAccount {
	return &models.PayoutAccount{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		Type:           models.AccountTypeCrypto,
		Status:         models.AccountStatusPending,
		WalletAddress:  strPtr(address),
		CryptoCurrency: strPtr(currency),
		CryptoNetwork:  strPtr("mainnet"),
	}
}

// ============================================
// Bank account verification
// ============================================

func TestBankVerifier_ValidDetails(t *testing.T) {
	v := &bankVerifier{}

	result, err := v.Verify(context.Background(), bankAccount("123456789", "00012345"))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Status != models.AccountStatusVerified {
		t.Fatalf("Valid bank details should verify, got status %q (reason %q)", result.Status, result.Reason)
	}
}

func TestBankVerifier_ShortRoutingNumber(t *testing.T) {
	v := &bankVerifier{}

	result, err := v.Verify(context.Background(), bankAccount("12345", "00012345"))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Status != models.AccountStatusRejected {
		t.Fatalf("5-digit routing number should reject, got status %q", result.Status)
	}
	if !strings.Contains(result.Reason, "routing number") {
		t.Errorf("Rejection reason should name the routing number, got %q", result.Reason)
	}
}

func TestBankVerifier_MissingFields(t *testing.T) {
	v := &bankVerifier{}

	account := bankAccount("123456789", "00012345")
	account.BankName = nil

	result, err := v.Verify(context.Background(), account)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Status != models.AccountStatusRejected {
		t.Fatalf("Missing bank name should reject, got status %q", result.Status)
	}
}

// TestProperty_BankVerifier_RoutingLength tests the 9-digit rule
// *For any* numeric routing number, verification SHALL pass iff it has exactly 9 digits.
func TestProperty_BankVerifier_RoutingLength(t *testing.T) {
	v := &bankVerifier{}

	rapid.Check(t, func(rt *rapid.T) {
		length := rapid.IntRange(1, 15).Draw(rt, "routingLength")
		routing := ""
		for i := 0; i < length; i++ {
			routing += string(rune('0' + rapid.IntRange(0, 9).Draw(rt, "digit")))
		}

		result, err := v.Verify(context.Background(), bankAccount(routing, "00012345"))
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}

		expectVerified := length == 9
		gotVerified := result.Status == models.AccountStatusVerified
		if expectVerified != gotVerified {
			t.Fatalf("PROPERTY VIOLATION: Routing number with %d digits got status %q", length, result.Status)
		}
	})
}

// TestProperty_BankVerifier_AccountNumberLength tests the 4-17 digit rule
// *For any* numeric account number, verification SHALL pass iff it has 4 to 17 digits.
func TestProperty_BankVerifier_AccountNumberLength(t *testing.T) {
	v := &bankVerifier{}

	rapid.Check(t, func(rt *rapid.T) {
		length := rapid.IntRange(1, 25).Draw(rt, "accountLength")
		number := ""
		for i := 0; i < length; i++ {
			number += string(rune('0' + rapid.IntRange(0, 9).Draw(rt, "digit")))
		}

		result, err := v.Verify(context.Background(), bankAccount("123456789", number))
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}

		expectVerified := length >= 4 && length <= 17
		gotVerified := result.Status == models.AccountStatusVerified
		if expectVerified != gotVerified {
			t.Fatalf("PROPERTY VIOLATION: Account number with %d digits got status %q", length, result.Status)
		}
	})
}

// ============================================
// Crypto wallet verification
// ============================================

func TestCryptoVerifier_ETHAddress(t *testing.T) {
	v := &cryptoVerifier{}

	result, err := v.Verify(context.Background(),
		cryptoAccount("0x"+strings.Repeat("ab12", 10), "ETH"))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Status != models.AccountStatusVerified {
		t.Fatalf("Valid ETH address should verify, got status %q (reason %q)", result.Status, result.Reason)
	}
}

func TestCryptoVerifier_InvalidAddress(t *testing.T) {
	v := &cryptoVerifier{}

	result, err := v.Verify(context.Background(), cryptoAccount("not-an-address", "ETH"))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Status != models.AccountStatusRejected {
		t.Fatalf("Malformed address should reject, got status %q", result.Status)
	}
}

func TestCryptoVerifier_MissingNetwork(t *testing.T) {
	v := &cryptoVerifier{}

	account := cryptoAccount("0x"+strings.Repeat("ab12", 10), "ETH")
	account.CryptoNetwork = nil

	result, err := v.Verify(context.Background(), account)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Status != models.AccountStatusRejected {
		t.Fatalf("Missing network should reject, got status %q", result.Status)
	}
}

func TestValidateWalletAddress(t *testing.T) {
	cases := []struct {
		address  string
		currency string
		valid    bool
	}{
		{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "BTC", true},
		{"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", "BTC", true},
		{"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", "BTC", true},
		{"0A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "BTC", false},
		{"0x" + strings.Repeat("a1b2", 10), "ETH", true},
		{"0x" + strings.Repeat("a1b2", 10), "USDC", true},
		{"0x" + strings.Repeat("a1b2", 10), "USDT", true},
		{"0x" + strings.Repeat("a1b2", 9), "ETH", false},
		{"0x" + strings.Repeat("z1z2", 10), "ETH", false},
		{strings.Repeat("x", 26), "SOL", true},
		{strings.Repeat("x", 25), "SOL", false},
	}
	for _, c := range cases {
		if got := ValidateWalletAddress(c.address, c.currency); got != c.valid {
			t.Errorf("ValidateWalletAddress(%q, %q) = %v, expected %v", c.address, c.currency, got, c.valid)
		}
	}
}

// ============================================
// PayPal email verification
// ============================================

func TestPayPalVerifier_ValidEmail(t *testing.T) {
	v := &paypalVerifier{}

	account := &models.PayoutAccount{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Type:        models.AccountTypePayPal,
		Status:      models.AccountStatusPending,
		PayPalEmail: strPtr("creator@example.com"),
	}

	result, err := v.Verify(context.Background(), account)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Status != models.AccountStatusVerified {
		t.Fatalf("Valid email should verify, got status %q (reason %q)", result.Status, result.Reason)
	}
}

func TestPayPalVerifier_InvalidEmail(t *testing.T) {
	v := &paypalVerifier{}

	for _, email := range []string{"not-an-email", "missing@tld", "@example.com", "a b@example.com"} {
		account := &models.PayoutAccount{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			Type:        models.AccountTypePayPal,
			Status:      models.AccountStatusPending,
			PayPalEmail: strPtr(email),
		}

		result, err := v.Verify(context.Background(), account)
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}
		if result.Status != models.AccountStatusRejected {
			t.Errorf("Email %q should reject, got status %q", email, result.Status)
		}
	}
}
