package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/playmix/creatorpay/internal/config"
	"github.com/playmix/creatorpay/internal/logging"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/monitoring"
)

var (
	ErrCoinbaseAPIError    = errors.New("coinbase API error")
	ErrExchangeRateError   = errors.New("exchange rate lookup failed")
	ErrExchangeRateInvalid = errors.New("exchange rate is zero or negative")
)

// cryptoSettler converts the USD amount at the live exchange rate and
// records a Coinbase Commerce charge carrying the transaction id. The
// on-chain transfer itself happens outside this flow and is treated as
// externally completed.
type cryptoSettler struct {
	coinbase     *config.CoinbaseConfig
	exchangeRate *config.ExchangeRateConfig
	httpClient   *http.Client
}

type coinbaseChargeRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	PricingType string             `json:"pricing_type"`
	LocalPrice  coinbaseLocalPrice `json:"local_price"`
	Metadata    map[string]string  `json:"metadata"`
}

type coinbaseLocalPrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type coinbaseChargeResponse struct {
	Data struct {
		ID        string `json:"id"`
		Code      string `json:"code"`
		HostedURL string `json:"hosted_url"`
		ExpiresAt string `json:"expires_at"`
	} `json:"data"`
}

type spotPriceResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Base     string `json:"base"`
		Currency string `json:"currency"`
	} `json:"data"`
}

func (s *cryptoSettler) Settle(ctx context.Context, tx *models.PayoutTransaction, acct *models.PayoutAccount) (*SettlementResult, error) {
	if isBlank(acct.WalletAddress) || isBlank(acct.CryptoCurrency) {
		return nil, errors.New("crypto account has no wallet address or currency")
	}
	currency := strings.ToUpper(*acct.CryptoCurrency)

	rate, err := s.fetchSpotPrice(ctx, currency)
	if err != nil {
		return nil, err
	}

	cryptoAmount := tx.Amount.DivRound(rate, 8)

	charge, err := s.createCharge(ctx, tx, currency)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger("payout")
	logger.Info().
		Str("transaction_id", tx.ID.String()).
		Str("wallet_address", *acct.WalletAddress).
		Str("currency", currency).
		Str("amount_usd", tx.Amount.StringFixed(2)).
		Str("amount_crypto", cryptoAmount.String()).
		Str("charge_id", charge.Data.ID).
		Msg("Crypto payout charge recorded, on-chain transfer handled externally")

	return &SettlementResult{ExternalTxID: charge.Data.ID}, nil
}

// fetchSpotPrice returns the USD price of one unit of the currency
func (s *cryptoSettler) fetchSpotPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	spotURL := fmt.Sprintf("%s/%s-USD/spot", s.exchangeRate.BaseURL, currency)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, spotURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	monitoring.ObserveProviderCall("exchange_rate", "spot_price", start, err)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrExchangeRateError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: status %d, body: %s", ErrExchangeRateError, resp.StatusCode, string(body))
	}

	var spot spotPriceResponse
	if err := json.Unmarshal(body, &spot); err != nil {
		return decimal.Zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	rate, err := decimal.NewFromString(spot.Data.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad amount %q", ErrExchangeRateError, spot.Data.Amount)
	}
	if !rate.IsPositive() {
		return decimal.Zero, ErrExchangeRateInvalid
	}

	return rate, nil
}

// createCharge records the payout as a Coinbase Commerce charge
func (s *cryptoSettler) createCharge(ctx context.Context, tx *models.PayoutTransaction, currency string) (*coinbaseChargeResponse, error) {
	chargeReq := coinbaseChargeRequest{
		Name:        "Creator payout",
		Description: tx.Description,
		PricingType: "fixed_price",
		LocalPrice: coinbaseLocalPrice{
			Amount:   tx.Amount.StringFixed(2),
			Currency: "USD",
		},
		Metadata: map[string]string{
			"transaction_id":  tx.ID.String(),
			"reference":       tx.Reference,
			"target_currency": currency,
		},
	}

	reqBody, err := json.Marshal(chargeReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.coinbase.BaseURL+"/charges", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-CC-Api-Key", s.coinbase.APIKey)
	httpReq.Header.Set("X-CC-Version", "2018-03-22")

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	monitoring.ObserveProviderCall("coinbase", "charge_create", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrCoinbaseAPIError, resp.StatusCode, string(body))
	}

	var chargeResp coinbaseChargeResponse
	if err := json.Unmarshal(body, &chargeResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &chargeResp, nil
}
