package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/playmix/creatorpay/internal/config"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/monitoring"
)

var (
	ErrPayPalAPIError      = errors.New("paypal API error")
	ErrPayPalNotConfigured = errors.New("paypal credentials are not configured")
)

// paypalSettler submits a single-item payout batch through the PayPal
// Payouts API. The transaction reference doubles as the batch id, which
// makes a retried settlement idempotent on PayPal's side.
type paypalSettler struct {
	config     *config.PayPalConfig
	httpClient *http.Client
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalPayoutRequest struct {
	SenderBatchHeader paypalBatchHeader  `json:"sender_batch_header"`
	Items             []paypalPayoutItem `json:"items"`
}

type paypalBatchHeader struct {
	SenderBatchID string `json:"sender_batch_id"`
	EmailSubject  string `json:"email_subject"`
}

type paypalPayoutItem struct {
	RecipientType string             `json:"recipient_type"`
	Amount        paypalPayoutAmount `json:"amount"`
	Receiver      string             `json:"receiver"`
	Note          string             `json:"note,omitempty"`
	SenderItemID  string             `json:"sender_item_id"`
}

type paypalPayoutAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type paypalPayoutResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

func (s *paypalSettler) Settle(ctx context.Context, tx *models.PayoutTransaction, acct *models.PayoutAccount) (*SettlementResult, error) {
	if isBlank(acct.PayPalEmail) {
		return nil, errors.New("paypal account has no email")
	}
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return nil, ErrPayPalNotConfigured
	}

	accessToken, err := s.fetchAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payoutReq := paypalPayoutRequest{
		SenderBatchHeader: paypalBatchHeader{
			SenderBatchID: tx.Reference,
			EmailSubject:  "You have a payout",
		},
		Items: []paypalPayoutItem{
			{
				RecipientType: "EMAIL",
				Amount: paypalPayoutAmount{
					Value:    tx.Amount.StringFixed(2),
					Currency: "USD",
				},
				Receiver:     *acct.PayPalEmail,
				Note:         tx.Description,
				SenderItemID: tx.ID.String(),
			},
		},
	}

	reqBody, err := json.Marshal(payoutReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/v1/payments/payouts", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	monitoring.ObserveProviderCall("paypal", "payout", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to send payout request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrPayPalAPIError, resp.StatusCode, string(body))
	}

	var payoutResp paypalPayoutResponse
	if err := json.Unmarshal(body, &payoutResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &SettlementResult{ExternalTxID: payoutResp.BatchHeader.PayoutBatchID}, nil
}

// fetchAccessToken obtains an OAuth token via the client-credentials grant
func (s *paypalSettler) fetchAccessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	monitoring.ObserveProviderCall("paypal", "oauth_token", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token status %d, body: %s", ErrPayPalAPIError, resp.StatusCode, string(body))
	}

	var tokenResp paypalTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrPayPalAPIError)
	}

	return tokenResp.AccessToken, nil
}
