package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/playmix/creatorpay/internal/errors"
	"github.com/playmix/creatorpay/internal/payout"
)

// handleListAccounts returns the creator's payout accounts
func (s *APIServer) handleListAccounts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	accounts, err := s.payoutService.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// handleCreateAccount registers a new payout destination
func (s *APIServer) handleCreateAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req payout.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	account, err := s.payoutService.CreateAccount(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrMissingFields):
			respondError(c, apierrors.NewValidationError("Missing required account fields"))
		case errors.Is(err, payout.ErrUnknownAccountType):
			respondError(c, apierrors.NewInvalidRequestError("Unknown payout account type"))
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, account)
}

// handleGetAccount returns one payout account
func (s *APIServer) handleGetAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	account, err := s.payoutService.GetAccount(c.Request.Context(), accountID, userID)
	if err != nil {
		respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// handleUpdateAccount updates rail details, resetting verification
func (s *APIServer) handleUpdateAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req payout.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	account, err := s.payoutService.UpdateAccount(c.Request.Context(), accountID, userID, &req)
	if err != nil {
		respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// handleDeleteAccount removes a payout destination
func (s *APIServer) handleDeleteAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := s.payoutService.DeleteAccount(c.Request.Context(), accountID, userID); err != nil {
		respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

// handleVerifyAccount runs rail verification for an account
func (s *APIServer) handleVerifyAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	result, err := s.payoutService.VerifyAccount(c.Request.Context(), accountID, userID)
	if err != nil {
		respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleSetDefaultAccount marks an account as the automatic payout target
func (s *APIServer) handleSetDefaultAccount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	accountID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := s.payoutService.SetDefaultAccount(c.Request.Context(), accountID, userID); err != nil {
		respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default account updated"})
}

// handleRequestPayout creates and processes a payout transaction.
// Settlement failures return the failed transaction along with the
// provider's reason so the dashboard can show both.
func (s *APIServer) handleRequestPayout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req payout.RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	tx, err := s.payoutService.RequestPayout(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrInvalidAmount):
			respondError(c, apierrors.NewInvalidRequestError("Payout amount must be positive"))
		case errors.Is(err, payout.ErrInsufficientBalance):
			respondError(c, apierrors.ErrInsufficientBalanceError)
		case errors.Is(err, payout.ErrAccountNotVerified):
			respondError(c, apierrors.ErrAccountNotVerifiedError)
		case errors.Is(err, payout.ErrPayoutInFlight):
			respondError(c, apierrors.ErrPayoutInFlightError)
		case errors.Is(err, payout.ErrAccountNotFound), errors.Is(err, payout.ErrAccountNotOwned):
			respondError(c, apierrors.ErrAccountNotFoundError)
		default:
			if tx != nil {
				c.JSON(http.StatusBadGateway, gin.H{
					"transaction": tx,
					"error":       err.Error(),
				})
				return
			}
			respondError(c, apierrors.NewProviderError(err.Error()))
		}
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// handleListTransactions returns the creator's payout history
func (s *APIServer) handleListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	transactions, err := s.payoutService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// handleTransactionSummary returns status rollups for the creator
func (s *APIServer) handleTransactionSummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := s.payoutService.GetTransactionSummary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleGetTransaction returns one payout transaction
func (s *APIServer) handleGetTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	transactionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	tx, err := s.payoutService.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, payout.ErrTransactionNotFound) {
			respondError(c, apierrors.ErrTransactionNotFoundError)
		} else {
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}
	if tx.UserID != userID {
		respondError(c, apierrors.ErrTransactionNotFoundError)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// handleGetSettings returns the creator's payout preferences
func (s *APIServer) handleGetSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	settings, err := s.payoutService.GetPayoutSettings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// handleUpdateSettings updates the creator's payout preferences
func (s *APIServer) handleUpdateSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req payout.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	settings, err := s.payoutService.UpdatePayoutSettings(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrInvalidFrequency):
			respondError(c, apierrors.NewValidationError("Unknown payout frequency"))
		case errors.Is(err, payout.ErrInvalidPayoutDay):
			respondError(c, apierrors.NewValidationError("Payout day is out of range for the chosen frequency"))
		case errors.Is(err, payout.ErrInvalidAmount):
			respondError(c, apierrors.NewValidationError("Minimum payout must not be negative"))
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, settings)
}

// respondAccountError maps account service errors to API errors
func respondAccountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payout.ErrAccountNotFound):
		respondError(c, apierrors.ErrAccountNotFoundError)
	case errors.Is(err, payout.ErrAccountNotOwned):
		respondError(c, apierrors.ErrAccountNotFoundError)
	case errors.Is(err, payout.ErrUnknownAccountType):
		respondError(c, apierrors.NewInvalidRequestError("Unknown payout account type"))
	default:
		respondError(c, apierrors.ErrInternalServerError)
	}
}
