package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apierrors "github.com/playmix/creatorpay/internal/errors"
	"github.com/playmix/creatorpay/internal/models"
	"github.com/playmix/creatorpay/internal/rates"
)

// handleCurrentRates returns the active rate snapshot
func (s *APIServer) handleCurrentRates(c *gin.Context) {
	snapshot, err := s.ratesService.CurrentRates(c.Request.Context())
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rates": snapshot})
}

// handleListRates returns the full rate history
func (s *APIServer) handleListRates(c *gin.Context) {
	rateRows, err := s.ratesService.ListRates(c.Request.Context())
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rates": rateRows})
}

// handleSetRate activates a new rate for one type
func (s *APIServer) handleSetRate(c *gin.Context) {
	var req struct {
		RateType models.RateType `json:"rate_type" binding:"required"`
		Rate     decimal.Decimal `json:"rate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	rate, err := s.ratesService.SetRate(c.Request.Context(), req.RateType, req.Rate)
	if err != nil {
		switch {
		case errors.Is(err, rates.ErrUnknownRateType):
			respondError(c, apierrors.NewInvalidRequestError("Unknown rate type"))
		case errors.Is(err, rates.ErrInvalidRate):
			respondError(c, apierrors.NewValidationError("Rate must not be negative"))
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, rate)
}

// handleSchedulerStatus returns the payout scheduler state
func (s *APIServer) handleSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.scheduler.GetStatus())
}

// handleSchedulerRun forces an immediate scheduler pass
func (s *APIServer) handleSchedulerRun(c *gin.Context) {
	result, err := s.scheduler.RunNow(c.Request.Context())
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, result)
}
