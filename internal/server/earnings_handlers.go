package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/playmix/creatorpay/internal/earnings"
	apierrors "github.com/playmix/creatorpay/internal/errors"
	"github.com/playmix/creatorpay/internal/middleware"
)

// currentUserID extracts the authenticated creator's id from the context
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID parses a UUID path parameter
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apierrors.NewInvalidRequestError("Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads pagination query parameters
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

// handleCurrentEarnings returns the creator's unsettled earnings estimate
func (s *APIServer) handleCurrentEarnings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	current, err := s.earningsService.CalculateCurrentEarnings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, current)
}

// handleAvailableBalance returns the creator's spendable balance
func (s *APIServer) handleAvailableBalance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	balance, err := s.earningsService.GetAvailableBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available_balance": balance,
		"currency":          "USD",
	})
}

// handleListPeriods returns the creator's earnings periods
func (s *APIServer) handleListPeriods(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)

	periods, err := s.earningsService.ListPeriods(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, periods)
}

// handleGetPeriod returns one earnings period
func (s *APIServer) handleGetPeriod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	periodID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	period, err := s.earningsService.GetPeriod(c.Request.Context(), periodID)
	if err != nil {
		if errors.Is(err, earnings.ErrPeriodNotFound) {
			respondError(c, apierrors.ErrPeriodNotFoundError)
		} else {
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}
	if period.CreatorID != userID {
		respondError(c, apierrors.ErrPeriodNotFoundError)
		return
	}

	c.JSON(http.StatusOK, period)
}

// handleEarningsBreakdown returns the per-video earnings for a period
func (s *APIServer) handleEarningsBreakdown(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	periodID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	period, err := s.earningsService.GetPeriod(c.Request.Context(), periodID)
	if err != nil {
		if errors.Is(err, earnings.ErrPeriodNotFound) {
			respondError(c, apierrors.ErrPeriodNotFoundError)
		} else {
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}
	if period.CreatorID != userID {
		respondError(c, apierrors.ErrPeriodNotFoundError)
		return
	}

	breakdown, err := s.earningsService.GetEarningsBreakdown(c.Request.Context(), periodID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period_id": periodID,
		"breakdown": breakdown,
	})
}

// handleFinalizePeriod finalizes a pending period, unlocking its funds
func (s *APIServer) handleFinalizePeriod(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	periodID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	period, err := s.earningsService.GetPeriod(c.Request.Context(), periodID)
	if err != nil {
		if errors.Is(err, earnings.ErrPeriodNotFound) {
			respondError(c, apierrors.ErrPeriodNotFoundError)
		} else {
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}
	if period.CreatorID != userID {
		respondError(c, apierrors.ErrPeriodNotFoundError)
		return
	}

	finalized, err := s.earningsService.FinalizeEarningsPeriod(c.Request.Context(), periodID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}
	if !finalized {
		respondError(c, apierrors.ErrPeriodAlreadyFinalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period_id":    periodID,
		"status":       "finalized",
		"finalized_at": time.Now(),
	})
}

// handleCreatePeriod creates a period for an explicit creator and window
func (s *APIServer) handleCreatePeriod(c *gin.Context) {
	var req struct {
		CreatorID uuid.UUID `json:"creator_id" binding:"required"`
		StartDate time.Time `json:"start_date" binding:"required"`
		EndDate   time.Time `json:"end_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	period, err := s.earningsService.CreateEarningsPeriod(c.Request.Context(), req.CreatorID, req.StartDate, req.EndDate)
	if err != nil {
		switch {
		case errors.Is(err, earnings.ErrPeriodOverlap):
			respondError(c, apierrors.NewInvalidRequestError("Period overlaps an existing period"))
		case errors.Is(err, earnings.ErrInvalidWindow):
			respondError(c, apierrors.NewInvalidRequestError("Period end date must not precede start date"))
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	c.JSON(http.StatusCreated, period)
}
