package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playmix/creatorpay/internal/config"
	"github.com/playmix/creatorpay/internal/earnings"
	apierrors "github.com/playmix/creatorpay/internal/errors"
	"github.com/playmix/creatorpay/internal/logging"
	"github.com/playmix/creatorpay/internal/middleware"
	"github.com/playmix/creatorpay/internal/monitoring"
	"github.com/playmix/creatorpay/internal/payout"
	"github.com/playmix/creatorpay/internal/rates"
	"github.com/playmix/creatorpay/internal/scheduler"
)

// APIServer represents the main API server
type APIServer struct {
	config           *config.Config
	router           *gin.Engine
	db               *pgxpool.Pool
	ratesService     *rates.Service
	earningsService  *earnings.Service
	payoutService    *payout.Service
	scheduler        *scheduler.Scheduler
	jwtAuthenticator *middleware.JWTAuthenticator
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.Config, db *pgxpool.Pool, ratesService *rates.Service,
	earningsService *earnings.Service, payoutService *payout.Service, sched *scheduler.Scheduler) *APIServer {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware in order
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(logging.RequestLogger())

	srv := &APIServer{
		config:           cfg,
		router:           router,
		db:               db,
		ratesService:     ratesService,
		earningsService:  earningsService,
		payoutService:    payoutService,
		scheduler:        sched,
		jwtAuthenticator: middleware.NewJWTAuthenticator(&cfg.JWT),
	}

	srv.setupRoutes()
	return srv
}

// Router returns the gin router
func (s *APIServer) Router() http.Handler {
	return s.router
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		// Earnings routes (protected - requires creator role)
		earningsGroup := v1.Group("/earnings")
		earningsGroup.Use(s.jwtAuthenticator.JWTAuth())
		earningsGroup.Use(middleware.RequireCreator())
		{
			earningsGroup.GET("/current", s.handleCurrentEarnings)
			earningsGroup.GET("/balance", s.handleAvailableBalance)
			earningsGroup.GET("/periods", s.handleListPeriods)
			earningsGroup.GET("/periods/:id", s.handleGetPeriod)
			earningsGroup.GET("/periods/:id/breakdown", s.handleEarningsBreakdown)
			earningsGroup.POST("/periods/:id/finalize", s.handleFinalizePeriod)
		}

		// Payout routes (protected - requires creator role)
		payouts := v1.Group("/payouts")
		payouts.Use(s.jwtAuthenticator.JWTAuth())
		payouts.Use(middleware.RequireCreator())
		{
			payouts.GET("/accounts", s.handleListAccounts)
			payouts.POST("/accounts", s.handleCreateAccount)
			payouts.GET("/accounts/:id", s.handleGetAccount)
			payouts.PUT("/accounts/:id", s.handleUpdateAccount)
			payouts.DELETE("/accounts/:id", s.handleDeleteAccount)
			payouts.POST("/accounts/:id/verify", s.handleVerifyAccount)
			payouts.POST("/accounts/:id/default", s.handleSetDefaultAccount)

			payouts.POST("/request", s.handleRequestPayout)
			payouts.GET("/transactions", s.handleListTransactions)
			payouts.GET("/transactions/summary", s.handleTransactionSummary)
			payouts.GET("/transactions/:id", s.handleGetTransaction)

			payouts.GET("/settings", s.handleGetSettings)
			payouts.PUT("/settings", s.handleUpdateSettings)
		}

		// Rate routes (public read, admin write)
		ratesGroup := v1.Group("/rates")
		{
			ratesGroup.GET("/", s.handleCurrentRates)
		}

		// Admin routes (protected - requires admin role)
		admin := v1.Group("/admin")
		admin.Use(s.jwtAuthenticator.JWTAuth())
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/rates", s.handleListRates)
			admin.PUT("/rates", s.handleSetRate)
			admin.POST("/periods", s.handleCreatePeriod)
			admin.GET("/scheduler/status", s.handleSchedulerStatus)
			admin.POST("/scheduler/run", s.handleSchedulerRun)
		}
	}
}

// Health check handler
func (s *APIServer) healthCheck(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "api",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "api",
	})
}

// respondError sends a standardized error response
func respondError(c *gin.Context, err *apierrors.APIError) {
	requestID := c.GetString("request_id")
	c.JSON(err.HTTPStatus, apierrors.NewErrorResponse(err, requestID, c.Request.URL.Path, c.Request.Method))
}
