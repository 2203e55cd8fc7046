package logging

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/playmix/creatorpay/internal/config"
)

// Setup initializes the global logger based on configuration
func Setup(cfg *config.LoggingConfig, env string) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure time format
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Configure output based on format and environment
	var output io.Writer
	if cfg.Format == "json" || env == "production" {
		output = os.Stdout
	} else {
		// Pretty console output for development
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	// Set global logger
	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "creatorpay").
		Logger()
}

// NewLogger creates a new logger with additional context
func NewLogger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// RequestLogger is a Gin middleware for structured request logging
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Calculate latency
		latency := time.Since(start)

		// Get request ID
		requestID := c.GetString("request_id")

		// Build log event
		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		} else if c.Writer.Status() >= 400 {
			event = log.Warn()
		}

		// Log request details
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", raw).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Msg("HTTP request")
	}
}

// LogPayout logs a payout transaction event
func LogPayout(transactionID, creatorID, provider, status, amount string) {
	event := log.Info()
	if status == "failed" {
		event = log.Error()
	}

	event.
		Str("transaction_id", transactionID).
		Str("creator_id", creatorID).
		Str("provider", provider).
		Str("status", status).
		Str("amount_usd", amount).
		Msg("Payout event")
}

// LogPeriod logs an earnings period event
func LogPeriod(periodID, creatorID, action, total string) {
	log.Info().
		Str("period_id", periodID).
		Str("creator_id", creatorID).
		Str("action", action).
		Str("total_amount", total).
		Msg("Earnings period event")
}

// LogVerification logs a payout account verification attempt
func LogVerification(accountID, creatorID, accountType, status, reason string) {
	event := log.Info()
	if status == "rejected" {
		event = log.Warn()
	}

	event.
		Str("account_id", accountID).
		Str("creator_id", creatorID).
		Str("account_type", accountType).
		Str("status", status).
		Str("reason", reason).
		Msg("Account verification")
}

// LogError logs an error with context
func LogError(err error, requestID, component, operation string) {
	log.Error().
		Err(err).
		Str("request_id", requestID).
		Str("component", component).
		Str("operation", operation).
		Msg("Error occurred")
}
