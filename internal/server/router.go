package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pamojafund/payment-ledger/internal/server/handler"
	"github.com/pamojafund/payment-ledger/internal/server/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	contributionHandler *handler.ContributionHandler,
	callbackHandler *handler.CallbackHandler,
) {
	// CorrelationID must run before Logger so request logs carry the ID
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		contributions := v1.Group("/contributions")
		{
			contributions.POST("", contributionHandler.Create)
			contributions.POST("/status", contributionHandler.BulkUpdateStatus)
			contributions.GET("/:id", contributionHandler.GetByID)
			contributions.GET("/:id/transactions", contributionHandler.ListTransactions)
			contributions.GET("/:id/audit", contributionHandler.ListAudit)
			contributions.POST("/:id/payments", contributionHandler.ProcessPayment)
			contributions.POST("/:id/payments/reconcile", contributionHandler.Reconcile)
			contributions.POST("/:id/refunds", contributionHandler.ProcessRefund)
			contributions.PATCH("/:id/status", contributionHandler.UpdateStatus)
		}

		// Admin operations
		v1.POST("/admin/contributions", contributionHandler.AdminCreate)
	}

	// Gateway callback endpoints; these always acknowledge
	callbacks := r.Group("/callbacks")
	{
		callbacks.POST("/payment", callbackHandler.PaymentResult)
		callbacks.POST("/reversal", callbackHandler.ReversalResult)
		callbacks.POST("/reversal/timeout", callbackHandler.ReversalTimeout)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
