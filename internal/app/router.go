package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"bookpay/internal/handler"
	"bookpay/internal/middleware"
)

// webhookPath is exempt from the client idempotency middleware; webhook
// idempotency is enforced by the reconciler on the payment reference.
const webhookPath = "/v1/payments/webhook"

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler      *handler.BookingHandler
	WebhookHandler      *handler.WebhookHandler
	VerificationHandler *handler.VerificationHandler
	RedisClient         *redis.Client
	NewRelicApp         *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient, webhookPath))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Booking routes.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.CreateBooking)
			bookings.GET("", deps.BookingHandler.GetAll)
			bookings.GET("/:id", deps.BookingHandler.GetBooking)
			bookings.GET("/:id/events", deps.BookingHandler.GetPaymentTrail)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("/webhook", deps.WebhookHandler.ReceiveProviderWebhook)
			payments.POST("/verify", deps.VerificationHandler.VerifyPayment)
		}
	}

	return router
}
