package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"medride/internal/auth"
	"medride/internal/domain"
	"medride/internal/events"
	"medride/internal/handler"
	"medride/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	AppointmentHandler  *handler.AppointmentHandler
	RideHandler         *handler.RideHandler
	NotificationHandler *handler.NotificationHandler
	EarningHandler      *handler.EarningHandler
	EventsHandler       *handler.EventsHandler

	Verifier       *auth.Verifier
	Profiles       middleware.ActorResolver
	Bus            *events.Bus
	AllowedOrigins []string
	Logger         *logrus.Logger
	RedisClient    *redis.Client // Optional; disables idempotency when nil
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if deps.Bus != nil {
			body["subscribers"] = deps.Bus.Subscribers()
		}
		c.JSON(http.StatusOK, body)
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.Verifier, deps.Profiles, deps.Logger))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	{
		// Appointment routes.
		appointments := v1.Group("/appointments")
		{
			appointments.POST("", deps.AppointmentHandler.Book)
			appointments.GET("", deps.AppointmentHandler.List)
			appointments.GET("/available", deps.AppointmentHandler.ListAvailable)
			appointments.GET("/:id", deps.AppointmentHandler.Get)
			appointments.POST("/:id/quote", deps.AppointmentHandler.Quote)
			appointments.POST("/:id/accept", deps.AppointmentHandler.Accept)
			appointments.POST("/:id/cancel", deps.AppointmentHandler.Cancel)
			appointments.GET("/:id/invoice", deps.AppointmentHandler.Invoice)
		}

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.GET("", deps.RideHandler.List)
			rides.GET("/:id", deps.RideHandler.Get)
			rides.GET("/:id/timeline", deps.RideHandler.Timeline)
			rides.GET("/:id/stage", deps.RideHandler.Stage)
			rides.POST("/:id/advance", deps.RideHandler.Advance)
			rides.POST("/:id/complete", deps.RideHandler.Complete)
			rides.POST("/:id/cancel", deps.RideHandler.Cancel)
		}

		// Notification routes.
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", deps.NotificationHandler.List)
			notifications.POST("/:id/read", deps.NotificationHandler.MarkRead)
		}

		v1.GET("/earnings", deps.EarningHandler.List)
		v1.GET("/events", deps.EventsHandler.Stream)

		// Admin routes.
		admin := v1.Group("/admin", middleware.RequireRole(string(domain.RoleAdmin)))
		{
			admin.POST("/notifications", deps.NotificationHandler.Send)
			admin.DELETE("/appointments/:id", deps.AppointmentHandler.Delete)
		}
	}

	return router
}
