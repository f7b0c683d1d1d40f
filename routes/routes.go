// File: /routes/routes.go
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"spotrunner-api/cache"
	"spotrunner-api/config"
	"spotrunner-api/controllers"
	"spotrunner-api/middleware"
	"spotrunner-api/services"
)

// Dependencies are the shared clients the routes are built from. Redis and
// Notifier may be nil. Without a Limiter the routes get one whose janitor is
// never started.
type Dependencies struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Notifier services.Notifier
	Limiter  *middleware.RateLimiter
}

func SetupRoutes(r *gin.Engine, cfg *config.Config, deps Dependencies) {
	db := deps.DB
	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.AuthRateLimit, 10)
	}

	var eventCache *cache.EventCache
	if deps.Redis != nil {
		eventCache = cache.NewEventCache(deps.Redis, cfg.EventCacheTTL)
	}
	now := func() time.Time { return time.Now().In(cfg.Timezone) }

	// Services
	eventService := services.NewEventService(db)
	eventService.Now = now
	attendanceService := services.NewAttendanceService(db, deps.Notifier)
	attendanceService.Now = now
	accountService := services.NewAccountService(db)
	profileService := services.NewProfileService(db)
	profileService.Now = now
	reviewService := services.NewReviewService(db)
	merchandiseService := services.NewMerchandiseService(db)
	redemptionService := services.NewRedemptionService(db, deps.Notifier)
	if eventCache != nil {
		eventService.Cache = eventCache
		attendanceService.Cache = eventCache
		accountService.Cache = eventCache
	}

	// Controllers
	authController := controllers.NewAuthController(accountService, cfg.JWTSecret, cfg.JWTTTL)
	userController := controllers.NewUserController(profileService)
	eventController := controllers.NewEventController(eventService, attendanceService, reviewService)
	reviewController := controllers.NewReviewController(reviewService)
	merchandiseController := controllers.NewMerchandiseController(merchandiseService, redemptionService)

	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "healthy", "database": "up"}
		code := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status["status"] = "unhealthy"
			status["database"] = "down"
			code = http.StatusServiceUnavailable
		}
		if deps.Redis != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cache.HealthCheck(ctx, deps.Redis); err != nil {
				status["redis"] = "down"
			} else {
				status["redis"] = "up"
			}
		}
		c.JSON(code, status)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1
	v1 := r.Group("/api/v1")
	authRequired := middleware.AuthMiddleware(cfg.JWTSecret, db)

	// Auth routes
	auth := v1.Group("/auth")
	auth.Use(limiter.Middleware("auth"))
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/logout", authRequired, authController.Logout)
		auth.DELETE("/account", authRequired, authController.DeleteAccount)
	}

	// Public catalog
	v1.GET("/events", eventController.GetEvents)
	v1.GET("/events/:id", eventController.GetEvent)
	v1.GET("/events/:id/reviews", eventController.GetEventReviews)
	v1.GET("/organizers/:id", userController.GetOrganizer)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret, db)
	v1.GET("/merchandise", optionalAuth, merchandiseController.GetMerchandise)
	v1.GET("/merchandise/:id", optionalAuth, merchandiseController.GetMerchandiseItem)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(authRequired)
	{
		events := protected.Group("/events")
		{
			events.POST("", eventController.CreateEvent)
			events.PUT("/:id", eventController.UpdateEvent)
			events.DELETE("/:id", eventController.DeleteEvent)
			events.POST("/:id/cancel", eventController.CancelEvent)
			events.POST("/:id/complete", eventController.CompleteEvent)
			events.GET("/:id/participants", eventController.GetParticipants)
		}

		runners := protected.Group("/runners/:username")
		{
			runners.GET("", userController.GetRunnerProfile)
			runners.PUT("", userController.UpdateRunnerProfile)
			runners.POST("/events/:id/participate", eventController.Participate)
			runners.POST("/events/:id/cancel", eventController.CancelAttendance)
		}

		organizer := protected.Group("/organizer")
		{
			organizer.GET("/dashboard", userController.OrganizerDashboard)
			organizer.PUT("/profile", userController.UpdateOrganizerProfile)
		}

		reviews := protected.Group("/reviews")
		{
			reviews.POST("", reviewController.CreateReview)
			reviews.PUT("/:id", reviewController.UpdateReview)
			reviews.DELETE("/:id", reviewController.DeleteReview)
		}

		merchandise := protected.Group("/merchandise")
		{
			merchandise.GET("/history", merchandiseController.History)
			merchandise.POST("", merchandiseController.CreateMerchandise)
			merchandise.PUT("/:id", merchandiseController.UpdateMerchandise)
			merchandise.DELETE("/:id", merchandiseController.DeleteMerchandise)
			merchandise.POST("/:id/redeem", limiter.Middleware("redeem"), merchandiseController.Redeem)
		}
	}
}

// SetupCORS allows browser clients on any origin to call the API with a
// bearer token.
func SetupCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
