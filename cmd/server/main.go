package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campusconfessions/backend/internal/auth"
	"github.com/campusconfessions/backend/internal/billing"
	"github.com/campusconfessions/backend/internal/cache"
	"github.com/campusconfessions/backend/internal/config"
	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/email"
	"github.com/campusconfessions/backend/internal/handlers"
	"github.com/campusconfessions/backend/internal/jobs"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/metrics"
	"github.com/campusconfessions/backend/internal/middleware"
	"github.com/campusconfessions/backend/internal/moderation"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/websocket"
)

func main() {
	// A missing .env is fine, config falls back to the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Close()

	logger.InfoWithFields("Campus Confessions server starting",
		zap.String("environment", cfg.Environment))

	// Initialize database and run migrations
	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	// Prometheus metrics registry
	metrics.Initialize()

	// Redis is optional. Without it trending and ranking caches degrade
	// to direct queries.
	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.WarnWithFields("Redis unavailable, continuing without cache", err)
	} else {
		defer redisClient.Close()
	}

	// WebSocket hub
	jwtSecret := []byte(cfg.JWTSecret)
	hub := websocket.NewHub()
	go hub.Run()

	wsHandler := websocket.NewHandler(hub, jwtSecret)

	// Services
	filter := moderation.NewFilter()
	authService := auth.NewService(jwtSecret, cfg.TokenLifetime, filter)

	var mailer email.Sender
	if sesMailer, err := email.NewEmailService(cfg.AWSRegion, cfg.EmailFrom, "Campus Confessions", cfg.FrontendURL); err != nil {
		logger.WarnWithFields("Email disabled, SES client failed", err)
	} else {
		mailer = sesMailer
	}

	notifier := notify.NewService(hub, mailer)

	h := handlers.NewHandlers(authService, notifier, filter)
	h.SetWebSocketHandler(wsHandler, hub)
	h.SetMailer(mailer)

	if cfg.StripeSecretKey != "" {
		h.SetBillingService(billing.NewService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.FrontendURL))
	} else {
		logger.InfoWithFields("Stripe not configured, subscriptions disabled")
	}

	// Background maintenance jobs
	scheduler := jobs.NewScheduler()
	jobs.NewMaintenance(notifier, hub).RegisterAll(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	r := setupRouter(cfg, h, authService, wsHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.InfoWithFields("Listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoWithFields("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := hub.Shutdown(ctx); err != nil {
		logger.WarnWithFields("WebSocket shutdown incomplete", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.FatalWithFields("Server forced to shutdown", err)
	}

	logger.InfoWithFields("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handlers, authService *auth.Service, wsHandler *websocket.Handler) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	if !cfg.IsProduction() {
		corsConfig.AllowOrigins = []string{"*"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "campus-confessions-backend",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(authService)
	optionalAuth := middleware.OptionalAuth(authService)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimitDefault())
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", middleware.RateLimitAuth(), h.Register)
			authGroup.POST("/login", middleware.RateLimitAuth(), h.Login)
			authGroup.POST("/forgot-password", middleware.RateLimitAuth(), h.ForgotPassword)
			authGroup.POST("/reset-password", middleware.RateLimitAuth(), h.ResetPassword)

			authGroup.GET("/me", requireAuth, h.GetCurrentUser)
			authGroup.POST("/refresh", requireAuth, h.RefreshToken)
			authGroup.POST("/password", requireAuth, h.ChangePassword)
			authGroup.POST("/2fa/setup", requireAuth, h.SetupTwoFactor)
			authGroup.POST("/2fa/enable", requireAuth, h.EnableTwoFactor)
			authGroup.POST("/2fa/disable", requireAuth, h.DisableTwoFactor)
		}

		// Public surface: confession links work without an account
		api.GET("/links/:link", h.ResolveConfessionLink)
		api.POST("/confessions", optionalAuth, middleware.RateLimitPost(), h.CreateConfession)
		api.POST("/analytics/events", optionalAuth, h.TrackEvent)
		api.POST("/webhooks/stripe", h.StripeWebhook)

		confessions := api.Group("/confessions")
		{
			confessions.Use(requireAuth)
			confessions.GET("", h.ListConfessions)
			confessions.GET("/inbox", h.GetInbox)
			confessions.GET("/trending", h.GetTrending)
			confessions.GET("/:id", h.GetConfession)
			confessions.PUT("/:id", h.UpdateConfession)
			confessions.DELETE("/:id", h.DeleteConfession)
			confessions.POST("/:id/report", h.ReportConfession)

			confessions.POST("/:id/like", h.LikeConfession)
			confessions.DELETE("/:id/like", h.UnlikeConfession)
			confessions.POST("/:id/reactions", h.AddReaction)
			confessions.DELETE("/:id/reactions", h.RemoveReaction)

			confessions.POST("/:id/comments", middleware.RateLimitPost(), h.CreateComment)
			confessions.GET("/:id/comments", h.ListComments)
		}

		comments := api.Group("/comments")
		{
			comments.Use(requireAuth)
			comments.GET("/:id", h.GetComment)
			comments.PUT("/:id", h.UpdateComment)
			comments.DELETE("/:id", h.DeleteComment)
			comments.POST("/:id/like", h.LikeComment)
			comments.POST("/:id/report", h.ReportComment)
		}

		notifications := api.Group("/notifications")
		{
			notifications.Use(requireAuth)
			notifications.GET("", h.GetNotifications)
			notifications.GET("/unread-count", h.GetUnreadCount)
			notifications.PUT("/read-all", h.MarkAllNotificationsRead)
			notifications.PUT("/:id/read", h.MarkNotificationRead)
			notifications.DELETE("/:id", h.DeleteNotification)
			notifications.DELETE("", h.DeleteAllNotifications)
		}

		users := api.Group("/users")
		{
			users.Use(requireAuth)
			users.PUT("/me", h.UpdateProfile)
			users.PUT("/me/preferences", h.UpdatePreferences)
			users.GET("/me/stats", h.GetMyStats)
			users.GET("/me/activity", h.GetMyActivity)
			users.DELETE("/me", h.DeleteAccount)
			users.GET("/:id", h.GetUserProfile)
		}
		api.GET("/colleges", requireAuth, h.ListColleges)

		rankings := api.Group("/rankings")
		{
			rankings.Use(requireAuth)
			rankings.GET("", h.GetRankings)
			rankings.GET("/colleges", h.GetCollegeLeaderboard)
		}

		api.GET("/promotions", requireAuth, h.GetActivePromotions)

		premium := api.Group("/premium")
		{
			premium.Use(requireAuth)
			premium.GET("/features", h.GetPremiumFeatures)
			premium.PUT("/theme", h.UpdateTheme)
			premium.PUT("/vault", h.ToggleVault)
			premium.PUT("/vault/confessions/:id", h.VaultConfession)
			premium.DELETE("/vault/confessions/:id", h.UnvaultConfession)
			premium.POST("/boost", h.ActivateBoost)
		}

		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.Use(requireAuth)
			subscriptions.GET("/plans", h.GetPlans)
			subscriptions.POST("", h.Subscribe)
			subscriptions.DELETE("", h.Unsubscribe)
		}

		admin := api.Group("/admin")
		{
			admin.Use(requireAuth, middleware.RequireAdmin())
			admin.GET("/reports", h.GetReportedConfessions)
			admin.PUT("/reports/:id", h.ResolveReport)
			admin.GET("/users", h.GetCollegeUsers)
			admin.GET("/users/blocked", h.GetBlockedUsers)
			admin.PUT("/users/:id/block", h.BlockUser)
			admin.PUT("/users/:id/unblock", h.UnblockUser)
			admin.GET("/stats", h.GetCollegeStats)

			admin.POST("/promotions", h.CreatePromotion)
			admin.PUT("/promotions/:id", h.UpdatePromotion)
			admin.DELETE("/promotions/:id", h.DeletePromotion)

			admin.GET("/analytics/:report", h.GetAnalyticsDashboard)
			admin.GET("/analytics/:report/export", h.ExportAnalytics)
		}

		superadmin := api.Group("/superadmin")
		{
			superadmin.Use(requireAuth, middleware.RequireSuperAdmin())
			superadmin.GET("/users", h.SearchUsers)
			superadmin.PUT("/users/:id/tier", h.SetUserTier)
			superadmin.PUT("/users/:id/role", h.SetUserRole)
			superadmin.PUT("/reports/:id", h.OverrideReport)
			superadmin.POST("/announcements", h.AnnounceToCollege)
			superadmin.GET("/analytics", h.GetSystemAnalytics)
		}

		// WebSocket connection endpoint, auth via ?token= or header
		api.GET("/ws", wsHandler.HandleWebSocket)
		api.GET("/ws/metrics", requireAuth, middleware.RequireAdmin(), wsHandler.HandleMetrics)
		api.GET("/ws/online", requireAuth, wsHandler.HandleOnlineStatus)
	}

	return r
}
