// api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"livewave/api/aggregator"
	"livewave/api/config"
	"livewave/api/database"
	"livewave/api/eventsearch"
	"livewave/api/handlers"
	"livewave/api/metrics"
	"livewave/api/middleware"
	"livewave/api/search"
	"livewave/api/store"
	"livewave/api/utils"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- PostgreSQL (users, artists, events, calendars) ---
	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSchema()
	if err := dbClient.EnsureSchema(schemaCtx); err != nil {
		log.Fatalf("Failed to prepare PostgreSQL schema: %v", err)
	}

	// --- ClickHouse (search analytics), optional ---
	var (
		recorder handlers.SearchRecorder = store.NopRecorder{}
		stats    *handlers.StatsHandlers
	)
	if cfg.ClickHouse.Enabled() {
		chClient, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse database: %v", err)
		}
		defer chClient.Close()
		if err := chClient.EnsureSchema(schemaCtx); err != nil {
			log.Fatalf("Failed to prepare ClickHouse schema: %v", err)
		}
		analyticsStore := store.NewAnalyticsStore(chClient)
		recorder = analyticsStore
		stats = handlers.NewStatsHandlers(analyticsStore)
	} else {
		log.Println("ClickHouse not configured; search analytics disabled.")
	}

	// --- Search pipeline ---
	eventsClient := eventsearch.NewClient(cfg.EventsAPI.BaseURL, cfg.EventsAPI.APIKey, cfg.EventsAPI.Timeout)
	aggMetrics := metrics.NewAggregation()
	agg := aggregator.New(eventsClient, cfg.Aggregation, aggregator.WithObserver(aggMetrics))
	log.Printf("Aggregation policy: maxPages=%d pageSize=%d delay=%s backoff=%s retries=%d",
		cfg.Aggregation.MaxPages, cfg.Aggregation.PageSize, cfg.Aggregation.InterRequestDelay,
		cfg.Aggregation.RateLimitBackoff, cfg.Aggregation.MaxRetriesPerPage)

	sessions := search.NewManager()
	evictCtx, stopEvictor := context.WithCancel(context.Background())
	defer stopEvictor()
	go sessions.RunEvictor(evictCtx, time.Minute, cfg.SearchSessionTTL)

	// --- Handlers ---
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	authHandlers := handlers.NewAuthHandlers(store.NewUserStore(dbClient.DB), tokens, handlers.LogResetSender{}, cfg.ResetPasswordURL)
	searchHandlers := handlers.NewSearchHandlers(agg, sessions, eventsClient, recorder)
	calendarHandlers := handlers.NewCalendarHandlers(store.NewCalendarStore(dbClient.DB))

	r := gin.Default()

	r.Use(middleware.CORSMiddleware(cfg.FrontendOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(aggMetrics.Handler()))

	api := r.Group("/api")
	{
		// Authentication Endpoints (no authentication required)
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)
		api.POST("/password/forgot", authHandlers.ForgotPassword)
		api.POST("/password/reset", authHandlers.ResetPassword)

		// Protected Routes (require a valid JWT token)
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(tokens, cfg.ServiceKey))
		{
			protected.GET("/profile", authHandlers.Profile)

			protected.GET("/suggest", searchHandlers.Suggest)
			protected.GET("/events", searchHandlers.Events)
			protected.POST("/search", searchHandlers.StartSearch)
			protected.GET("/search", searchHandlers.GetSearch)
			protected.PUT("/search/filter", searchHandlers.UpdateFilter)
			protected.DELETE("/search", searchHandlers.ClearSearch)

			protected.POST("/calendar", calendarHandlers.SaveEvent)
			protected.GET("/calendar", calendarHandlers.ListCalendar)
			protected.DELETE("/calendar/:eventId", calendarHandlers.RemoveEvent)

			statsGroup := protected.Group("/stats")
			if stats != nil {
				statsGroup.GET("/search-counts", stats.GetSearchCounts)
				statsGroup.GET("/top-artists", stats.GetTopArtists)
				statsGroup.GET("/incomplete-rate", stats.GetIncompleteRate)
			} else {
				statsGroup.GET("/*any", func(c *gin.Context) {
					c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search analytics are not configured"})
				})
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Go API server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Go API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
