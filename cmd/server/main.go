package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/croswell/taskmaster-api/internal/auth"
	"github.com/croswell/taskmaster-api/internal/config"
	"github.com/croswell/taskmaster-api/internal/database"
	"github.com/croswell/taskmaster-api/internal/handlers"
	"github.com/croswell/taskmaster-api/internal/middleware"
	"github.com/croswell/taskmaster-api/internal/repository"
	"github.com/croswell/taskmaster-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Structured logging
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.GinMode == "debug" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	gin.SetMode(cfg.GinMode)

	// Connect to database and run migrations
	if err := database.Connect(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Token codec is built once from immutable configuration
	codec, err := auth.NewTokenCodec(
		cfg.SecretKey,
		cfg.Algorithm,
		time.Duration(cfg.AccessTokenExpireMinutes)*time.Minute,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid token configuration")
	}

	// Repositories and services
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authService := services.NewAuthService(userRepo, codec)
	taskService := services.NewTaskService(taskRepo)
	analyticsService := services.NewAnalyticsService(taskRepo)

	var aiService *services.AIService
	if cfg.OllamaURL != "" {
		aiService = services.NewAIService(cfg)
		log.Info().Str("model", cfg.LlamaModel).Msg("AI suggestions enabled")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	aiHandler := handlers.NewAIHandler(aiService)

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":      "healthy",
			"environment": cfg.Environment,
		})
	})

	requireAuth := middleware.RequireAuth(codec, userRepo)

	// API routes
	api := r.Group("/api/v1")
	{
		// Auth routes
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		// Profile routes (protected)
		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("/me", userHandler.GetMe)
			users.PUT("/me", userHandler.UpdateMe)
			users.DELETE("/me", userHandler.DeleteMe)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/stats/summary", taskHandler.GetStats)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
		}

		// Analytics routes (protected)
		analytics := api.Group("/analytics")
		analytics.Use(requireAuth)
		{
			analytics.GET("/dashboard", analyticsHandler.GetDashboard)
			analytics.GET("/overview", analyticsHandler.GetOverview)
			analytics.GET("/trends", analyticsHandler.GetTrends)
			analytics.GET("/productivity/hourly", analyticsHandler.GetHourlyProductivity)
			analytics.GET("/productivity/weekly", analyticsHandler.GetWeekdayProductivity)
			analytics.GET("/insights", analyticsHandler.GetInsights)
		}

		// AI routes (protected)
		ai := api.Group("/ai")
		ai.Use(requireAuth)
		{
			ai.GET("/health", aiHandler.Health)
			ai.POST("/chat", aiHandler.Chat)
			ai.POST("/suggest", aiHandler.Suggest)
		}
	}

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("server starting")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
