package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/minhlq/Quokka/config"
	"github.com/minhlq/Quokka/database"
	attemptctrl "github.com/minhlq/Quokka/internal/controller/attempt"
	gradingctrl "github.com/minhlq/Quokka/internal/controller/grading"
	"github.com/minhlq/Quokka/internal/logger"
	"github.com/minhlq/Quokka/internal/model"
	"github.com/minhlq/Quokka/internal/repository"
	"github.com/minhlq/Quokka/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Quokka Quiz Attempt API
// @version 1.0
// @description Timed quiz attempts with two-tier autosave and optimistic-locking grading.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
		),

		// Repositories Layer
		fx.Provide(
			repository.NewQuizRepository,
			repository.NewAttemptRepository,
			repository.NewRedisCheckpointStore,
		),

		// Services Layer
		fx.Provide(
			service.NewSystemClock,
			service.NewSessionRegistry,
			service.NewAttemptEngine,
			service.NewAutosaveCoordinator,
			service.NewAttemptScheduler,
			service.NewGradingGuard,
			service.NewGeminiFeedbackService,
			service.NewQuizService,
		),

		// API Controllers Layer
		fx.Provide(
			attemptctrl.NewAttemptController,
			gradingctrl.NewGradingController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(LogAutosaveDegradation),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	attemptCtrl *attemptctrl.AttemptController,
	gradingCtrl *gradingctrl.GradingController,
) {
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		adminAPIGroup.POST("/quizzes", gradingCtrl.CreateQuiz)
		adminAPIGroup.POST("/attempts/:attempt_id/grade", gradingCtrl.GradeAttempt)
		adminAPIGroup.POST("/attempts/:attempt_id/feedback-draft", gradingCtrl.DraftFeedback)
	}

	userAPIGroup := router.Group("/api/v1")
	{
		userAPIGroup.GET("/quizzes", gradingCtrl.GetAllQuizzes)
		userAPIGroup.POST("/quizzes/:quiz_id/attempts", attemptCtrl.StartAttempt)
		userAPIGroup.GET("/attempts/:attempt_id", attemptCtrl.GetAttempt)
		userAPIGroup.GET("/attempts/:attempt_id/remaining", attemptCtrl.RemainingTime)
		userAPIGroup.PUT("/attempts/:attempt_id/answers", attemptCtrl.RecordAnswer)
		userAPIGroup.POST("/attempts/:attempt_id/submit", attemptCtrl.SubmitAttempt)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Quokka API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Quiz{},
		&model.QuizAttempt{},
		&model.AttemptAnswer{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}

// LogAutosaveDegradation subscribes the default listener for the non-fatal
// autosave-degraded signal.
func LogAutosaveDegradation(coordinator service.AutosaveCoordinator) {
	coordinator.OnDegraded(func(attemptID uint, cause error) {
		log.Warn().Err(cause).Uint("attemptID", attemptID).Msg("Autosave degraded; local checkpoint tier remains active")
	})
}
