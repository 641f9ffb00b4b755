package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/smkbandara/cbt-backend/internal/config"
	"github.com/smkbandara/cbt-backend/internal/database"
	"github.com/smkbandara/cbt-backend/internal/handler"
	"github.com/smkbandara/cbt-backend/internal/logger"
	"github.com/smkbandara/cbt-backend/internal/repository"
	"github.com/smkbandara/cbt-backend/internal/router"
	"github.com/smkbandara/cbt-backend/internal/service"
	"github.com/smkbandara/cbt-backend/internal/validator"
	"github.com/smkbandara/cbt-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting CBT Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	answerCache := repository.NewAnswerCache(rdb)
	workQueue := repository.NewWorkQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService, log)
	subjectService := service.NewSubjectService(subjectRepo, sessionRepo, scheduleRepo)
	questionService := service.NewQuestionService(questionRepo, subjectRepo)
	scheduleService := service.NewScheduleService(scheduleRepo, subjectRepo)
	sessionService := service.NewSessionService(
		cfg, sessionRepo, questionRepo, scheduleRepo,
		studentRepo, subjectRepo, answerCache, workQueue, log,
	)
	monitorService := service.NewMonitorService(sessionRepo, answerCache)
	settingService := service.NewSettingService(settingRepo, cfg)
	mediaService := service.NewMediaService(cfg)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, studentService, adminRepo),
		StudentPortal: handler.NewStudentPortalHandler(sessionService, subjectService, questionService),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService),
		Subject:       handler.NewSubjectHandler(subjectService),
		Question:      handler.NewQuestionHandler(questionService),
		Schedule:      handler.NewScheduleHandler(scheduleService),
		Result:        handler.NewResultHandler(sessionRepo, subjectRepo),
		Monitor:       handler.NewMonitorHandler(monitorService, sessionService),
		Setting:       handler.NewSettingHandler(settingService),
		Media:         handler.NewMediaHandler(mediaService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		System:        handler.NewSystemHandler(rdb, log),
		WS:            handler.NewWSHandler(sessionService, cfg.MaxViolations, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	reportWorker := worker.NewReportWorker(rdb, settingService, cfg, log)
	expiryWorker := worker.NewExpiryWorker(sessionService, cfg, log)

	go answerWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)
	go reportWorker.Start(workerCtx)
	go expiryWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
