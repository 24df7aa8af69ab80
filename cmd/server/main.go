package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/database"
	"github.com/stemsi/coursehub-backend/internal/handler"
	"github.com/stemsi/coursehub-backend/internal/logger"
	"github.com/stemsi/coursehub-backend/internal/metrics"
	"github.com/stemsi/coursehub-backend/internal/observability"
	"github.com/stemsi/coursehub-backend/internal/repository"
	"github.com/stemsi/coursehub-backend/internal/router"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/storage"
	"github.com/stemsi/coursehub-backend/internal/validator"
	"github.com/stemsi/coursehub-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("storage", cfg.StorageDriver).
		Msg("Starting CourseHub Backend")

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		ServiceName: cfg.OtelServiceName,
	}, log)

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

	// ─── Submission File Storage ───────────────────────────────────────
	files, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize file storage")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	moduleRepo := repository.NewModuleRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	guard := access.NewGuard(nil)
	auditService := service.NewAuditService(auditRepo, courseRepo, guard, rdb, log)
	authService := service.NewAuthService(cfg, userRepo, rdb, auditService, log)
	userService := service.NewUserService(userRepo, authService, guard, auditService, log)
	profileService := service.NewProfileService(userRepo, enrollmentRepo, guard, auditService, log)
	dashboardService := service.NewDashboardService(dashboardRepo, guard)
	courseService := service.NewCourseService(courseRepo, moduleRepo, quizRepo, assignmentRepo, guard, auditService, log)
	moduleService := service.NewModuleService(courseRepo, moduleRepo, guard, auditService, log)
	quizService := service.NewQuizService(courseRepo, quizRepo, submissionRepo, guard, auditService, log)
	assignmentService := service.NewAssignmentService(courseRepo, moduleRepo, assignmentRepo, submissionRepo, guard, auditService, log)
	enrollmentService := service.NewEnrollmentService(
		courseRepo, moduleRepo, quizRepo, assignmentRepo, enrollmentRepo,
		files, guard, auditService, cfg.EnrollmentMaxRetries, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		AdminUser:  handler.NewAdminUserHandler(userService),
		Course:     handler.NewCourseHandler(courseService, enrollmentService),
		Module:     handler.NewModuleHandler(moduleService),
		Quiz:       handler.NewQuizHandler(quizService, enrollmentService),
		Assignment: handler.NewAssignmentHandler(assignmentService, enrollmentService, cfg.MaxUploadBytes),
		Enrollment: handler.NewEnrollmentHandler(enrollmentService),
		Audit:      handler.NewAuditHandler(auditService),
		Profile:    handler.NewProfileHandler(profileService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		WS:         handler.NewWSHandler(rdb, log, cfg.AllowedOrigins),
		System:     handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	auditWorker := worker.NewAuditWorker(auditRepo, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		auditWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	stop := make(chan struct{})
	r := router.SetupRouter(authService, guard, handlers, cfg, log, stop)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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
	close(stop)

	// 2. Stop the audit worker; it flushes its pending batch before returning.
	workerCancel()
	drained := make(chan struct{})
	go func() {
		workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Audit worker did not drain in time")
	}

	// 3. Flush pending spans.
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracing shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
