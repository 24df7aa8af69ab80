package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/handler"
	"github.com/stemsi/coursehub-backend/internal/logger"
	"github.com/stemsi/coursehub-backend/internal/metrics"
	"github.com/stemsi/coursehub-backend/internal/middleware"
	"github.com/stemsi/coursehub-backend/internal/response"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Auth routes allow 30 requests per minute per IP.
const (
	authRateRPS   = 0.5
	authRateBurst = 10
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	AdminUser  *handler.AdminUserHandler
	Course     *handler.CourseHandler
	Module     *handler.ModuleHandler
	Quiz       *handler.QuizHandler
	Assignment *handler.AssignmentHandler
	Enrollment *handler.EnrollmentHandler
	Audit      *handler.AuditHandler
	Profile    *handler.ProfileHandler
	Dashboard  *handler.DashboardHandler
	WS         *handler.WSHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// The rate limiters evict idle clients until stop is closed.
func SetupRouter(
	authn middleware.Authenticator,
	guard *access.Guard,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
	stop <-chan struct{},
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.OtelEnabled {
		router.Use(otelgin.Middleware(cfg.OtelServiceName))
	}

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the request logger and every envelope can carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(logger.RequestLogger(log, response.ContextKeyRequestID))
	router.Use(metrics.Middleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.Handler())

	apiLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	authLimiter := middleware.NewRateLimiter(authRateRPS, authRateBurst)
	apiLimiter.StartCleanup(stop)
	authLimiter.StartCleanup(stop)

	requireAuth := middleware.RequireAuth(authn)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware(), middleware.NoStore())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", requireAuth, handlers.Auth.Me)
	}

	// ─── 2. Authenticated API ──────────────────────────────────────────
	// Ownership rules are enforced in the services once the course is
	// loaded; only resource-less actions are checked here.
	api := router.Group("/api/v1")
	api.Use(apiLimiter.Middleware(), requireAuth, middleware.NoStore())
	{
		api.GET("/me/enrollments", handlers.Enrollment.MyEnrollments)
		api.GET("/audit-trail", middleware.RequireAction(guard, access.AuditRead), handlers.Audit.Trail)
		api.GET("/dashboard", middleware.RequireAction(guard, access.DashboardRead), handlers.Dashboard.Get)

		api.GET("/profile", handlers.Profile.Mine)
		api.PATCH("/profile", handlers.Profile.Update)
		api.GET("/users/:user_id/profile", handlers.Profile.Get)

		courses := api.Group("/courses")
		{
			courses.GET("", handlers.Course.List)
			courses.POST("", middleware.RequireAction(guard, access.CourseCreate), handlers.Course.Create)
			courses.GET("/:course_id", handlers.Course.Get)
			courses.PATCH("/:course_id", handlers.Course.Update)
			courses.DELETE("/:course_id", handlers.Course.Delete)
			courses.GET("/:course_id/stats", handlers.Course.Stats)
			courses.GET("/:course_id/enrollments", handlers.Course.Enrollments)
			courses.GET("/:course_id/audit-log", handlers.Audit.CourseLog)

			// Learning progress
			courses.POST("/:course_id/enroll", handlers.Enrollment.Enroll)
			courses.POST("/:course_id/complete", handlers.Enrollment.CompleteSelf)
			courses.GET("/:course_id/progress", handlers.Enrollment.MyProgress)
			courses.POST("/:course_id/students/:student_id/complete", handlers.Enrollment.CompleteStudent)
			courses.GET("/:course_id/students/:student_id/progress", handlers.Enrollment.StudentProgress)

			// Modules
			courses.GET("/:course_id/modules", handlers.Module.List)
			courses.POST("/:course_id/modules", handlers.Module.Create)
			courses.PATCH("/:course_id/modules/:module_id", handlers.Module.Update)
			courses.DELETE("/:course_id/modules/:module_id", handlers.Module.Delete)
			courses.POST("/:course_id/modules/:module_id/complete", handlers.Enrollment.CompleteModule)

			// Quizzes
			courses.GET("/:course_id/quizzes", handlers.Quiz.List)
			courses.POST("/:course_id/quizzes", handlers.Quiz.Create)
			courses.GET("/:course_id/quizzes/:quiz_id", handlers.Quiz.Get)
			courses.DELETE("/:course_id/quizzes/:quiz_id", handlers.Quiz.Delete)
			courses.POST("/:course_id/quizzes/:quiz_id/submit", handlers.Quiz.Submit)
			courses.GET("/:course_id/quizzes/:quiz_id/submissions", handlers.Quiz.Submissions)
			courses.GET("/:course_id/quizzes/:quiz_id/submissions/me", handlers.Quiz.MySubmissions)

			// Assignments
			courses.GET("/:course_id/assignments", handlers.Assignment.List)
			courses.POST("/:course_id/assignments", handlers.Assignment.Create)
			courses.DELETE("/:course_id/assignments/:assignment_id", handlers.Assignment.Delete)
			courses.POST("/:course_id/assignments/:assignment_id/submit", handlers.Assignment.Submit)
			courses.GET("/:course_id/assignments/:assignment_id/submissions", handlers.Assignment.Submissions)
		}
	}

	// ─── 3. Admin Group (HR Admin) ─────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(apiLimiter.Middleware(), requireAuth, middleware.RequireAction(guard, access.UserManage), middleware.NoStore())
	{
		adminAPI.GET("/users", handlers.AdminUser.ListUsers)
		adminAPI.POST("/users/:id/approve", handlers.AdminUser.ApproveUser)
		adminAPI.POST("/users/:id/reject", handlers.AdminUser.RejectUser)
		adminAPI.POST("/users/:id/suspend", handlers.AdminUser.SuspendUser)
		adminAPI.DELETE("/users/:id", handlers.AdminUser.DeleteUser)
	}

	// ─── 4. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authn), middleware.RequireAction(guard, access.AuditStream))
	{
		ws.GET("/audit/stream", handlers.WS.AuditStream)
	}

	return router
}
