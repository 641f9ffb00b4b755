package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smkbandara/cbt-backend/internal/config"
	"github.com/smkbandara/cbt-backend/internal/handler"
	"github.com/smkbandara/cbt-backend/internal/middleware"
	"github.com/smkbandara/cbt-backend/internal/response"
	"github.com/smkbandara/cbt-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Subject       *handler.SubjectHandler
	Question      *handler.QuestionHandler
	Schedule      *handler.ScheduleHandler
	Result        *handler.ResultHandler
	Monitor       *handler.MonitorHandler
	Setting       *handler.SettingHandler
	Media         *handler.MediaHandler
	Dashboard     *handler.DashboardHandler
	System        *handler.SystemHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve uploaded media files statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", "./uploads")
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/subjects", handlers.StudentPortal.ListSubjects)
		studentAPI.POST("/sessions", handlers.StudentPortal.StartSession)
		studentAPI.GET("/sessions/:id/paper", handlers.StudentPortal.GetPaper)
		studentAPI.GET("/sessions/:id/state", handlers.StudentPortal.GetState)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/sessions/:id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Dashboard
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)

		// Live monitoring (polled)
		adminAPI.GET("/monitor", handlers.Monitor.Overview)
		adminAPI.POST("/sessions/:id/force-finish", handlers.Monitor.ForceFinish)

		// Student management
		adminAPI.GET("/students", handlers.StudentMgmt.ListStudents)
		adminAPI.GET("/students/classes", handlers.StudentMgmt.ListClasses)
		adminAPI.POST("/students", handlers.StudentMgmt.CreateStudent)
		adminAPI.PUT("/students/:id", handlers.StudentMgmt.UpdateStudent)
		adminAPI.DELETE("/students/:id", handlers.StudentMgmt.DeleteStudent)
		adminAPI.POST("/students/import", handlers.StudentMgmt.ImportCSV)
		adminAPI.GET("/students/export", handlers.StudentMgmt.ExportCSV)
		adminAPI.POST("/students/:id/reset-session", handlers.Auth.ResetStudentSession)

		// Subjects, questions, schedules
		adminAPI.GET("/subjects", handlers.Subject.List)
		adminAPI.POST("/subjects", handlers.Subject.Create)
		adminAPI.GET("/subjects/:id", handlers.Subject.Get)
		adminAPI.PUT("/subjects/:id", handlers.Subject.Update)
		adminAPI.DELETE("/subjects/:id", handlers.Subject.Delete)
		adminAPI.GET("/subjects/:id/questions", handlers.Question.ListBySubject)
		adminAPI.POST("/subjects/:id/questions", handlers.Question.Create)
		adminAPI.PUT("/questions/:id", handlers.Question.Update)
		adminAPI.DELETE("/questions/:id", handlers.Question.Delete)
		adminAPI.GET("/schedules", handlers.Schedule.List)
		adminAPI.PUT("/subjects/:id/schedule", handlers.Schedule.Save)
		adminAPI.DELETE("/subjects/:id/schedule", handlers.Schedule.Delete)

		// Results
		adminAPI.GET("/subjects/:id/results", handlers.Result.ListBySubject)
		adminAPI.GET("/subjects/:id/results/export", handlers.Result.ExportCSV)

		// Settings, media, system
		adminAPI.GET("/settings", handlers.Setting.GetAllSettings)
		adminAPI.PUT("/settings", handlers.Setting.UpdateSettings)
		adminAPI.POST("/media/upload", handlers.Media.UploadMedia)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
