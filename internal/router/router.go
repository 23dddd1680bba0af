package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/testlane/testlane-backend/internal/config"
	"github.com/testlane/testlane-backend/internal/handler"
	"github.com/testlane/testlane-backend/internal/middleware"
	"github.com/testlane/testlane-backend/internal/response"
	"github.com/testlane/testlane-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Test       *handler.TestHandler
	Question   *handler.QuestionHandler
	Attempt    *handler.AttemptHandler
	Enrollment *handler.EnrollmentHandler
	Report     *handler.ReportHandler
	WS         *handler.WSHandler
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
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile route; either role.
		auth.GET("/me", middleware.RequireAnyJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.POST("/enrollments", handlers.Enrollment.Enroll)
		studentAPI.GET("/enrollments", handlers.Enrollment.List)

		studentAPI.GET("/tests", handlers.Test.ListAvailable)
		studentAPI.GET("/tests/:test_id", handlers.Test.GetPayload)

		studentAPI.POST("/tests/:test_id/attempt", handlers.Attempt.Open)
		studentAPI.GET("/tests/:test_id/attempt", handlers.Attempt.State)
		studentAPI.POST("/tests/:test_id/attempt/submit", handlers.Attempt.Submit)

		studentAPI.GET("/attempts", handlers.Attempt.ListMine)
		studentAPI.GET("/attempts/:attempt_id/summary", handlers.Attempt.Summary)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/tests/:test_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.POST("/tests", handlers.Test.Create)
		teacherAPI.GET("/tests", handlers.Test.List)
		teacherAPI.GET("/tests/:test_id", handlers.Test.Get)
		teacherAPI.PUT("/tests/:test_id", handlers.Test.Update)
		teacherAPI.PATCH("/tests/:test_id/active", handlers.Test.SetActive)
		teacherAPI.DELETE("/tests/:test_id", handlers.Test.Delete)

		teacherAPI.POST("/tests/:test_id/questions", handlers.Question.Add)
		teacherAPI.GET("/tests/:test_id/questions", handlers.Question.List)
		teacherAPI.PUT("/questions/:question_id", handlers.Question.Update)
		teacherAPI.DELETE("/questions/:question_id", handlers.Question.Delete)

		teacherAPI.GET("/tests/:test_id/results", handlers.Report.ListResults)
		teacherAPI.GET("/tests/:test_id/results/export", handlers.Report.ExportResults)
	}

	return router
}
