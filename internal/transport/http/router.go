package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/logging"
)

// RouterConfig wires the services into the HTTP surface. Feed is optional;
// without it websocket clients receive no notifications. CORS is only
// enabled when AllowedOrigins is set.
type RouterConfig struct {
	Quizzes        *app.QuizService
	Submissions    *app.SubmissionService
	Feed           NotificationFeed
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	h := NewHandler(cfg.Quizzes, cfg.Submissions, logger)
	ws := NewWSHandler(cfg.Submissions, cfg.Feed, logger)

	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", HeaderUserID, HeaderUserRole, HeaderUserName},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/", identity())
	{
		quizzes := api.Group("/quizzes")
		quizzes.POST("", h.createQuiz)
		quizzes.PUT("/:quizId", h.updateQuiz)
		quizzes.POST("/:quizId/publish", h.publishQuiz)
		quizzes.GET("/:quizId", h.getQuiz)
		quizzes.POST("/:quizId/start", h.startQuiz)
		quizzes.GET("/:quizId/submissions", h.listQuizSubmissions)
		quizzes.GET("/:quizId/submission", h.getSubmission)

		submissions := api.Group("/submissions")
		submissions.POST("/:id/answer", h.submitAnswer)
		submissions.POST("/:id/complete", h.completeQuiz)
		submissions.POST("/:id/grade", h.gradeSubmission)
		submissions.GET("/:id/ws", ws.Serve)

		classes := api.Group("/classes")
		classes.GET("/:classId/quizzes", h.listClassQuizzes)
		classes.GET("/:classId/marks", h.classMarks)
	}
	return r
}
