package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
)

// Handler exposes the quiz and submission services over REST.
type Handler struct {
	quizzes     *app.QuizService
	submissions *app.SubmissionService
	logger      *slog.Logger
}

func NewHandler(quizzes *app.QuizService, submissions *app.SubmissionService, logger *slog.Logger) *Handler {
	return &Handler{quizzes: quizzes, submissions: submissions, logger: logger}
}

type answerRequest struct {
	QuestionID string       `json:"questionId"`
	Answer     domain.Value `json:"answer"`
}

type gradeRequest struct {
	Grades []domain.Grade `json:"grades"`
}

func (h *Handler) createQuiz(c *gin.Context) {
	var in app.CreateQuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, badBody(err))
		return
	}
	quiz, err := h.quizzes.CreateQuiz(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *Handler) updateQuiz(c *gin.Context) {
	var patch domain.QuizPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.fail(c, badBody(err))
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(c.Request.Context(), actorFrom(c), c.Param("quizId"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) publishQuiz(c *gin.Context) {
	quiz, err := h.quizzes.PublishQuiz(c.Request.Context(), actorFrom(c), c.Param("quizId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) getQuiz(c *gin.Context) {
	view, err := h.quizzes.GetQuizDetails(c.Request.Context(), actorFrom(c), c.Param("quizId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listClassQuizzes(c *gin.Context) {
	views, err := h.quizzes.ListClassQuizzes(c.Request.Context(), actorFrom(c), c.Param("classId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": views})
}

func (h *Handler) startQuiz(c *gin.Context) {
	res, err := h.submissions.StartQuiz(c.Request.Context(), actorFrom(c), c.Param("quizId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *Handler) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badBody(err))
		return
	}
	answer, err := h.submissions.SubmitAnswer(c.Request.Context(), actorFrom(c), c.Param("id"), req.QuestionID, req.Answer)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *Handler) completeQuiz(c *gin.Context) {
	res, err := h.submissions.CompleteQuiz(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) gradeSubmission(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badBody(err))
		return
	}
	res, err := h.submissions.GradeSubmission(c.Request.Context(), actorFrom(c), c.Param("id"), req.Grades)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) getSubmission(c *gin.Context) {
	details, err := h.submissions.GetSubmission(c.Request.Context(), actorFrom(c), c.Param("quizId"), c.Query("studentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) listQuizSubmissions(c *gin.Context) {
	subs, err := h.submissions.ListQuizSubmissions(c.Request.Context(), actorFrom(c), c.Param("quizId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (h *Handler) classMarks(c *gin.Context) {
	marks, err := h.submissions.GetClassQuizMarks(c.Request.Context(), actorFrom(c), c.Param("classId"), c.Query("studentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, marks)
}
