package app

import (
	"time"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/grading"
)

// QuizView is a quiz as returned to a caller, with its derived status.
type QuizView struct {
	domain.Quiz
	Status domain.QuizStatus `json:"status"`
}

func viewOf(quiz domain.Quiz, actor domain.Actor, now time.Time) QuizView {
	return QuizView{Quiz: quiz.ViewFor(actor), Status: domain.DeriveStatus(quiz, now)}
}

// ReviewItem merges one question with the answer given to it.
type ReviewItem struct {
	QuestionID      string              `json:"questionId"`
	Text            string              `json:"text"`
	Type            domain.QuestionType `json:"type"`
	Options         []string            `json:"options,omitempty"`
	CorrectAnswer   *domain.Value       `json:"correctAnswer,omitempty"`
	SubmittedAnswer *domain.Value       `json:"submittedAnswer"`
	IsCorrect       *bool               `json:"isCorrect"`
	Points          int                 `json:"points"`
	MaxPoints       int                 `json:"maxPoints"`
	Feedback        string              `json:"feedback"`
}

// buildReview expects quiz to be already redacted for the caller.
func buildReview(quiz domain.Quiz, sub domain.Submission) []ReviewItem {
	items := make([]ReviewItem, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		item := ReviewItem{
			QuestionID:    q.ID,
			Text:          q.Text,
			Type:          q.Type,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			MaxPoints:     q.Points,
		}
		if a, ok := sub.Answer(q.ID); ok {
			item.SubmittedAnswer = a.Answer.Ptr()
			item.IsCorrect = a.IsCorrect
			item.Points = a.Points
			item.Feedback = a.Feedback
		}
		items = append(items, item)
	}
	return items
}

// StartResult is returned by StartQuiz. Quiz is always redacted.
type StartResult struct {
	Submission domain.Submission `json:"submission"`
	Quiz       domain.Quiz       `json:"quiz"`
	Resumed    bool              `json:"resumed"`
	Deadline   time.Time         `json:"deadline"`
}

// CompletionResult is returned by CompleteQuiz.
type CompletionResult struct {
	Submission domain.Submission `json:"submission"`
	Summary    grading.Summary   `json:"gradingSummary"`
	Review     []ReviewItem      `json:"review"`
}

// GradeResult is returned by GradeSubmission.
type GradeResult struct {
	Submission domain.Submission `json:"submission"`
	Summary    grading.Summary   `json:"gradingSummary"`
	Report     grading.Report    `json:"report"`
}

// SubmissionDetails is returned by GetSubmission. Submission is nil when the
// student has not started yet; Review is only set once the attempt is over.
type SubmissionDetails struct {
	Submission *domain.Submission `json:"submission"`
	Quiz       domain.Quiz        `json:"quiz"`
	QuizStatus domain.QuizStatus  `json:"quizStatus"`
	Review     []ReviewItem       `json:"review,omitempty"`
}

// QuizResult is one row of a student's marks in a class.
type QuizResult struct {
	QuizID      string     `json:"quizId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	TotalPoints int        `json:"totalPoints"`
	Status      string     `json:"status"`
	Score       *int       `json:"score"`
	IsGraded    bool       `json:"isGraded"`
	CompletedAt *time.Time `json:"completedAt"`
}

// NotStarted is the marks status of a quiz without a finished attempt.
const NotStarted = "not-started"

// ClassMarks is the per-quiz score rollup of one student in one class.
type ClassMarks struct {
	ClassName   string       `json:"className"`
	StudentID   string       `json:"studentId"`
	QuizResults []QuizResult `json:"quizResults"`
}
