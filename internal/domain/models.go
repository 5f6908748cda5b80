package domain

import "time"

// Role is the actor role supplied by the identity layer.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

func (a Actor) IsTeacher() bool { return a.Role == RoleTeacher }

func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// Class is the subset of a class the quiz engine needs from the membership directory.
type Class struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TeacherID string   `json:"teacherId"`
	Students  []string `json:"students,omitempty"`
}

// QuestionType selects how a question is graded.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	ShortAnswer    QuestionType = "short-answer"
)

// Objective reports whether answers to the question can be graded automatically.
func (t QuestionType) Objective() bool {
	return t == MultipleChoice || t == TrueFalse
}

// Question is owned by its quiz and addressed by an ID unique within it.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *Value       `json:"correctAnswer,omitempty"`
	Points        int          `json:"points"`
}

// Quiz is a set of questions with a class-wide availability window.
type Quiz struct {
	ID          string     `json:"id"`
	ClassID     string     `json:"classId" validate:"required"`
	CreatedBy   string     `json:"createdBy" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	Duration    int        `json:"duration" validate:"min=1"` // minutes
	StartTime   time.Time  `json:"startTime" validate:"required"`
	EndTime     time.Time  `json:"endTime" validate:"required,gtfield=StartTime"`
	IsPublished bool       `json:"isPublished"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// QuizStatus is derived from the clock and never stored.
type QuizStatus string

const (
	QuizDraft    QuizStatus = "draft"
	QuizUpcoming QuizStatus = "upcoming"
	QuizActive   QuizStatus = "active"
	QuizEnded    QuizStatus = "ended"
)

// SubmissionStatus is the state of a student's attempt.
type SubmissionStatus string

const (
	StatusInProgress SubmissionStatus = "in-progress"
	StatusCompleted  SubmissionStatus = "completed"
	StatusGraded     SubmissionStatus = "graded"
)

// Answer is one response inside a submission. IsCorrect is nil while the
// answer waits for a teacher.
type Answer struct {
	QuestionID string `json:"questionId"`
	Answer     Value  `json:"answer"`
	IsCorrect  *bool  `json:"isCorrect"`
	Points     int    `json:"points"`
	Feedback   string `json:"feedback,omitempty"`
}

// Pending reports whether the answer still needs human judgment.
func (a Answer) Pending() bool { return a.IsCorrect == nil }

// Submission is one student's attempt at one quiz.
type Submission struct {
	ID          string           `json:"id"`
	QuizID      string           `json:"quizId"`
	StudentID   string           `json:"studentId"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Answers     []Answer         `json:"answers"`
	TotalScore  int              `json:"totalScore"`
	TotalPoints int              `json:"totalPoints"`
	Status      SubmissionStatus `json:"status"`
	IsGraded    bool             `json:"isGraded"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Grade is a teacher's manual grade for one question of a submission.
type Grade struct {
	QuestionID string `json:"questionId" validate:"required"`
	Points     int    `json:"points"`
	Feedback   string `json:"feedback"`
}

// NotificationType classifies notifications handed to the sink.
type NotificationType string

const (
	NotifyQuizPublished  NotificationType = "quiz-published"
	NotifyQuizSubmission NotificationType = "quiz-submission"
	NotifyGradeAvailable NotificationType = "grade-available"
)

// RelatedModel names the entity a notification points at.
type RelatedModel string

const (
	RelatedQuiz       RelatedModel = "Quiz"
	RelatedClass      RelatedModel = "Class"
	RelatedSubmission RelatedModel = "Submission"
)

// Notification is a single message for a single recipient.
type Notification struct {
	RecipientID  string           `json:"recipientId"`
	Type         NotificationType `json:"type"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	RelatedID    string           `json:"relatedId,omitempty"`
	RelatedModel RelatedModel     `json:"relatedModel,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}
