package app

import (
	"context"

	"classroom-quiz-service/internal/domain"
)

// QuizRepository persists quizzes. Update runs fn against the current record
// and stores the result atomically; returning an error from fn aborts the write.
type QuizRepository interface {
	Create(ctx context.Context, quiz domain.Quiz) error
	Get(ctx context.Context, quizID string) (domain.Quiz, error)
	ListByClass(ctx context.Context, classID string) ([]domain.Quiz, error)
	Update(ctx context.Context, quizID string, fn func(*domain.Quiz) error) (domain.Quiz, error)
}

// SubmissionRepository persists submissions. Create must fail with
// domain.ErrDuplicateSubmission when (quiz, student) already has a record.
type SubmissionRepository interface {
	Create(ctx context.Context, sub domain.Submission) error
	Get(ctx context.Context, submissionID string) (domain.Submission, error)
	FindByQuizAndStudent(ctx context.Context, quizID, studentID string) (domain.Submission, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
	ListByStudent(ctx context.Context, studentID string) ([]domain.Submission, error)
	Update(ctx context.Context, submissionID string, fn func(*domain.Submission) error) (domain.Submission, error)
}

// ClassDirectory answers membership questions. It is consulted on every
// authorization decision and never cached by the services.
type ClassDirectory interface {
	GetClass(ctx context.Context, classID string) (domain.Class, error)
	IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
	ListStudents(ctx context.Context, classID string) ([]string, error)
}

// Notifier hands a notification to the delivery layer.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.Notification) error { return nil }
