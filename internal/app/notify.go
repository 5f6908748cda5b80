package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"classroom-quiz-service/internal/domain"
)

// deliver hands every notification to the notifier with bounded concurrency.
// Failures are logged and dropped: a notification never fails the operation
// that triggered it.
func (s settings) deliver(ctx context.Context, notifications ...domain.Notification) {
	if len(notifications) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(max(s.fanOut, 1))
	for _, n := range notifications {
		n := n
		g.Go(func() error {
			if err := s.notifier.Notify(ctx, n); err != nil {
				s.logger.Warn("notification dropped",
					slog.String("recipient_id", n.RecipientID),
					slog.String("type", string(n.Type)),
					slog.String("related_id", n.RelatedID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func quizPublishedNotifications(quiz domain.Quiz, class domain.Class, students []string, now time.Time) []domain.Notification {
	title := fmt.Sprintf("New Quiz Available: %s", quiz.Title)
	message := fmt.Sprintf("A new quiz %q has been published in class %q. Available from %s.",
		quiz.Title, class.Name, quiz.StartTime.UTC().Format("2006-01-02 15:04 MST"))
	out := make([]domain.Notification, 0, len(students))
	for _, studentID := range students {
		out = append(out, domain.Notification{
			RecipientID:  studentID,
			Type:         domain.NotifyQuizPublished,
			Title:        title,
			Message:      message,
			RelatedID:    quiz.ID,
			RelatedModel: domain.RelatedQuiz,
			CreatedAt:    now,
		})
	}
	return out
}

func submissionNotification(quiz domain.Quiz, class domain.Class, sub domain.Submission, studentName string, now time.Time) domain.Notification {
	if studentName == "" {
		studentName = "A student"
	}
	suffix := "."
	if !sub.IsGraded {
		suffix = " and it requires grading."
	}
	return domain.Notification{
		RecipientID:  class.TeacherID,
		Type:         domain.NotifyQuizSubmission,
		Title:        fmt.Sprintf("Quiz Submission: %s", quiz.Title),
		Message:      fmt.Sprintf("%s has submitted the quiz %q in class %q%s", studentName, quiz.Title, class.Name, suffix),
		RelatedID:    sub.ID,
		RelatedModel: domain.RelatedSubmission,
		CreatedAt:    now,
	}
}

func gradeNotification(quiz domain.Quiz, sub domain.Submission, now time.Time) domain.Notification {
	return domain.Notification{
		RecipientID:  sub.StudentID,
		Type:         domain.NotifyGradeAvailable,
		Title:        fmt.Sprintf("Quiz Graded: %s", quiz.Title),
		Message:      fmt.Sprintf("Your submission for %q has been graded: %d/%d points.", quiz.Title, sub.TotalScore, sub.TotalPoints),
		RelatedID:    sub.ID,
		RelatedModel: domain.RelatedSubmission,
		CreatedAt:    now,
	}
}
