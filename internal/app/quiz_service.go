package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"classroom-quiz-service/internal/domain"
)

// CreateQuizInput carries the fields of a new quiz.
type CreateQuizInput struct {
	ClassID     string            `json:"classId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []domain.Question `json:"questions"`
	Duration    int               `json:"duration"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     time.Time         `json:"endTime"`
}

// QuizService covers quiz authoring, publication and reads.
type QuizService struct {
	base
}

func NewQuizService(quizzes QuizRepository, classes ClassDirectory, opts ...Option) *QuizService {
	return &QuizService{base: base{settings: newSettings(opts), quizzes: quizzes, classes: classes}}
}

// CreateQuiz stores a draft quiz for a class the actor teaches.
func (s *QuizService) CreateQuiz(ctx context.Context, actor domain.Actor, in CreateQuizInput) (domain.Quiz, error) {
	if _, err := s.requireClassTeacher(ctx, actor, in.ClassID); err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	quiz := domain.Quiz{
		ID:          s.newID(),
		ClassID:     in.ClassID,
		CreatedBy:   actor.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Duration:    in.Duration,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		IsPublished: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var errs domain.ValidationErrors
	if err := collect(&errs, validateStruct(quiz)); err != nil {
		return domain.Quiz{}, err
	}
	questions, err := domain.PrepareQuestions(in.Questions, s.newID)
	if err := collect(&errs, err); err != nil {
		return domain.Quiz{}, err
	}
	if err := errs.Err(); err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	s.logger.InfoContext(ctx, "quiz created",
		slog.String("quiz_id", quiz.ID),
		slog.String("class_id", quiz.ClassID),
		slog.String("actor_id", actor.ID),
		slog.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

// UpdateQuiz applies a partial update. Only the creating teacher may edit,
// and questions are frozen once the quiz is published.
func (s *QuizService) UpdateQuiz(ctx context.Context, actor domain.Actor, quizID string, patch domain.QuizPatch) (domain.Quiz, error) {
	if err := requireTeacher(actor); err != nil {
		return domain.Quiz{}, err
	}
	now := s.now()
	quiz, err := s.quizzes.Update(ctx, quizID, func(q *domain.Quiz) error {
		if q.CreatedBy != actor.ID {
			return domain.ErrNotQuizCreator
		}
		if patch.TouchesQuestions() {
			if q.IsPublished {
				return domain.ErrQuizPublished
			}
			prepared, err := domain.PrepareQuestions(*patch.Questions, s.newID)
			if err != nil {
				return err
			}
			patch.Questions = &prepared
		}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			patch.Title = &title
		}
		if err := patch.Apply(q); err != nil {
			return err
		}
		if err := validateStruct(*q); err != nil {
			return err
		}
		q.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	s.logger.InfoContext(ctx, "quiz updated",
		slog.String("quiz_id", quiz.ID),
		slog.String("actor_id", actor.ID),
		slog.Bool("questions_changed", patch.TouchesQuestions()))
	return quiz, nil
}

// PublishQuiz makes a quiz visible to the class and notifies every enrolled
// student. Notification failures do not undo the publication.
func (s *QuizService) PublishQuiz(ctx context.Context, actor domain.Actor, quizID string) (domain.Quiz, error) {
	if err := requireTeacher(actor); err != nil {
		return domain.Quiz{}, err
	}
	now := s.now()
	quiz, err := s.quizzes.Update(ctx, quizID, func(q *domain.Quiz) error {
		if q.CreatedBy != actor.ID {
			return domain.ErrNotQuizCreator
		}
		if err := q.Publish(); err != nil {
			return err
		}
		q.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	s.logger.InfoContext(ctx, "quiz published",
		slog.String("quiz_id", quiz.ID),
		slog.String("class_id", quiz.ClassID),
		slog.String("actor_id", actor.ID))

	class, err := s.classes.GetClass(ctx, quiz.ClassID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping publish notifications", slog.String("quiz_id", quiz.ID), slog.Any("error", err))
		return quiz, nil
	}
	students, err := s.classes.ListStudents(ctx, quiz.ClassID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping publish notifications", slog.String("quiz_id", quiz.ID), slog.Any("error", err))
		return quiz, nil
	}
	s.deliver(ctx, quizPublishedNotifications(quiz, class, students, now)...)
	return quiz, nil
}

// GetQuizDetails returns the quiz to its class teacher, or redacted to an
// enrolled student once it is published.
func (s *QuizService) GetQuizDetails(ctx context.Context, actor domain.Actor, quizID string) (QuizView, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return QuizView{}, err
	}
	_, m, err := s.membershipOf(ctx, actor, quiz.ClassID)
	if err != nil {
		return QuizView{}, err
	}
	switch m {
	case classTeacher:
	case enrolledStudent:
		if !quiz.IsPublished {
			return QuizView{}, domain.ErrQuizNotAvailable
		}
	default:
		return QuizView{}, forbiddenFor(actor)
	}
	return viewOf(quiz, actor, s.now()), nil
}

// ListClassQuizzes lists every quiz of a class for its teacher and only the
// published ones, redacted, for enrolled students.
func (s *QuizService) ListClassQuizzes(ctx context.Context, actor domain.Actor, classID string) ([]QuizView, error) {
	_, m, err := s.membershipOf(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	if m == outsider {
		return nil, forbiddenFor(actor)
	}
	quizzes, err := s.quizzes.ListByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	now := s.now()
	out := make([]QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		if m == enrolledStudent && !q.IsPublished {
			continue
		}
		out = append(out, viewOf(q, actor, now))
	}
	return out, nil
}

// collect folds a validation error into errs and passes anything else through.
func collect(errs *domain.ValidationErrors, err error) error {
	if err == nil {
		return nil
	}
	var ve domain.ValidationErrors
	if errors.As(err, &ve) {
		*errs = append(*errs, ve...)
		return nil
	}
	return err
}
