package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/grading"
)

// SubmissionService covers quiz-taking and grading.
type SubmissionService struct {
	base
	submissions SubmissionRepository
}

func NewSubmissionService(quizzes QuizRepository, submissions SubmissionRepository, classes ClassDirectory, opts ...Option) *SubmissionService {
	return &SubmissionService{
		base:        base{settings: newSettings(opts), quizzes: quizzes, classes: classes},
		submissions: submissions,
	}
}

// StartQuiz opens an attempt for an enrolled student inside the quiz window.
// An in-progress attempt is resumed rather than duplicated.
func (s *SubmissionService) StartQuiz(ctx context.Context, actor domain.Actor, quizID string) (StartResult, error) {
	if err := requireStudent(actor); err != nil {
		return StartResult{}, err
	}
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return StartResult{}, err
	}
	if !quiz.IsPublished {
		return StartResult{}, domain.ErrQuizNotAvailable
	}
	if _, err := s.requireEnrolled(ctx, actor, quiz.ClassID); err != nil {
		return StartResult{}, err
	}
	now := s.now()
	if !quiz.InWindow(now) {
		return StartResult{}, domain.ErrQuizNotActive
	}

	if existing, err := s.submissions.FindByQuizAndStudent(ctx, quizID, actor.ID); err == nil {
		return s.resume(ctx, quiz, existing)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return StartResult{}, fmt.Errorf("find submission: %w", err)
	}

	sub := domain.NewSubmission(s.newID(), quiz, actor.ID, now)
	if err := s.submissions.Create(ctx, sub); err != nil {
		if !errors.Is(err, domain.ErrDuplicateSubmission) {
			return StartResult{}, fmt.Errorf("create submission: %w", err)
		}
		// Lost a concurrent start; the winner's record decides.
		existing, err := s.submissions.FindByQuizAndStudent(ctx, quizID, actor.ID)
		if err != nil {
			return StartResult{}, fmt.Errorf("find submission after conflict: %w", err)
		}
		return s.resume(ctx, quiz, existing)
	}

	s.logger.InfoContext(ctx, "quiz started",
		slog.String("quiz_id", quiz.ID),
		slog.String("submission_id", sub.ID),
		slog.String("student_id", actor.ID))
	return StartResult{Submission: sub.ForStudent(), Quiz: quiz.Redacted(), Deadline: sub.Deadline(quiz.Duration)}, nil
}

func (s *SubmissionService) resume(ctx context.Context, quiz domain.Quiz, sub domain.Submission) (StartResult, error) {
	if sub.Status != domain.StatusInProgress {
		return StartResult{}, domain.ErrSubmissionCompleted
	}
	s.logger.InfoContext(ctx, "quiz resumed",
		slog.String("quiz_id", quiz.ID),
		slog.String("submission_id", sub.ID),
		slog.String("student_id", sub.StudentID))
	return StartResult{Submission: sub.ForStudent(), Quiz: quiz.Redacted(), Resumed: true, Deadline: sub.Deadline(quiz.Duration)}, nil
}

// ownSubmission loads a submission owned by actor together with its quiz and
// re-checks enrollment.
func (s *SubmissionService) ownSubmission(ctx context.Context, actor domain.Actor, submissionID string) (domain.Submission, domain.Quiz, domain.Class, error) {
	if err := requireStudent(actor); err != nil {
		return domain.Submission{}, domain.Quiz{}, domain.Class{}, err
	}
	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return domain.Submission{}, domain.Quiz{}, domain.Class{}, err
	}
	if sub.StudentID != actor.ID {
		return domain.Submission{}, domain.Quiz{}, domain.Class{}, domain.ErrNotSubmissionOwner
	}
	quiz, err := s.quizzes.Get(ctx, sub.QuizID)
	if err != nil {
		return domain.Submission{}, domain.Quiz{}, domain.Class{}, err
	}
	class, err := s.requireEnrolled(ctx, actor, quiz.ClassID)
	if err != nil {
		return domain.Submission{}, domain.Quiz{}, domain.Class{}, err
	}
	return sub, quiz, class, nil
}

// SubmitAnswer records or replaces the answer to one question and grades it
// provisionally. The verdict is stored but not returned; totals are rolled up
// on completion.
func (s *SubmissionService) SubmitAnswer(ctx context.Context, actor domain.Actor, submissionID, questionID string, answer domain.Value) (domain.Answer, error) {
	_, quiz, _, err := s.ownSubmission(ctx, actor, submissionID)
	if err != nil {
		return domain.Answer{}, err
	}
	question, ok := quiz.Question(questionID)
	if !ok {
		return domain.Answer{}, domain.ErrQuestionNotFound
	}
	value, err := domain.NormalizeAnswer(question.Type, answer)
	if err != nil {
		return domain.Answer{}, err
	}

	now := s.now()
	stored := grading.AnswerFor(question, value)
	_, err = s.submissions.Update(ctx, submissionID, func(sub *domain.Submission) error {
		if sub.Status != domain.StatusInProgress {
			return domain.ErrSubmissionCompleted
		}
		if now.After(quiz.EndTime) {
			return domain.ErrQuizWindowClosed
		}
		if s.enforceDuration && now.After(sub.Deadline(quiz.Duration)) {
			return domain.ErrAttemptTimeExpired
		}
		return sub.UpsertAnswer(stored, now)
	})
	if err != nil {
		return domain.Answer{}, err
	}
	s.logger.DebugContext(ctx, "answer recorded",
		slog.String("submission_id", submissionID),
		slog.String("question_id", questionID),
		slog.String("student_id", actor.ID))
	return stored.ForStudent(), nil
}

// CompleteQuiz closes the attempt, re-grades every answer and notifies the
// class teacher.
func (s *SubmissionService) CompleteQuiz(ctx context.Context, actor domain.Actor, submissionID string) (CompletionResult, error) {
	_, quiz, class, err := s.ownSubmission(ctx, actor, submissionID)
	if err != nil {
		return CompletionResult{}, err
	}
	now := s.now()
	sub, err := s.submissions.Update(ctx, submissionID, func(sub *domain.Submission) error {
		if err := sub.MarkCompleted(now); err != nil {
			return err
		}
		sub.UpdatedAt = now
		return grading.Finalize(sub, quiz)
	})
	if err != nil {
		return CompletionResult{}, err
	}
	s.logger.InfoContext(ctx, "quiz completed",
		slog.String("quiz_id", quiz.ID),
		slog.String("submission_id", sub.ID),
		slog.String("student_id", sub.StudentID),
		slog.String("status", string(sub.Status)),
		slog.Int("total_score", sub.TotalScore),
		slog.Int("total_points", sub.TotalPoints))

	s.deliver(ctx, submissionNotification(quiz, class, sub, actor.Name, now))
	return CompletionResult{
		Submission: sub,
		Summary:    grading.Summarize(sub, quiz),
		Review:     buildReview(quiz.ViewFor(actor), sub),
	}, nil
}

type gradeBatch struct {
	Grades []domain.Grade `json:"grades" validate:"required,min=1,dive"`
}

// GradeSubmission applies a batch of manual grades. The in-progress check
// runs inside the atomic update so a concurrent completion cannot slip past it.
func (s *SubmissionService) GradeSubmission(ctx context.Context, actor domain.Actor, submissionID string, grades []domain.Grade) (GradeResult, error) {
	if err := requireTeacher(actor); err != nil {
		return GradeResult{}, err
	}
	if err := validateStruct(gradeBatch{Grades: grades}); err != nil {
		return GradeResult{}, err
	}
	current, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return GradeResult{}, err
	}
	quiz, err := s.quizzes.Get(ctx, current.QuizID)
	if err != nil {
		return GradeResult{}, err
	}
	if _, err := s.requireClassTeacher(ctx, actor, quiz.ClassID); err != nil {
		return GradeResult{}, err
	}

	var (
		report    grading.Report
		wasGraded bool
	)
	sub, err := s.submissions.Update(ctx, submissionID, func(sub *domain.Submission) error {
		wasGraded = sub.Status == domain.StatusGraded
		r, err := grading.ApplyGrades(sub, quiz, grades)
		if err != nil {
			return err
		}
		sub.UpdatedAt = s.now()
		report = r
		return nil
	})
	if err != nil {
		return GradeResult{}, err
	}
	s.logger.InfoContext(ctx, "submission graded",
		slog.String("quiz_id", quiz.ID),
		slog.String("submission_id", sub.ID),
		slog.String("student_id", sub.StudentID),
		slog.String("actor_id", actor.ID),
		slog.Int("applied", len(report.Applied)),
		slog.Int("skipped", len(report.Skipped)),
		slog.String("status", string(sub.Status)))

	if sub.IsGraded && !wasGraded {
		s.deliver(ctx, gradeNotification(quiz, sub, s.now()))
	}
	return GradeResult{Submission: sub, Summary: grading.Summarize(sub, quiz), Report: report}, nil
}

// GetSubmission returns a student's own attempt, or any student's attempt to
// the class teacher. Students who have not started get the redacted quiz and
// its status instead of NotFound while the quiz is upcoming or active.
func (s *SubmissionService) GetSubmission(ctx context.Context, actor domain.Actor, quizID, studentID string) (SubmissionDetails, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return SubmissionDetails{}, err
	}
	_, m, err := s.membershipOf(ctx, actor, quiz.ClassID)
	if err != nil {
		return SubmissionDetails{}, err
	}
	now := s.now()
	status := domain.DeriveStatus(quiz, now)
	details := SubmissionDetails{Quiz: quiz.ViewFor(actor), QuizStatus: status}

	switch m {
	case classTeacher:
		if studentID == "" {
			return SubmissionDetails{}, domain.ErrStudentIDRequired
		}
	case enrolledStudent:
		if !quiz.IsPublished {
			return SubmissionDetails{}, domain.ErrQuizNotAvailable
		}
		studentID = actor.ID
		if status == domain.QuizUpcoming {
			return details, nil
		}
	default:
		return SubmissionDetails{}, forbiddenFor(actor)
	}

	sub, err := s.submissions.FindByQuizAndStudent(ctx, quizID, studentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if m == enrolledStudent && status == domain.QuizActive {
			return details, nil
		}
		return SubmissionDetails{}, domain.ErrSubmissionNotFound
	case err != nil:
		return SubmissionDetails{}, fmt.Errorf("find submission: %w", err)
	}

	if m == enrolledStudent {
		sub = sub.ForStudent()
	}
	details.Submission = &sub
	if sub.Status != domain.StatusInProgress {
		details.Review = buildReview(details.Quiz, sub)
	}
	return details, nil
}

// ListQuizSubmissions returns every attempt at a quiz to its class teacher.
func (s *SubmissionService) ListQuizSubmissions(ctx context.Context, actor domain.Actor, quizID string) ([]domain.Submission, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireClassTeacher(ctx, actor, quiz.ClassID); err != nil {
		return nil, err
	}
	subs, err := s.submissions.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// GetClassQuizMarks rolls up one student's finished attempts over the
// published quizzes of a class. Teachers name the student; students always
// get their own marks.
func (s *SubmissionService) GetClassQuizMarks(ctx context.Context, actor domain.Actor, classID, studentID string) (ClassMarks, error) {
	class, m, err := s.membershipOf(ctx, actor, classID)
	if err != nil {
		return ClassMarks{}, err
	}
	switch m {
	case classTeacher:
		if studentID == "" {
			return ClassMarks{}, domain.ErrStudentIDRequired
		}
	case enrolledStudent:
		studentID = actor.ID
	default:
		return ClassMarks{}, forbiddenFor(actor)
	}

	quizzes, err := s.quizzes.ListByClass(ctx, classID)
	if err != nil {
		return ClassMarks{}, fmt.Errorf("list quizzes: %w", err)
	}
	subs, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return ClassMarks{}, fmt.Errorf("list submissions: %w", err)
	}
	finished := make(map[string]domain.Submission, len(subs))
	for _, sub := range subs {
		if sub.Status != domain.StatusInProgress {
			finished[sub.QuizID] = sub
		}
	}

	marks := ClassMarks{ClassName: class.Name, StudentID: studentID, QuizResults: []QuizResult{}}
	for _, q := range quizzes {
		if !q.IsPublished {
			continue
		}
		row := QuizResult{
			QuizID:      q.ID,
			Title:       q.Title,
			Description: q.Description,
			StartTime:   q.StartTime,
			EndTime:     q.EndTime,
			TotalPoints: q.TotalPoints(),
			Status:      NotStarted,
		}
		if sub, ok := finished[q.ID]; ok {
			score := sub.TotalScore
			row.TotalPoints = sub.TotalPoints
			row.Status = string(sub.Status)
			row.Score = &score
			row.IsGraded = sub.IsGraded
			row.CompletedAt = sub.CompletedAt
		}
		marks.QuizResults = append(marks.QuizResults, row)
	}
	return marks, nil
}

