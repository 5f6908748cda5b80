package memory

import (
	"context"
	"sort"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// SubmissionStore keeps submissions in a map with a (quiz, student) index
// that enforces one attempt per student per quiz.
type SubmissionStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Submission
	index map[attemptKey]string
}

type attemptKey struct {
	quizID    string
	studentID string
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		byID:  make(map[string]domain.Submission),
		index: make(map[attemptKey]string),
	}
}

func (s *SubmissionStore) Create(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{quizID: sub.QuizID, studentID: sub.StudentID}
	if _, ok := s.index[key]; ok {
		return domain.ErrDuplicateSubmission
	}
	s.index[key] = sub.ID
	s.byID[sub.ID] = sub.Clone()
	return nil
}

func (s *SubmissionStore) Get(_ context.Context, submissionID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[submissionID]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub.Clone(), nil
}

func (s *SubmissionStore) FindByQuizAndStudent(_ context.Context, quizID, studentID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.index[attemptKey{quizID: quizID, studentID: studentID}]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *SubmissionStore) ListByQuiz(_ context.Context, quizID string) ([]domain.Submission, error) {
	return s.filter(func(sub domain.Submission) bool { return sub.QuizID == quizID }), nil
}

func (s *SubmissionStore) ListByStudent(_ context.Context, studentID string) ([]domain.Submission, error) {
	return s.filter(func(sub domain.Submission) bool { return sub.StudentID == studentID }), nil
}

func (s *SubmissionStore) Update(_ context.Context, submissionID string, fn func(*domain.Submission) error) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[submissionID]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	working := current.Clone()
	if err := fn(&working); err != nil {
		return domain.Submission{}, err
	}
	s.byID[submissionID] = working.Clone()
	return working, nil
}

func (s *SubmissionStore) filter(keep func(domain.Submission) bool) []domain.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, 0)
	for _, sub := range s.byID {
		if keep(sub) {
			out = append(out, sub.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
