package domain

import "time"

// transitions lists the legal moves of the submission state machine. Graded
// is terminal; re-grading a graded submission keeps it graded.
var transitions = map[SubmissionStatus][]SubmissionStatus{
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {StatusCompleted, StatusGraded},
	StatusGraded:     {StatusGraded},
}

// CanTransition reports whether a submission may move from one status to another.
func CanTransition(from, to SubmissionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewSubmission starts an attempt. TotalPoints is a snapshot of the quiz at start.
func NewSubmission(id string, quiz Quiz, studentID string, now time.Time) Submission {
	return Submission{
		ID:          id,
		QuizID:      quiz.ID,
		StudentID:   studentID,
		StartedAt:   now,
		Answers:     []Answer{},
		TotalPoints: quiz.TotalPoints(),
		Status:      StatusInProgress,
		UpdatedAt:   now,
	}
}

// Deadline is the advisory end of the per-student timer.
func (s Submission) Deadline(durationMinutes int) time.Time {
	return s.StartedAt.Add(time.Duration(durationMinutes) * time.Minute)
}

// Answer returns the stored answer for a question.
func (s Submission) Answer(questionID string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// UpsertAnswer replaces the answer for the same question or appends a new one.
// Only in-progress submissions accept answers.
func (s *Submission) UpsertAnswer(a Answer, now time.Time) error {
	if s.Status != StatusInProgress {
		return ErrSubmissionCompleted
	}
	for i := range s.Answers {
		if s.Answers[i].QuestionID == a.QuestionID {
			s.Answers[i] = a
			s.UpdatedAt = now
			return nil
		}
	}
	s.Answers = append(s.Answers, a)
	s.UpdatedAt = now
	return nil
}

// MarkCompleted closes the attempt. Scores are settled separately with Settle.
func (s *Submission) MarkCompleted(now time.Time) error {
	if s.Status != StatusInProgress {
		return ErrSubmissionCompleted
	}
	s.Status = StatusCompleted
	completed := now
	s.CompletedAt = &completed
	s.UpdatedAt = now
	return nil
}

// Settle records totals and moves the submission to graded when nothing is
// pending, otherwise to completed.
func (s *Submission) Settle(totalScore, totalPoints int, fullyGraded bool) error {
	next := StatusCompleted
	if fullyGraded {
		next = StatusGraded
	}
	if !CanTransition(s.Status, next) {
		return ErrInvalidTransition
	}
	s.TotalScore = totalScore
	s.TotalPoints = totalPoints
	s.Status = next
	s.IsGraded = fullyGraded
	return nil
}

// CheckGradable rejects manual grading of an attempt that is still running.
func (s Submission) CheckGradable() error {
	if s.Status == StatusInProgress {
		return ErrSubmissionInProgress
	}
	return nil
}

// Clone deep-copies the submission so stores can hand out values safely.
func (s Submission) Clone() Submission {
	answers := make([]Answer, len(s.Answers))
	for i, a := range s.Answers {
		if a.IsCorrect != nil {
			v := *a.IsCorrect
			a.IsCorrect = &v
		}
		answers[i] = a
	}
	s.Answers = answers
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

// ForStudent strips the provisional verdict from an answer recorded during an
// attempt.
func (a Answer) ForStudent() Answer {
	a.IsCorrect = nil
	a.Points = 0
	a.Feedback = ""
	return a
}

// ForStudent is the submission as its owner may see it. While the attempt is
// in progress no answer carries a verdict; finished attempts are unchanged.
func (s Submission) ForStudent() Submission {
	if s.Status != StatusInProgress {
		return s
	}
	out := s.Clone()
	for i := range out.Answers {
		out.Answers[i] = out.Answers[i].ForStudent()
	}
	out.TotalScore = 0
	return out
}
