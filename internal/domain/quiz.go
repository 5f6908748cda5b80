package domain

import "time"

// DeriveStatus computes where the quiz sits in its lifecycle at now.
func DeriveStatus(q Quiz, now time.Time) QuizStatus {
	switch {
	case !q.IsPublished:
		return QuizDraft
	case now.Before(q.StartTime):
		return QuizUpcoming
	case now.After(q.EndTime):
		return QuizEnded
	default:
		return QuizActive
	}
}

// InWindow reports whether now falls inside [StartTime, EndTime].
func (q Quiz) InWindow(now time.Time) bool {
	return !now.Before(q.StartTime) && !now.After(q.EndTime)
}

// TotalPoints sums the points of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Question looks up a question by ID.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// QuestionIndex maps question IDs to questions.
func (q Quiz) QuestionIndex() map[string]Question {
	idx := make(map[string]Question, len(q.Questions))
	for _, question := range q.Questions {
		idx[question.ID] = question
	}
	return idx
}

// Redacted returns a copy with every answer key removed. The question slice
// is copied so the original quiz is left intact.
func (q Quiz) Redacted() Quiz {
	questions := make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = nil
		question.Options = append([]string(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	return q
}

// Clone deep-copies the quiz.
func (q Quiz) Clone() Quiz {
	questions := make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		if question.CorrectAnswer != nil {
			question.CorrectAnswer = question.CorrectAnswer.Ptr()
		}
		questions[i] = question
	}
	q.Questions = questions
	return q
}

// ViewFor returns the quiz as actor may see it: complete for the creating
// teacher, redacted for everyone else.
func (q Quiz) ViewFor(actor Actor) Quiz {
	if actor.IsTeacher() && actor.ID == q.CreatedBy {
		return q
	}
	return q.Redacted()
}

// QuizPatch is a partial update. Nil fields are left untouched.
type QuizPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Questions   *[]Question `json:"questions,omitempty"`
	Duration    *int        `json:"duration,omitempty"`
	StartTime   *time.Time  `json:"startTime,omitempty"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
}

// TouchesQuestions reports whether the patch replaces the question list.
func (p QuizPatch) TouchesQuestions() bool { return p.Questions != nil }

// Apply merges the patch into q. Question changes are refused once the quiz
// is published; the new questions must already be prepared.
func (p QuizPatch) Apply(q *Quiz) error {
	if p.TouchesQuestions() && q.IsPublished {
		return ErrQuizPublished
	}
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Questions != nil {
		q.Questions = *p.Questions
	}
	if p.Duration != nil {
		q.Duration = *p.Duration
	}
	if p.StartTime != nil {
		q.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		q.EndTime = *p.EndTime
	}
	return nil
}

// Publish flips IsPublished. It is one-way and requires at least one question.
func (q *Quiz) Publish() error {
	if q.IsPublished {
		return ErrQuizAlreadyPublished
	}
	if len(q.Questions) == 0 {
		return ErrEmptyQuiz
	}
	q.IsPublished = true
	return nil
}
