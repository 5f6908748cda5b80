// Package grading scores answers against quiz questions. Everything here is
// pure: no clocks, no storage.
package grading

import (
	"fmt"
	"math"

	"classroom-quiz-service/internal/domain"
)

// Result is the verdict for a single answer. IsCorrect is nil while a
// teacher still has to judge the answer.
type Result struct {
	IsCorrect *bool
	Points    int
	Feedback  string
}

// GradeObjective grades a multiple-choice or true-false answer. Stringly
// booleans are normalized on both sides before comparing.
func GradeObjective(q domain.Question, submitted domain.Value) (Result, error) {
	var correct bool
	switch q.Type {
	case domain.MultipleChoice:
		correct = q.CorrectAnswer != nil && submitted.Equal(*q.CorrectAnswer)
	case domain.TrueFalse:
		if q.CorrectAnswer != nil {
			want, okWant := q.CorrectAnswer.AsBool()
			got, okGot := submitted.AsBool()
			correct = okWant && okGot && want == got
		}
	default:
		return Result{}, fmt.Errorf("grade objective: %q is not an objective question type", q.Type)
	}
	points := 0
	if correct {
		points = q.Points
	}
	return Result{IsCorrect: &correct, Points: points}, nil
}

// MarkPendingManual is the auto-grading verdict for short answers, whatever
// their content.
func MarkPendingManual(domain.Question) Result {
	return Result{IsCorrect: nil, Points: 0}
}

// ApplyManualGrade clamps requested points into [0, q.Points]. Zero points is
// incorrect even when feedback is given.
func ApplyManualGrade(q domain.Question, requested int, feedback string) Result {
	points := min(max(requested, 0), q.Points)
	correct := points > 0
	return Result{IsCorrect: &correct, Points: points, Feedback: feedback}
}

// Auto grades an answer at submission or completion time.
func Auto(q domain.Question, submitted domain.Value) Result {
	switch q.Type {
	case domain.MultipleChoice, domain.TrueFalse:
		if res, err := GradeObjective(q, submitted); err == nil {
			return res
		}
	case domain.ShortAnswer:
		return MarkPendingManual(q)
	}
	return MarkPendingManual(q)
}

// AnswerFor builds the stored answer for a question from an auto verdict.
func AnswerFor(q domain.Question, submitted domain.Value) domain.Answer {
	res := Auto(q, submitted)
	return domain.Answer{
		QuestionID: q.ID,
		Answer:     submitted,
		IsCorrect:  res.IsCorrect,
		Points:     res.Points,
	}
}

// Totals is the rolled-up score of a submission.
type Totals struct {
	TotalScore  int `json:"totalScore"`
	TotalPoints int `json:"totalPoints"`
}

// RecomputeTotals sums awarded points over all answers and available points
// over all questions, answered or not.
func RecomputeTotals(sub domain.Submission, questions []domain.Question) Totals {
	var t Totals
	for _, a := range sub.Answers {
		t.TotalScore += a.Points
	}
	for _, q := range questions {
		t.TotalPoints += q.Points
	}
	return t
}

// IsFullyGraded reports whether no answer is waiting on a teacher.
func IsFullyGraded(sub domain.Submission) bool {
	for _, a := range sub.Answers {
		if a.Pending() {
			return false
		}
	}
	return true
}

// Finalize re-grades every stored answer against the authoritative questions,
// recomputes totals and settles the status. Answers whose question no longer
// exists are left as they are.
func Finalize(sub *domain.Submission, quiz domain.Quiz) error {
	idx := quiz.QuestionIndex()
	for i, a := range sub.Answers {
		q, ok := idx[a.QuestionID]
		if !ok {
			continue
		}
		res := Auto(q, a.Answer)
		sub.Answers[i].IsCorrect = res.IsCorrect
		sub.Answers[i].Points = res.Points
	}
	t := RecomputeTotals(*sub, quiz.Questions)
	return sub.Settle(t.TotalScore, t.TotalPoints, IsFullyGraded(*sub))
}

// Skip explains why a manual grade was not applied.
type Skip struct {
	QuestionID string `json:"questionId"`
	Reason     string `json:"reason"`
}

// Report lists what a manual grading batch changed.
type Report struct {
	Applied []string `json:"applied"`
	Skipped []Skip   `json:"skipped,omitempty"`
}

// eligible reports whether a manual grade may overwrite the answer. Short
// answers can be re-graded; auto-graded objective answers cannot.
func eligible(q domain.Question, a domain.Answer) bool {
	return q.Type == domain.ShortAnswer || a.Pending()
}

// ApplyGrades applies a batch of manual grades, recomputes the score and
// settles the status. In-progress submissions are refused.
func ApplyGrades(sub *domain.Submission, quiz domain.Quiz, grades []domain.Grade) (Report, error) {
	if err := sub.CheckGradable(); err != nil {
		return Report{}, err
	}
	idx := quiz.QuestionIndex()
	report := Report{Applied: []string{}}
	for _, g := range grades {
		q, ok := idx[g.QuestionID]
		if !ok {
			report.Skipped = append(report.Skipped, Skip{QuestionID: g.QuestionID, Reason: "question not in quiz"})
			continue
		}
		pos := -1
		for i := range sub.Answers {
			if sub.Answers[i].QuestionID == g.QuestionID {
				pos = i
				break
			}
		}
		if pos < 0 {
			report.Skipped = append(report.Skipped, Skip{QuestionID: g.QuestionID, Reason: "question not answered"})
			continue
		}
		if !eligible(q, sub.Answers[pos]) {
			report.Skipped = append(report.Skipped, Skip{QuestionID: g.QuestionID, Reason: "answer is auto-graded"})
			continue
		}
		res := ApplyManualGrade(q, g.Points, g.Feedback)
		sub.Answers[pos].IsCorrect = res.IsCorrect
		sub.Answers[pos].Points = res.Points
		sub.Answers[pos].Feedback = res.Feedback
		report.Applied = append(report.Applied, g.QuestionID)
	}
	t := RecomputeTotals(*sub, quiz.Questions)
	if err := sub.Settle(t.TotalScore, t.TotalPoints, IsFullyGraded(*sub)); err != nil {
		return report, err
	}
	return report, nil
}

// Summary describes grading progress for display.
type Summary struct {
	TotalQuestions    int  `json:"totalQuestions"`
	AnsweredQuestions int  `json:"answeredQuestions"`
	AutoGraded        int  `json:"autoGradedQuestions"`
	PendingManual     int  `json:"needsManualGrading"`
	IsFullyGraded     bool `json:"isFullyGraded"`
	ScorePercentage   int  `json:"scorePercentage"`
}

// Summarize builds the grading summary of a submission.
func Summarize(sub domain.Submission, quiz domain.Quiz) Summary {
	s := Summary{
		TotalQuestions:    len(quiz.Questions),
		AnsweredQuestions: len(sub.Answers),
		IsFullyGraded:     sub.IsGraded,
	}
	for _, a := range sub.Answers {
		if a.Pending() {
			s.PendingManual++
		} else {
			s.AutoGraded++
		}
	}
	if sub.TotalPoints > 0 {
		s.ScorePercentage = int(math.Round(float64(sub.TotalScore) / float64(sub.TotalPoints) * 100))
	}
	return s
}
