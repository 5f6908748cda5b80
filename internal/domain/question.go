package domain

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultPoints is used when a question is written without points.
const DefaultPoints = 1

// ValidateQuestion checks a question against the rules of its type and
// returns the normalized copy that should be stored. True/false keys given as
// "true"/"false" become booleans here, before anything compares them.
func ValidateQuestion(q Question) (Question, error) {
	var errs ValidationErrors
	validateQuestionInto(&errs, "", &q)
	if err := errs.Err(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// PrepareQuestions validates a question list for storage. Questions without
// an ID, or with an ID already used earlier in the list, get a fresh one.
func PrepareQuestions(questions []Question, newID func() string) ([]Question, error) {
	var errs ValidationErrors
	out := make([]Question, len(questions))
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		validateQuestionInto(&errs, fmt.Sprintf("questions[%d].", i), &q)
		if _, dup := seen[q.ID]; q.ID == "" || dup {
			q.ID = newID()
		}
		seen[q.ID] = struct{}{}
		out[i] = q
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateQuestionInto(errs *ValidationErrors, prefix string, q *Question) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		errs.Add(prefix+"text", "is required", nil)
	}

	switch {
	case q.Points == 0:
		q.Points = DefaultPoints
	case q.Points < 0:
		errs.Add(prefix+"points", "must be a positive integer", q.Points)
	}

	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 {
			errs.Add(prefix+"options", "multiple choice questions must have at least 2 options", len(q.Options))
		}
		if q.CorrectAnswer == nil {
			errs.Add(prefix+"correctAnswer", "is required", nil)
			return
		}
		key, ok := q.CorrectAnswer.Text()
		if !ok {
			errs.Add(prefix+"correctAnswer", "must be a string", q.CorrectAnswer.String())
			return
		}
		if !slices.Contains(q.Options, key) {
			errs.Add(prefix+"correctAnswer", "must be one of the options", key)
		}
	case TrueFalse:
		if len(q.Options) > 0 {
			errs.Add(prefix+"options", "must be empty for true-false questions", len(q.Options))
		}
		if q.CorrectAnswer == nil {
			errs.Add(prefix+"correctAnswer", "is required", nil)
			return
		}
		b, ok := q.CorrectAnswer.AsBool()
		if !ok {
			errs.Add(prefix+"correctAnswer", "true/false questions must have a boolean answer", q.CorrectAnswer.String())
			return
		}
		q.CorrectAnswer = Bool(b).Ptr()
	case ShortAnswer:
		if len(q.Options) > 0 {
			errs.Add(prefix+"options", "must be empty for short-answer questions", len(q.Options))
		}
		q.CorrectAnswer = nil
	default:
		errs.Add(prefix+"type", "must be one of multiple-choice, true-false, short-answer", string(q.Type))
	}
}

// NormalizeAnswer checks a submitted value against the question type and
// converts it to the strict form the grading engine compares.
func NormalizeAnswer(t QuestionType, v Value) (Value, error) {
	var errs ValidationErrors
	switch t {
	case TrueFalse:
		b, ok := v.AsBool()
		if !ok {
			errs.Add("answer", "must be true or false", v.String())
			break
		}
		return Bool(b), nil
	case MultipleChoice, ShortAnswer:
		if _, ok := v.Text(); !ok {
			errs.Add("answer", "must be a string", v.String())
			break
		}
		return v, nil
	default:
		errs.Add("type", "unknown question type", string(t))
	}
	return Value{}, errs
}
