package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error returned by the quiz engine matches exactly one
// of these through errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

var (
	// ErrClassNotFound is returned when the class directory does not know a class.
	ErrClassNotFound = fmt.Errorf("class %w", ErrNotFound)
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrSubmissionNotFound indicates the submission could not be loaded.
	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)

	ErrTeacherOnly        = fmt.Errorf("%w: only teachers can perform this action", ErrForbidden)
	ErrStudentOnly        = fmt.Errorf("%w: only students can perform this action", ErrForbidden)
	ErrNotQuizCreator     = fmt.Errorf("%w: actor did not create this quiz", ErrForbidden)
	ErrNotClassTeacher    = fmt.Errorf("%w: actor does not teach this class", ErrForbidden)
	ErrNotEnrolled        = fmt.Errorf("%w: actor is not enrolled in this class", ErrForbidden)
	ErrNotSubmissionOwner = fmt.Errorf("%w: submission belongs to another student", ErrForbidden)
	ErrQuizNotAvailable   = fmt.Errorf("%w: quiz is not published", ErrForbidden)

	ErrQuizPublished        = fmt.Errorf("%w: questions of a published quiz cannot change", ErrConflict)
	ErrQuizAlreadyPublished = fmt.Errorf("%w: quiz is already published", ErrConflict)
	ErrQuizNotActive        = fmt.Errorf("%w: quiz is not currently active", ErrConflict)
	ErrQuizWindowClosed     = fmt.Errorf("%w: quiz time is over", ErrConflict)
	ErrAttemptTimeExpired   = fmt.Errorf("%w: attempt duration has elapsed", ErrConflict)
	ErrSubmissionCompleted  = fmt.Errorf("%w: quiz has already been completed", ErrConflict)
	ErrSubmissionInProgress = fmt.Errorf("%w: cannot grade an in-progress submission", ErrConflict)
	ErrDuplicateSubmission  = fmt.Errorf("%w: submission already exists for this quiz and student", ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("%w: invalid submission status transition", ErrConflict)

	ErrEmptyQuiz         = fmt.Errorf("%w: cannot publish a quiz with no questions", ErrValidation)
	ErrStudentIDRequired = fmt.Errorf("%w: studentId is required", ErrValidation)
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidationErrors is a collection of field errors. It matches ErrValidation.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	fields := make([]string, 0, len(ve))
	for _, e := range ve {
		fields = append(fields, e.Field)
	}
	return fmt.Sprintf("validation failed: %d field errors (%s)", len(ve), strings.Join(fields, ", "))
}

func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Add appends a field error.
func (ve *ValidationErrors) Add(field, message string, value any) {
	*ve = append(*ve, ValidationError{Field: field, Message: message, Value: value})
}

// Err returns nil when no field errors were collected.
func (ve ValidationErrors) Err() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

// Category reports which taxonomy bucket err belongs to, or nil for
// infrastructure failures.
func Category(err error) error {
	for _, c := range []error{ErrValidation, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}
