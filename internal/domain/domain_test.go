package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func window(published bool) Quiz {
	return Quiz{
		ID:          "quiz-1",
		ClassID:     "class-1",
		CreatedBy:   "teacher-1",
		Title:       "Fractions",
		Duration:    30,
		StartTime:   base,
		EndTime:     base.Add(time.Hour),
		IsPublished: published,
		Questions: []Question{
			{ID: "q1", Text: "Pick A", Type: MultipleChoice, Options: []string{"A", "B"}, CorrectAnswer: Text("A").Ptr(), Points: 2},
			{ID: "q2", Text: "Explain", Type: ShortAnswer, Points: 3},
		},
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		published bool
		now       time.Time
		want      QuizStatus
	}{
		{name: "draft ignores clock", published: false, now: base.Add(10 * time.Minute), want: QuizDraft},
		{name: "upcoming", published: true, now: base.Add(-time.Second), want: QuizUpcoming},
		{name: "active at start", published: true, now: base, want: QuizActive},
		{name: "active at end", published: true, now: base.Add(time.Hour), want: QuizActive},
		{name: "ended", published: true, now: base.Add(time.Hour + time.Second), want: QuizEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(window(tt.published), tt.now))
		})
	}
}

func TestRedactedLeavesOriginalIntact(t *testing.T) {
	q := window(true)
	r := q.Redacted()

	for _, question := range r.Questions {
		assert.Nil(t, question.CorrectAnswer)
	}
	require.NotNil(t, q.Questions[0].CorrectAnswer)
	assert.Equal(t, "A", q.Questions[0].CorrectAnswer.String())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "correctAnswer")
}

func TestViewFor(t *testing.T) {
	q := window(true)

	creator := q.ViewFor(Actor{ID: "teacher-1", Role: RoleTeacher})
	assert.NotNil(t, creator.Questions[0].CorrectAnswer)

	other := q.ViewFor(Actor{ID: "teacher-2", Role: RoleTeacher})
	assert.Nil(t, other.Questions[0].CorrectAnswer)

	student := q.ViewFor(Actor{ID: "teacher-1", Role: RoleStudent})
	assert.Nil(t, student.Questions[0].CorrectAnswer)
}

func TestPublish(t *testing.T) {
	q := window(false)
	require.NoError(t, q.Publish())
	assert.True(t, q.IsPublished)
	assert.ErrorIs(t, q.Publish(), ErrConflict)

	empty := Quiz{}
	err := empty.Publish()
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, empty.IsPublished)
}

func TestQuizPatchRefusesQuestionsOncePublished(t *testing.T) {
	q := window(true)
	title := "Decimals"
	questions := []Question{}

	err := QuizPatch{Title: &title, Questions: &questions}.Apply(&q)
	assert.ErrorIs(t, err, ErrQuizPublished)
	assert.Equal(t, "Fractions", q.Title)

	require.NoError(t, QuizPatch{Title: &title}.Apply(&q))
	assert.Equal(t, "Decimals", q.Title)
}

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name    string
		in      Question
		wantErr bool
	}{
		{name: "mc ok", in: Question{Text: "x", Type: MultipleChoice, Options: []string{"A", "B"}, CorrectAnswer: Text("B").Ptr()}},
		{name: "mc one option", in: Question{Text: "x", Type: MultipleChoice, Options: []string{"A"}, CorrectAnswer: Text("A").Ptr()}, wantErr: true},
		{name: "mc key not an option", in: Question{Text: "x", Type: MultipleChoice, Options: []string{"A", "B"}, CorrectAnswer: Text("C").Ptr()}, wantErr: true},
		{name: "mc missing key", in: Question{Text: "x", Type: MultipleChoice, Options: []string{"A", "B"}}, wantErr: true},
		{name: "tf string key", in: Question{Text: "x", Type: TrueFalse, CorrectAnswer: Text("false").Ptr()}},
		{name: "tf bad key", in: Question{Text: "x", Type: TrueFalse, CorrectAnswer: Text("maybe").Ptr()}, wantErr: true},
		{name: "tf with options", in: Question{Text: "x", Type: TrueFalse, Options: []string{"a"}, CorrectAnswer: Bool(true).Ptr()}, wantErr: true},
		{name: "sa ok", in: Question{Text: "x", Type: ShortAnswer}},
		{name: "blank text", in: Question{Text: "  ", Type: ShortAnswer}, wantErr: true},
		{name: "negative points", in: Question{Text: "x", Type: ShortAnswer, Points: -1}, wantErr: true},
		{name: "unknown type", in: Question{Text: "x", Type: "essay"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateQuestion(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				var ve ValidationErrors
				assert.True(t, errors.As(err, &ve))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateQuestionNormalizes(t *testing.T) {
	q, err := ValidateQuestion(Question{Text: " Is it? ", Type: TrueFalse, CorrectAnswer: Text("true").Ptr()})
	require.NoError(t, err)
	assert.Equal(t, "Is it?", q.Text)
	assert.Equal(t, DefaultPoints, q.Points)
	b, ok := q.CorrectAnswer.Bool()
	assert.True(t, ok)
	assert.True(t, b)

	sa, err := ValidateQuestion(Question{Text: "x", Type: ShortAnswer, CorrectAnswer: Text("model").Ptr()})
	require.NoError(t, err)
	assert.Nil(t, sa.CorrectAnswer)
}

func TestPrepareQuestionsAssignsUniqueIDs(t *testing.T) {
	n := 0
	newID := func() string { n++; return "gen-" + strconv.Itoa(n) }

	out, err := PrepareQuestions([]Question{
		{ID: "same", Text: "a", Type: ShortAnswer},
		{ID: "same", Text: "b", Type: ShortAnswer},
		{Text: "c", Type: ShortAnswer},
	}, newID)
	require.NoError(t, err)
	assert.Equal(t, "same", out[0].ID)
	assert.Equal(t, "gen-1", out[1].ID)
	assert.Equal(t, "gen-2", out[2].ID)
}

func TestPrepareQuestionsPrefixesFields(t *testing.T) {
	_, err := PrepareQuestions([]Question{
		{Text: "ok", Type: ShortAnswer},
		{Text: "", Type: ShortAnswer},
	}, func() string { return "id" })
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve, 1)
	assert.Equal(t, "questions[1].text", ve[0].Field)
}

func TestNormalizeAnswer(t *testing.T) {
	v, err := NormalizeAnswer(TrueFalse, Text("true"))
	require.NoError(t, err)
	assert.True(t, v.Equal(Bool(true)))

	_, err = NormalizeAnswer(TrueFalse, Text("yes"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NormalizeAnswer(MultipleChoice, Bool(true))
	assert.ErrorIs(t, err, ErrValidation)

	v, err = NormalizeAnswer(ShortAnswer, Text("words"))
	require.NoError(t, err)
	assert.True(t, v.Equal(Text("words")))
}

func TestValueEqualIsStrict(t *testing.T) {
	assert.False(t, Text("true").Equal(Bool(true)))
	assert.True(t, Text("A").Equal(Text("A")))
	assert.False(t, Text("A").Equal(Text("a")))
	assert.True(t, Value{}.Equal(Value{}))
}

func TestValueJSON(t *testing.T) {
	var a Answer
	require.NoError(t, json.Unmarshal([]byte(`{"questionId":"q","answer":true}`), &a))
	assert.Equal(t, KindBool, a.Answer.Kind())

	require.NoError(t, json.Unmarshal([]byte(`{"questionId":"q","answer":"B"}`), &a))
	assert.Equal(t, KindText, a.Answer.Kind())

	assert.Error(t, json.Unmarshal([]byte(`{"questionId":"q","answer":42}`), &a))
}

func TestSubmissionLifecycle(t *testing.T) {
	quiz := window(true)
	sub := NewSubmission("s1", quiz, "student-1", base)
	assert.Equal(t, 5, sub.TotalPoints)
	assert.Equal(t, StatusInProgress, sub.Status)
	assert.ErrorIs(t, sub.CheckGradable(), ErrConflict)

	require.NoError(t, sub.UpsertAnswer(Answer{QuestionID: "q1", Answer: Text("B")}, base))
	require.NoError(t, sub.UpsertAnswer(Answer{QuestionID: "q1", Answer: Text("A")}, base))
	require.Len(t, sub.Answers, 1)
	assert.Equal(t, "A", sub.Answers[0].Answer.String())

	require.NoError(t, sub.MarkCompleted(base.Add(time.Minute)))
	require.NotNil(t, sub.CompletedAt)
	assert.ErrorIs(t, sub.MarkCompleted(base), ErrSubmissionCompleted)
	assert.ErrorIs(t, sub.UpsertAnswer(Answer{QuestionID: "q2"}, base), ErrConflict)

	require.NoError(t, sub.Settle(2, 5, true))
	assert.Equal(t, StatusGraded, sub.Status)
	assert.ErrorIs(t, sub.Settle(2, 5, false), ErrInvalidTransition)
}

func TestCategory(t *testing.T) {
	assert.Equal(t, ErrNotFound, Category(ErrQuizNotFound))
	assert.Equal(t, ErrForbidden, Category(ErrNotEnrolled))
	assert.Equal(t, ErrConflict, Category(ErrDuplicateSubmission))
	assert.Equal(t, ErrValidation, Category(ValidationErrors{{Field: "f"}}))
	assert.Nil(t, Category(errors.New("boom")))
}
