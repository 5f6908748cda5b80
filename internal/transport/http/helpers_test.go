package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
)

var (
	teacher    = domain.Actor{ID: "teacher-1", Role: domain.RoleTeacher, Name: "Ms. Lee"}
	student    = domain.Actor{ID: "student-1", Role: domain.RoleStudent, Name: "Sam"}
	outsider   = domain.Actor{ID: "student-9", Role: domain.RoleStudent}
	windowOpen = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	router *gin.Engine
	inbox  *memory.Inbox
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{inbox: memory.NewInbox(), now: windowOpen.Add(30 * time.Minute)}
	classes := memory.NewClassDirectory(domain.Class{
		ID: "class-1", Name: "Math", TeacherID: teacher.ID, Students: []string{student.ID},
	})
	quizzes := memory.NewQuizCache(memory.NewQuizStore(), time.Minute)
	var n atomic.Int64
	opts := []app.Option{
		app.WithClock(func() time.Time { return f.now }),
		app.WithNotifier(f.inbox),
		app.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }),
	}
	f.router = NewRouter(RouterConfig{
		Quizzes:     app.NewQuizService(quizzes, classes, opts...),
		Submissions: app.NewSubmissionService(quizzes, memory.NewSubmissionStore(), classes, opts...),
		Feed:        f.inbox,
	})
	return f
}

func (f *fixture) do(t *testing.T, actor *domain.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		setIdentity(req.Header, *actor)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func setIdentity(h http.Header, actor domain.Actor) {
	h.Set(HeaderUserID, actor.ID)
	h.Set(HeaderUserRole, string(actor.Role))
	h.Set(HeaderUserName, actor.Name)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func quizBody() map[string]any {
	return map[string]any{
		"classId":   "class-1",
		"title":     "Fractions",
		"duration":  30,
		"startTime": windowOpen.Format(time.RFC3339),
		"endTime":   windowOpen.Add(time.Hour).Format(time.RFC3339),
		"questions": []map[string]any{
			{"text": "1/2 + 1/2?", "type": "multiple-choice", "options": []string{"1", "2"}, "correctAnswer": "1", "points": 2},
			{"text": "Half of 4 is 2", "type": "true-false", "correctAnswer": true, "points": 1},
			{"text": "Explain fractions", "type": "short-answer", "points": 3},
		},
	}
}

// publishedQuiz creates and publishes the fixture quiz and returns it as the
// teacher sees it.
func (f *fixture) publishedQuiz(t *testing.T) domain.Quiz {
	t.Helper()
	rec := f.do(t, &teacher, http.MethodPost, "/quizzes", quizBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	quiz := decode[domain.Quiz](t, rec)

	rec = f.do(t, &teacher, http.MethodPost, "/quizzes/"+quiz.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[domain.Quiz](t, rec)
}
