package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"classroom-quiz-service/internal/domain"
)

func TestSubmissionStoreEnforcesOneAttempt(t *testing.T) {
	store := NewSubmissionStore()
	ctx := context.Background()
	now := time.Now()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := domain.NewSubmission(string(rune('a'+i)), sampleQuiz(), "student-1", now)
			err := store.Create(ctx, sub)
			switch {
			case err == nil:
				mu.Lock()
				created++
				mu.Unlock()
			case !errors.Is(err, domain.ErrDuplicateSubmission):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one submission, got %d", created)
	}
	subs, _ := store.ListByQuiz(ctx, "quiz-1")
	if len(subs) != 1 {
		t.Fatalf("expected one stored submission, got %d", len(subs))
	}
}

func TestSubmissionStoreUpdateAbortsOnError(t *testing.T) {
	store := NewSubmissionStore()
	ctx := context.Background()
	sub := domain.NewSubmission("s1", sampleQuiz(), "student-1", time.Now())
	if err := store.Create(ctx, sub); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	_, err := store.Update(ctx, "s1", func(s *domain.Submission) error {
		s.Status = domain.StatusGraded
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	got, _ := store.Get(ctx, "s1")
	if got.Status != domain.StatusInProgress {
		t.Fatalf("aborted update leaked status %s", got.Status)
	}

	if _, err := store.Update(ctx, "missing", func(*domain.Submission) error { return nil }); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmissionStoreLookups(t *testing.T) {
	store := NewSubmissionStore()
	ctx := context.Background()
	now := time.Now()
	other := sampleQuiz()
	other.ID = "quiz-2"

	for _, sub := range []domain.Submission{
		domain.NewSubmission("s1", sampleQuiz(), "student-1", now),
		domain.NewSubmission("s2", sampleQuiz(), "student-2", now.Add(time.Second)),
		domain.NewSubmission("s3", other, "student-1", now.Add(2*time.Second)),
	} {
		if err := store.Create(ctx, sub); err != nil {
			t.Fatalf("create %s: %v", sub.ID, err)
		}
	}

	found, err := store.FindByQuizAndStudent(ctx, "quiz-2", "student-1")
	if err != nil || found.ID != "s3" {
		t.Fatalf("expected s3, got %+v (%v)", found, err)
	}
	if _, err := store.FindByQuizAndStudent(ctx, "quiz-2", "student-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	byStudent, _ := store.ListByStudent(ctx, "student-1")
	if len(byStudent) != 2 || byStudent[0].ID != "s1" || byStudent[1].ID != "s3" {
		t.Fatalf("unexpected student listing: %+v", byStudent)
	}
}

func TestClassDirectory(t *testing.T) {
	dir := NewClassDirectory(domain.Class{ID: "class-1", Name: "Math", TeacherID: "teacher-1", Students: []string{"student-1"}})
	ctx := context.Background()

	ok, err := dir.IsEnrolled(ctx, "class-1", "student-1")
	if err != nil || !ok {
		t.Fatalf("expected enrolled, got %v %v", ok, err)
	}
	if err := dir.Enroll("class-1", "student-2"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	students, _ := dir.ListStudents(ctx, "class-1")
	if len(students) != 2 {
		t.Fatalf("expected two students, got %v", students)
	}
	if _, err := dir.GetClass(ctx, "class-9"); !errors.Is(err, domain.ErrClassNotFound) {
		t.Fatalf("expected class not found, got %v", err)
	}
}

func TestInboxDeliversToSubscribers(t *testing.T) {
	inbox := NewInbox()
	ch, cancel := inbox.Subscribe("student-1")
	defer cancel()

	n := domain.Notification{RecipientID: "student-1", Type: domain.NotifyGradeAvailable, Title: "graded"}
	if err := inbox.Notify(context.Background(), n); err != nil {
		t.Fatalf("notify: %v", err)
	}
	_ = inbox.Notify(context.Background(), domain.Notification{RecipientID: "student-2"})

	select {
	case got := <-ch:
		if got.Title != "graded" {
			t.Fatalf("unexpected notification %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for notification")
	}
	if len(inbox.List("student-1")) != 1 {
		t.Fatalf("expected one stored notification")
	}
}

func TestInboxSlowSubscriberKeepsLatest(t *testing.T) {
	inbox := NewInbox()
	ch, cancel := inbox.Subscribe("student-1")
	for i := 0; i < 20; i++ {
		_ = inbox.Notify(context.Background(), domain.Notification{RecipientID: "student-1", Message: string(rune('a' + i))})
	}
	cancel()

	var last domain.Notification
	for n := range ch {
		last = n
	}
	if last.Message != string(rune('a'+19)) {
		t.Fatalf("expected newest notification to survive, got %q", last.Message)
	}
	cancel()
}
