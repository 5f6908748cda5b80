package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	"classroom-quiz-service/internal/infra/postgres"
	pgmigrations "classroom-quiz-service/internal/infra/postgres/migrations"
	infraredis "classroom-quiz-service/internal/infra/redis"
)

var (
	teacher = domain.Actor{ID: "teacher-1", Role: domain.RoleTeacher, Name: "Ms. Lee"}
	student = domain.Actor{ID: "student-1", Role: domain.RoleStudent, Name: "Sam"}
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	classes := postgres.NewClassDirectory(pool)
	if err := classes.Upsert(ctx, domain.Class{ID: "class-1", Name: "Math", TeacherID: teacher.ID, Students: []string{student.ID, "student-2"}}); err != nil {
		t.Fatalf("seed class: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	inbox := memory.NewInbox()
	quizzes := infraredis.NewQuizCache(redisClient, postgres.NewQuizStore(pool), 5*time.Minute)
	opts := []app.Option{app.WithNotifier(inbox)}
	quizService := app.NewQuizService(quizzes, classes, opts...)
	submissionService := app.NewSubmissionService(quizzes, postgres.NewSubmissionStore(pool), classes, opts...)

	now := time.Now().UTC()
	quiz, err := quizService.CreateQuiz(ctx, teacher, app.CreateQuizInput{
		ClassID:   "class-1",
		Title:     "Fractions",
		Duration:  30,
		StartTime: now.Add(-time.Minute),
		EndTime:   now.Add(time.Hour),
		Questions: []domain.Question{
			{Text: "1/2 + 1/2?", Type: domain.MultipleChoice, Options: []string{"1", "2"}, CorrectAnswer: domain.Text("1").Ptr(), Points: 2},
			{Text: "Explain fractions", Type: domain.ShortAnswer, Points: 3},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := quizService.PublishQuiz(ctx, teacher, quiz.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := len(inbox.List("student-2")); got != 1 {
		t.Fatalf("expected publish notification for student-2, got %d", got)
	}

	// Concurrent starts must converge on one submission.
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := submissionService.StartQuiz(ctx, student, quiz.ID)
			if err != nil {
				t.Errorf("start quiz: %v", err)
				return
			}
			mu.Lock()
			ids[res.Submission.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(ids) != 1 {
		t.Fatalf("expected one submission id, got %v", ids)
	}
	var subID string
	for id := range ids {
		subID = id
	}

	mc, sa := quiz.Questions[0], quiz.Questions[1]
	if _, err := submissionService.SubmitAnswer(ctx, student, subID, mc.ID, domain.Text("1")); err != nil {
		t.Fatalf("answer mc: %v", err)
	}
	if _, err := submissionService.SubmitAnswer(ctx, student, subID, sa.ID, domain.Text("parts of a whole")); err != nil {
		t.Fatalf("answer sa: %v", err)
	}

	completed, err := submissionService.CompleteQuiz(ctx, student, subID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Submission.Status != domain.StatusCompleted || completed.Submission.TotalScore != 2 {
		t.Fatalf("unexpected completion %+v", completed.Submission)
	}

	graded, err := submissionService.GradeSubmission(ctx, teacher, subID, []domain.Grade{{QuestionID: sa.ID, Points: 3, Feedback: "great"}})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if graded.Submission.Status != domain.StatusGraded || graded.Submission.TotalScore != 5 {
		t.Fatalf("unexpected grading result %+v", graded.Submission)
	}

	marks, err := submissionService.GetClassQuizMarks(ctx, student, "class-1", "")
	if err != nil {
		t.Fatalf("marks: %v", err)
	}
	if len(marks.QuizResults) != 1 || marks.QuizResults[0].Score == nil || *marks.QuizResults[0].Score != 5 {
		t.Fatalf("unexpected marks %+v", marks)
	}

	if _, err := pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quiz.ID); err == nil {
		t.Fatalf("deleting a quiz with submissions should violate the foreign key")
	}
	if _, err := postgres.NewSubmissionStore(pool).Get(ctx, subID); err != nil {
		t.Fatalf("submission should survive the failed delete: %v", err)
	}
}

func TestRedisSubmissionStoreAgainstRealRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, cleanup := startRedis(t, ctx)
	defer cleanup()
	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	store := infraredis.NewSubmissionStore(client)
	quiz := domain.Quiz{ID: "quiz-1", Questions: []domain.Question{{ID: "q1", Type: domain.ShortAnswer, Points: 1}}}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Create(ctx, domain.NewSubmission(fmt.Sprintf("sub-%d", i), quiz, student.ID, time.Now()))
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("expected exactly one created submission, got %d", created)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
