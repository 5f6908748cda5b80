package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classroom-quiz-service/internal/domain"
)

// SubmissionStore persists submissions. The (quiz_id, student_id) unique
// constraint guarantees a single attempt per student.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) Create(ctx context.Context, sub domain.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO submissions (id, quiz_id, student_id, status, data, started_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (quiz_id, student_id) DO NOTHING
		 RETURNING id`,
		sub.ID, sub.QuizID, sub.StudentID, string(sub.Status), string(data), sub.StartedAt, sub.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrDuplicateSubmission
	}
	if isUniqueViolation(err) {
		// primary key clash
		return fmt.Errorf("%w: submission %s already exists", domain.ErrConflict, sub.ID)
	}
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, submissionID string) (domain.Submission, error) {
	return s.one(ctx, `SELECT data FROM submissions WHERE id=$1`, submissionID)
}

func (s *SubmissionStore) FindByQuizAndStudent(ctx context.Context, quizID, studentID string) (domain.Submission, error) {
	return s.one(ctx, `SELECT data FROM submissions WHERE quiz_id=$1 AND student_id=$2`, quizID, studentID)
}

func (s *SubmissionStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.many(ctx, `SELECT data FROM submissions WHERE quiz_id=$1 ORDER BY started_at, id`, quizID)
}

func (s *SubmissionStore) ListByStudent(ctx context.Context, studentID string) ([]domain.Submission, error) {
	return s.many(ctx, `SELECT data FROM submissions WHERE student_id=$1 ORDER BY started_at, id`, studentID)
}

// Update holds a row lock while fn runs so concurrent answers serialize.
func (s *SubmissionStore) Update(ctx context.Context, submissionID string, fn func(*domain.Submission) error) (domain.Submission, error) {
	var updated domain.Submission
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx, `SELECT data FROM submissions WHERE id=$1 FOR UPDATE`, submissionID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSubmissionNotFound
		}
		if err != nil {
			return fmt.Errorf("lock submission: %w", err)
		}
		sub, err := decodeSubmission(raw)
		if err != nil {
			return err
		}
		if err := fn(&sub); err != nil {
			return err
		}
		data, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("marshal submission: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE submissions SET status=$2, data=$3, updated_at=$4 WHERE id=$1`,
			submissionID, string(sub.Status), string(data), sub.UpdatedAt); err != nil {
			return fmt.Errorf("update submission: %w", err)
		}
		updated = sub
		return nil
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return updated, nil
}

func (s *SubmissionStore) one(ctx context.Context, query string, args ...any) (domain.Submission, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load submission: %w", err)
	}
	return decodeSubmission(raw)
}

func (s *SubmissionStore) many(ctx context.Context, query string, args ...any) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Submission, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub, err := decodeSubmission(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func decodeSubmission(raw []byte) (domain.Submission, error) {
	var sub domain.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal submission: %w", err)
	}
	if sub.Answers == nil {
		sub.Answers = []domain.Answer{}
	}
	return sub, nil
}
