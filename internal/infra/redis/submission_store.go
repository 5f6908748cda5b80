package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"classroom-quiz-service/internal/domain"
)

const maxUpdateRetries = 10

// SubmissionStore keeps submissions in Redis:
//
//	submission:{id}                         JSON document
//	submission:attempt:{quizID}:{studentID} submission id, one per student and quiz
//	quiz:{quizID}:submissions               set of submission ids
//	student:{studentID}:submissions         set of submission ids
//
// Writes use WATCH/MULTI so concurrent starts and updates stay consistent.
type SubmissionStore struct {
	client *redis.Client
}

func NewSubmissionStore(client *redis.Client) *SubmissionStore {
	return &SubmissionStore{client: client}
}

func (s *SubmissionStore) Create(ctx context.Context, sub domain.Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	attempt := attemptKey(sub.QuizID, sub.StudentID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, attempt).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrDuplicateSubmission
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, attempt, sub.ID, 0)
			pipe.Set(ctx, submissionKey(sub.ID), raw, 0)
			pipe.SAdd(ctx, quizSubmissionsKey(sub.QuizID), sub.ID)
			pipe.SAdd(ctx, studentSubmissionsKey(sub.StudentID), sub.ID)
			return nil
		})
		return err
	}, attempt)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		// Someone else wrote the attempt key between WATCH and EXEC.
		return domain.ErrDuplicateSubmission
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return err
	case err != nil:
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) Get(ctx context.Context, submissionID string) (domain.Submission, error) {
	raw, err := s.client.Get(ctx, submissionKey(submissionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return decodeSubmission(raw)
}

func (s *SubmissionStore) FindByQuizAndStudent(ctx context.Context, quizID, studentID string) (domain.Submission, error) {
	id, err := s.client.Get(ctx, attemptKey(quizID, studentID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("find submission: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SubmissionStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.listSet(ctx, quizSubmissionsKey(quizID))
}

func (s *SubmissionStore) ListByStudent(ctx context.Context, studentID string) ([]domain.Submission, error) {
	return s.listSet(ctx, studentSubmissionsKey(studentID))
}

// Update applies fn under WATCH and retries when another writer got there first.
func (s *SubmissionStore) Update(ctx context.Context, submissionID string, fn func(*domain.Submission) error) (domain.Submission, error) {
	key := submissionKey(submissionID)
	var updated domain.Submission

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSubmissionNotFound
		}
		if err != nil {
			return err
		}
		sub, err := decodeSubmission(raw)
		if err != nil {
			return err
		}
		if err := fn(&sub); err != nil {
			return err
		}
		out, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("marshal submission: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			updated = sub
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if domain.Category(err) != nil {
			return domain.Submission{}, err
		}
		return domain.Submission{}, fmt.Errorf("update submission: %w", err)
	}
	return domain.Submission{}, fmt.Errorf("%w: submission %s is being modified concurrently", domain.ErrConflict, submissionID)
}

func (s *SubmissionStore) listSet(ctx context.Context, setKey string) ([]domain.Submission, error) {
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = submissionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		sub, err := decodeSubmission([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func decodeSubmission(raw []byte) (domain.Submission, error) {
	var sub domain.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return domain.Submission{}, fmt.Errorf("decode submission: %w", err)
	}
	if sub.Answers == nil {
		sub.Answers = []domain.Answer{}
	}
	return sub, nil
}

func submissionKey(id string) string { return "submission:" + id }

func attemptKey(quizID, studentID string) string {
	return "submission:attempt:" + quizID + ":" + studentID
}

func quizSubmissionsKey(quizID string) string { return "quiz:" + quizID + ":submissions" }

func studentSubmissionsKey(studentID string) string { return "student:" + studentID + ":submissions" }
