package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
)

// QuizCache caches quizzes in Redis as JSON under quiz:{id} and falls back to
// the backing repository on a miss. Cache errors degrade to the backing store.
type QuizCache struct {
	client  *redis.Client
	backing app.QuizRepository
	ttl     time.Duration
	sf      singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCache(client *redis.Client, backing app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) Create(ctx context.Context, quiz domain.Quiz) error {
	return c.backing.Create(ctx, quiz)
}

func (c *QuizCache) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if quiz, ok := c.lookup(ctx, quizID); ok {
			return quiz, nil
		}
		quiz, err := c.backing.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

func (c *QuizCache) ListByClass(ctx context.Context, classID string) ([]domain.Quiz, error) {
	return c.backing.ListByClass(ctx, classID)
}

func (c *QuizCache) Update(ctx context.Context, quizID string, fn func(*domain.Quiz) error) (domain.Quiz, error) {
	quiz, err := c.backing.Update(ctx, quizID, fn)
	if err != nil {
		return domain.Quiz{}, err
	}
	c.store(ctx, quiz)
	return quiz, nil
}

// Invalidate removes the cached copy of a quiz.
func (c *QuizCache) Invalidate(ctx context.Context, quizID string) error {
	return c.client.Del(ctx, quizKey(quizID)).Err()
}

func (c *QuizCache) lookup(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

// store writes quiz to redis. A non-positive ttl disables caching, matching
// the in-memory cache; redis would otherwise keep the key forever.
func (c *QuizCache) store(ctx context.Context, quiz domain.Quiz) {
	if c.ttl <= 0 {
		_ = c.client.Del(ctx, quizKey(quiz.ID)).Err()
		return
	}
	raw, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, quizKey(quiz.ID), raw, c.ttlWithJitter()).Err(); err != nil && !errors.Is(err, context.Canceled) {
		// best effort: the next read falls back to the backing store
		_ = c.client.Del(ctx, quizKey(quiz.ID)).Err()
	}
}

func quizKey(quizID string) string {
	return "quiz:" + quizID
}

// ttlWithJitter expects a positive ttl.
func (c *QuizCache) ttlWithJitter() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
