package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
)

// QuizCache is a read-through TTL cache in front of a quiz repository.
// Writes go to the backing repository and refresh the cached copy.
type QuizCache struct {
	backing app.QuizRepository
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizCache(backing app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		backing: backing,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedQuiz),
	}
}

func (c *QuizCache) Create(ctx context.Context, quiz domain.Quiz) error {
	return c.backing.Create(ctx, quiz)
}

func (c *QuizCache) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := c.lookup(quizID); ok {
			return quiz, nil
		}
		quiz, err := c.backing.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.store(quiz)
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
		c.Invalidate(quizID)
		return domain.Quiz{}, err
	}
	c.store(quiz)
	return quiz, nil
}

// Invalidate drops the cached copy of a quiz.
func (c *QuizCache) Invalidate(quizID string) {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
}

func (c *QuizCache) lookup(quizID string) (domain.Quiz, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz.Clone(), true
}

func (c *QuizCache) store(quiz domain.Quiz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[quiz.ID] = cachedQuiz{
		quiz:      quiz.Clone(),
		expiresAt: c.clock().Add(c.ttlWithJitter()),
	}
}

// ttlWithJitter must be called with mu held.
func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
