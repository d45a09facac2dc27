package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quizform-backend/internal/logger"
)

// ErrGenerationInProgress is returned when a session already has a
// generation running.
var ErrGenerationInProgress = errors.New("a form generation is already running for this session")

// GenerationGuard allows one active generation per session key.
type GenerationGuard interface {
	// Acquire claims the session. The returned release func must be called
	// once the generation finishes.
	Acquire(ctx context.Context, sessionKey string) (release func(), err error)
}

// MemoryGuard keeps the active sessions in process.
type MemoryGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{active: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, sessionKey string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[sessionKey]; busy {
		return nil, ErrGenerationInProgress
	}
	g.active[sessionKey] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, sessionKey)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only if it still holds our token, so a
// lock that expired and was re-taken is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the active sessions across server instances. The TTL
// bounds how long a crashed request can hold a session.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisGuard(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisGuard{client: client, ttl: ttl, log: log.With("service", "RedisGuard")}
}

func generationLockKey(sessionKey string) string {
	return fmt.Sprintf("quizform:generation:%s", sessionKey)
}

func (g *RedisGuard) Acquire(ctx context.Context, sessionKey string) (func(), error) {
	key := generationLockKey(sessionKey)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return nil, ErrGenerationInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled.
			if err := releaseScript.Run(context.Background(), g.client, []string{key}, token).Err(); err != nil {
				g.log.Error("Failed to release generation lock", "key", key, "ttl", g.ttl, "error", err)
			}
		})
	}, nil
}
