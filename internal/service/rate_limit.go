package service

import (
	"context"
	"sync"
	"time"

	"music_stream/internal/repository"
	"music_stream/pkg/logger"

	"golang.org/x/time/rate"
)

const rateLimitWindow = time.Minute

type RateLimitService interface {
	// Allow counts one request for key and reports whether it fits the limit,
	// along with the remaining budget.
	Allow(ctx context.Context, key string) (bool, int, error)
	Limit() int
}

// NewRateLimitService counts in redis when repo is set, so limits hold across
// processes; otherwise it falls back to in-process token buckets.
func NewRateLimitService(repo repository.RateLimitRepository, perMinute int, log logger.Logger) RateLimitService {
	if perMinute <= 0 {
		perMinute = 100
	}
	if repo != nil {
		return &redisRateLimitService{repo: repo, limit: perMinute, log: log}
	}
	return newLocalRateLimitService(perMinute)
}

type redisRateLimitService struct {
	repo  repository.RateLimitRepository
	limit int
	log   logger.Logger
}

func (s *redisRateLimitService) Allow(ctx context.Context, key string) (bool, int, error) {
	count, err := s.repo.Hit(ctx, key, rateLimitWindow)
	if err != nil {
		return false, 0, err
	}
	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= s.limit, remaining, nil
}

func (s *redisRateLimitService) Limit() int { return s.limit }

type keyLimiter struct {
	lim *rate.Limiter
	ts  time.Time
}

type localRateLimitService struct {
	mu    sync.Mutex
	m     map[string]*keyLimiter
	limit int
	ttl   time.Duration
}

func newLocalRateLimitService(perMinute int) *localRateLimitService {
	return &localRateLimitService{m: make(map[string]*keyLimiter), limit: perMinute, ttl: 10 * time.Minute}
}

func (s *localRateLimitService) Allow(_ context.Context, key string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	kl, ok := s.m[key]
	if !ok {
		kl = &keyLimiter{lim: rate.NewLimiter(rate.Every(rateLimitWindow/time.Duration(s.limit)), s.limit)}
		s.m[key] = kl
		s.gc(now)
	}
	kl.ts = now

	allowed := kl.lim.AllowN(now, 1)
	remaining := int(kl.lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, nil
}

// gc drops idle buckets; called with mu held whenever a new key appears.
func (s *localRateLimitService) gc(now time.Time) {
	for k, v := range s.m {
		if now.Sub(v.ts) > s.ttl {
			delete(s.m, k)
		}
	}
}

func (s *localRateLimitService) Limit() int { return s.limit }
