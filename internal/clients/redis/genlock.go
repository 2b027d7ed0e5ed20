package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

// GenerationLock is a cross-process mutex keyed by combination id. It backs
// the at-most-one-generation guarantee when more than one backend replica
// shares the artifact store; a single replica gets the same guarantee from
// in-process singleflight alone.
type GenerationLock interface {
	// TryAcquire claims the lock for id. Returns false when another process
	// holds it.
	TryAcquire(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
	Close() error
}

type generationLock struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewGenerationLock connects to the redis instance named by REDIS_ADDR.
// Callers skip construction entirely when the env var is unset.
func NewGenerationLock(log *logger.Logger) (GenerationLock, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	// The TTL bounds how long a crashed holder can block other replicas. It
	// must exceed the worst-case generation time including retries.
	return &generationLock{
		log:    log.With("service", "RedisGenerationLock"),
		rdb:    rdb,
		prefix: "lookbook:genlock:",
		ttl:    15 * time.Minute,
	}, nil
}

func (l *generationLock) TryAcquire(ctx context.Context, id string) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("generation lock not initialized")
	}
	ok, err := l.rdb.SetNX(ctx, l.prefix+id, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (l *generationLock) Release(ctx context.Context, id string) error {
	if l == nil || l.rdb == nil {
		return fmt.Errorf("generation lock not initialized")
	}
	return l.rdb.Del(ctx, l.prefix+id).Err()
}

func (l *generationLock) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
