// internal/reconcilelock/lock.go
package reconcilelock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker serializes reconciliation runs per scope. Two overlapping
// invocations against the same scope would both observe the same unresolved
// transactions; the lock turns the second one into a conflict instead.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

func New(cfg Config) (*Locker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Locker{rdb: rdb, ttl: ttl}, nil
}

func (l *Locker) Close() error {
	return l.rdb.Close()
}

// Acquire takes the lock for one scope. Returns false when another run holds
// it. The TTL bounds how long a crashed run can keep a scope locked.
func (l *Locker) Acquire(ctx context.Context, scope string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key(scope), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire reconcile lock for %s: %w", scope, err)
	}
	return ok, nil
}

// Release drops the lock. Releasing a scope that already expired is a no-op.
func (l *Locker) Release(ctx context.Context, scope string) error {
	if err := l.rdb.Del(ctx, l.key(scope)).Err(); err != nil {
		return fmt.Errorf("failed to release reconcile lock for %s: %w", scope, err)
	}
	return nil
}

func (l *Locker) key(scope string) string {
	return "reconcile:" + scope
}
