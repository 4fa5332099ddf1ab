package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrLocked is returned when another run of the same job holds the lock
var ErrLocked = errors.New("job is already running")

// Locker guards a job against overlapping runs
type Locker interface {
	// Acquire takes the lock for key or returns ErrLocked. The returned
	// release func must be called when the job finishes.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// NoopLocker never blocks; overlapping runs fall back to the rollup upsert's last-write-wins
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return func() {}, nil
}

// RedisLocker is a Locker shared by every process pointed at the same Redis
type RedisLocker struct {
	client *redis.Client
	locker *redislock.Client
}

// NewRedisLocker connects to Redis at addr
func NewRedisLocker(ctx context.Context, addr string) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("Connected to Redis for job locking")

	return &RedisLocker{
		client: client,
		locker: redislock.New(client),
	}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	release := func() {
		// The job's ctx may already be cancelled; releasing must still happen
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.WithFields(log.Fields{
				"key":   key,
				"error": err,
			}).Warn("Failed to release job lock")
		}
	}
	return release, nil
}

// Close closes the Redis connection
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
