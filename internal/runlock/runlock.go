// Package runlock provides an optional single-flight lease so overlapping
// scheduled runs do not race on the same pairs. The ledger's uniqueness
// constraint remains the correctness backstop when the lock is disabled.
package runlock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockKey = "referral-reconciler:run-lock"

// releaseScript deletes the lease only while we still hold it.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

type Lock struct {
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.Logger
	token string
}

func New(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Lock {
	return &Lock{rdb: rdb, ttl: ttl, log: log}
}

// Acquire takes the lease for this run. Returns false when another run holds
// it. A nil lock, and any redis failure, fail open: the base design has no
// cross-run exclusion at all, so an unavailable lock must not stop the job.
func (l *Lock) Acquire(ctx context.Context) bool {
	if l == nil {
		return true
	}

	l.token = uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, lockKey, l.token, l.ttl).Result()
	if err != nil {
		l.log.Warn("run lock unavailable, proceeding without it", zap.Error(err))
		return true
	}
	return ok
}

// Release drops the lease if this run still owns it. An expired or stolen
// lease is left alone.
func (l *Lock) Release(ctx context.Context) {
	if l == nil || l.token == "" {
		return
	}

	if err := l.rdb.Eval(ctx, releaseScript, []string{lockKey}, l.token).Err(); err != nil && err != redis.Nil {
		l.log.Warn("run lock release failed", zap.Error(err))
	}
	l.token = ""
}
