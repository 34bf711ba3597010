package attempts

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ba"

// Store tracks failed authentication attempt timestamps per identifier.
type Store struct {
	redis  redis.UniversalClient
	window time.Duration
	ttl    time.Duration
}

// NewStore creates a Store. window is the rolling attempt window; retention
// pads the key TTL past the window so an active ban outlives its oldest
// attempt record.
func NewStore(redisClient redis.UniversalClient, window, retention time.Duration) *Store {
	if retention < window {
		retention = window
	}
	return &Store{
		redis:  redisClient,
		window: window,
		ttl:    retention,
	}
}

func (s *Store) key(identifier string) string {
	return keyPrefix + ":" + identifier
}

// Record appends now to the identifier's attempt sequence and prunes
// entries that fell out of the window. Failures are logged and swallowed.
func (s *Store) Record(ctx context.Context, identifier string, now time.Time) {
	if s == nil || identifier == "" {
		return
	}
	key := s.key(identifier)
	ms := now.UnixMilli()

	pipe := s.redis.TxPipeline()
	// The member carries a nonce so attempts landing in the same
	// millisecond stay distinct entries; only the score is read back.
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(ms),
		Member: strconv.FormatInt(ms, 10) + ":" + uuid.NewString(),
	})
	pipe.ZRemRangeByScore(ctx, key, "-inf", s.cutoff(now))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Print("authgate: attempt record failed")
	}
}

// Clear removes all attempt records for the identifier.
func (s *Store) Clear(ctx context.Context, identifier string) {
	if s == nil || identifier == "" {
		return
	}
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		log.Print("authgate: attempt clear failed")
	}
}

// Snapshot returns the identifier's attempt timestamps inside the window,
// sorted ascending. The pruning of expired entries is persisted as a side
// effect. A backend failure yields an empty snapshot.
func (s *Store) Snapshot(ctx context.Context, identifier string, now time.Time) []time.Time {
	if s == nil || identifier == "" {
		return nil
	}
	key := s.key(identifier)

	if err := s.redis.ZRemRangeByScore(ctx, key, "-inf", s.cutoff(now)).Err(); err != nil {
		log.Print("authgate: attempt prune failed")
		return nil
	}
	raw, err := s.redis.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		log.Print("authgate: attempt read failed")
		return nil
	}

	out := make([]time.Time, 0, len(raw))
	for _, z := range raw {
		out = append(out, time.UnixMilli(int64(z.Score)))
	}
	return out
}

// cutoff is the newest score that still counts as expired.
func (s *Store) cutoff(now time.Time) string {
	edge := now.Add(-s.window).UnixMilli()
	return strconv.FormatInt(edge, 10)
}
