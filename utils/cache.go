package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoCache is returned by the generation helpers when Redis is not configured.
var ErrNoCache = errors.New("cache: redis not configured")

const (
	cacheFallbackTTL = time.Hour
	cacheOpTimeout   = 2 * time.Second
	purgeBatch       = 500
)

var errGenerationMoved = errors.New("cache: generation moved")

// CacheGetJSON decodes the entry at key into dst. It reports false on a miss,
// when Redis is unreachable, or when the entry no longer decodes; undecodable
// entries are removed.
func CacheGetJSON(ctx context.Context, rc *redis.Client, key string, dst any) bool {
	if rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	raw, err := rc.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false
	case err != nil:
		Sugar.Debugw("cache read failed", "key", key, "err", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		Sugar.Warnw("dropping undecodable cache entry", "key", key, "err", err)
		rc.Del(ctx, key)
		return false
	}
	return true
}

// CacheGeneration reads the counter at genKey. A counter that was never bumped
// is generation zero.
func CacheGeneration(ctx context.Context, rc *redis.Client, genKey string) (int64, error) {
	if rc == nil {
		return 0, ErrNoCache
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	gen, err := rc.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// BumpCacheGeneration advances the counter at genKey so entries filled under an
// older generation are never written or read again.
func BumpCacheGeneration(ctx context.Context, rc *redis.Client, genKey string) error {
	if rc == nil {
		return ErrNoCache
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	return rc.Incr(ctx, genKey).Err()
}

// CacheSetJSONAt stores v at key only while the counter at genKey still reads
// gen. The check and the write run in one WATCH/MULTI transaction. It reports
// whether the entry was written. ttl <= 0 means one hour.
func CacheSetJSONAt(ctx context.Context, rc *redis.Client, genKey string, gen int64, key string, v any, ttl time.Duration) (bool, error) {
	if rc == nil {
		return false, ErrNoCache
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = cacheFallbackTTL
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	err = rc.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errGenerationMoved
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errGenerationMoved) || errors.Is(err, redis.TxFailedErr) {
		Sugar.Debugw("skipping cache fill for an older generation", "key", key, "gen", gen)
		return false, nil
	}
	return err == nil, err
}

// InvalidateByPrefix unlinks every key starting with prefix and returns how
// many were removed.
func InvalidateByPrefix(ctx context.Context, rc *redis.Client, prefix string) (int, error) {
	if rc == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	removed := 0
	batch := make([]string, 0, purgeBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := rc.Unlink(ctx, batch...).Result()
		removed += int(n)
		batch = batch[:0]
		return err
	}
	iter := rc.Scan(ctx, 0, prefix+"*", purgeBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}
