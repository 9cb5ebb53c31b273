package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/forumfeed/utils"
)

const (
	listCachePrefix  = "cache:docs:"
	generationPrefix = "cache:docgen:"
)

// CachedStore caches List results in Redis. Every collection has a generation
// counter that writes advance; a list is cached under the generation read before
// fetching it and only while that generation is still current. Redis errors fall
// through to the wrapped store.
type CachedStore struct {
	Store
	rc  *redis.Client
	ttl time.Duration
}

// NewCachedStore wraps inner. A nil client disables caching.
func NewCachedStore(inner Store, rc *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: inner, rc: rc, ttl: ttl}
}

func collectionKey(collection string) string {
	return listCachePrefix + collection + "|"
}

func generationKey(collection string) string {
	return generationPrefix + collection
}

func listKey(collection string, gen int64, q Query) string {
	return fmt.Sprintf("%sgen=%d:order=%s:desc=%t", collectionKey(collection), gen, q.OrderBy, q.Descending)
}

// List implements Store.
func (s *CachedStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	if s.rc == nil {
		return s.Store.List(ctx, collection, q)
	}
	gen, err := utils.CacheGeneration(ctx, s.rc, generationKey(collection))
	if err != nil {
		utils.Sugar.Warnw("list cache bypassed", "collection", collection, "err", err)
		return s.Store.List(ctx, collection, q)
	}
	key := listKey(collection, gen, q)
	var cached []Document
	if utils.CacheGetJSON(ctx, s.rc, key, &cached) {
		return cached, nil
	}
	docs, err := s.Store.List(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	if _, err := utils.CacheSetJSONAt(ctx, s.rc, generationKey(collection), gen, key, docs, s.ttl); err != nil {
		utils.Sugar.Warnw("list cache fill failed", "key", key, "err", err)
	}
	return docs, nil
}

// written advances the collection's generation and drops lists cached under
// older ones.
func (s *CachedStore) written(ctx context.Context, collection string) {
	if s.rc == nil {
		return
	}
	if err := utils.BumpCacheGeneration(ctx, s.rc, generationKey(collection)); err != nil {
		utils.Sugar.Warnw("list cache generation bump failed", "collection", collection, "err", err)
	}
	if _, err := utils.InvalidateByPrefix(ctx, s.rc, collectionKey(collection)); err != nil {
		utils.Sugar.Warnw("list cache purge failed", "collection", collection, "err", err)
	}
}

// Add implements Store.
func (s *CachedStore) Add(ctx context.Context, collection string, data Data) (string, error) {
	id, err := s.Store.Add(ctx, collection, data)
	if err == nil {
		s.written(ctx, collection)
	}
	return id, err
}

// Update implements Store.
func (s *CachedStore) Update(ctx context.Context, collection, id string, ops ...FieldOp) error {
	err := s.Store.Update(ctx, collection, id, ops...)
	if err == nil {
		s.written(ctx, collection)
	}
	return err
}

// Delete implements Store.
func (s *CachedStore) Delete(ctx context.Context, collection, id string) error {
	err := s.Store.Delete(ctx, collection, id)
	if err == nil {
		s.written(ctx, collection)
	}
	return err
}
