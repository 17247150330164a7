package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookswap/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	ProfileKeyPrefix = "profile:%s"
	BookKeyPrefix    = "book:%d"
)

const (
	ProfileTTL = 5 * time.Minute
	BookTTL    = 10 * time.Minute
)

// ProfileKey is the cache key for a profile.
func ProfileKey(userID uuid.UUID) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

// BookKey is the cache key for a book with its images.
func BookKey(bookID uint) string {
	return fmt.Sprintf(BookKeyPrefix, bookID)
}

// Store is a JSON cache-aside layer over redis. A Store with a nil client is
// a valid no-op cache.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// GetJSON loads key into dest. It reports false on a miss or any redis error.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) bool {
	if s == nil || s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.Invalidate(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value under key for ttl. Failures are logged only.
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if s == nil || s.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// Invalidate removes keys.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || s.rdb == nil || len(keys) == 0 {
		return
	}
	s.rdb.Del(ctx, keys...)
}

// InvalidateProfile drops the cached profile for userID.
func (s *Store) InvalidateProfile(ctx context.Context, userID uuid.UUID) {
	s.Invalidate(ctx, ProfileKey(userID))
}

// InvalidateBook drops the cached book.
func (s *Store) InvalidateBook(ctx context.Context, bookID uint) {
	s.Invalidate(ctx, BookKey(bookID))
}
