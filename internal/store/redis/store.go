package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/splat3api/splatsync/internal/domain"
)

// zaddBatch bounds the number of members sent per ZADD.
const zaddBatch = 500

// Store is the freshness cache backed by Redis.
// It is safe for concurrent use.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks the connection. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Set stores value under key. ttl <= 0 stores without expiry; otherwise the
// TTL is truncated to whole seconds (minimum one second).
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, wholeSeconds(ttl)).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrCacheWrite, key, err)
	}
	return nil
}

// Get returns the value and remaining TTL of key. ok is false on a miss.
func (s *Store) Get(ctx context.Context, key string) (domain.CacheEntry, bool, error) {
	var get *redis.StringCmd
	var ttl *redis.DurationCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, key)
		ttl = p.TTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.CacheEntry{}, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	value, err := get.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CacheEntry{}, false, nil // Cache miss
		}
		return domain.CacheEntry{}, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	entry := domain.CacheEntry{Key: key, Value: value}
	// TTL replies -1 (no expiry) or -2 (gone since GET) as negative durations
	if d := ttl.Val(); d > 0 {
		entry.TTL = d
		entry.Expires = true
	}
	return entry, true, nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: del: %w", domain.ErrCacheWrite, err)
	}
	return nil
}

// WriteSortedSet replaces the content of key with members.
//
// The write is not atomic: DEL is followed by as many ZADD as needed, so it
// is meant for staging keys that nobody reads.
func (s *Store) WriteSortedSet(ctx context.Context, key string, members []domain.ScoredMember) error {
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		for start := 0; start < len(members); start += zaddBatch {
			end := min(start+zaddBatch, len(members))
			batch := make([]redis.Z, 0, end-start)
			for _, m := range members[start:end] {
				batch = append(batch, redis.Z{Score: m.Score, Member: m.Member})
			}
			p.ZAdd(ctx, key, batch...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: write sorted set %s: %w", domain.ErrCacheWrite, key, err)
	}
	return nil
}

// AtomicReplace promotes tempKey to finalKey with a single RENAME.
// Readers of finalKey see either the previous or the new content, never a mix.
func (s *Store) AtomicReplace(ctx context.Context, tempKey, finalKey string) error {
	if err := s.client.Rename(ctx, tempKey, finalKey).Err(); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %w", domain.ErrCacheWrite, tempKey, finalKey, err)
	}
	return nil
}

// Members returns the members of a sorted set in score order.
func (s *Store) Members(ctx context.Context, key string) ([][]byte, error) {
	vals, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}

// Count returns the cardinality of a sorted set.
func (s *Store) Count(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", key, err)
	}
	return n, nil
}

// ReplaceDataset stages members in the dataset temp key, promotes it over the
// published key and records capturedAt.
func (s *Store) ReplaceDataset(ctx context.Context, dataset string, members []domain.ScoredMember, capturedAt time.Time) error {
	if len(members) == 0 {
		return fmt.Errorf("%w: refusing to publish empty dataset %s", domain.ErrCacheWrite, dataset)
	}
	temp := TempKey(dataset)
	if err := s.WriteSortedSet(ctx, temp, members); err != nil {
		return err
	}
	if err := s.AtomicReplace(ctx, temp, DataKey(dataset)); err != nil {
		_ = s.Delete(context.WithoutCancel(ctx), temp)
		return err
	}
	return s.Set(ctx, UpdatedAtKey(dataset), []byte(capturedAt.UTC().Format(time.RFC3339)), 0)
}

func wholeSeconds(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if ttl < time.Second {
		return time.Second
	}
	return ttl.Truncate(time.Second)
}
