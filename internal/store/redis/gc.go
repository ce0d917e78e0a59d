package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// CollectGarbage removes collection index entries whose document no longer
// exists and returns how many were removed. A collection that changes while
// it is checked is skipped until the next run.
func (s *Store) CollectGarbage(ctx context.Context) (int, error) {
	removed := 0
	prefix := s.prefix + collectionSegment

	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		collection := strings.TrimPrefix(key, prefix)

		n, err := s.collectCollection(ctx, key, collection)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan collections: %w", err)
	}
	return removed, nil
}

func (s *Store) collectCollection(ctx context.Context, key, collection string) (int, error) {
	removed := 0
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		ids, err := tx.SMembers(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to get ids of %s: %w", collection, err)
		}

		var stale []any
		for _, id := range ids {
			n, err := tx.Exists(ctx, s.DocKey(collection+"/"+id)).Result()
			if err != nil {
				return fmt.Errorf("failed to check %s/%s: %w", collection, id, err)
			}
			if n == 0 {
				stale = append(stale, id)
			}
		}
		if len(stale) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SRem(ctx, key, stale...)
			return nil
		})
		if err == nil {
			removed = len(stale)
		}
		return err
	}, key)
	return removed, err
}
