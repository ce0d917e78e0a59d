package redis

import (
	"context"
	"fmt"
)

// CountDocuments returns the number of stored documents, optionally limited
// to the paths starting with pathPrefix.
func (s *Store) CountDocuments(ctx context.Context, pathPrefix string) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.DocKey(pathPrefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		if _, ok := s.ExtractPath(iter.Val()); ok {
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}
