package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/redis/go-redis/v9"
)

// maxTxAttempts bounds optimistic-lock retries when a watched document
// changes between read and commit.
const maxTxAttempts = 5

// Options configures a Store.
type Options struct {
	KeyPrefix string // defaults to DefaultKeyPrefix
	MaxBytes  int    // per-document limit, zero disables it
}

// Store is a document backend on top of Redis. Each document is a JSON
// string; each collection is a set of document ids.
type Store struct {
	client   *redis.Client
	prefix   string
	maxBytes int
}

// NewStore creates a Redis-backed document store.
func NewStore(client *redis.Client, opts Options) *Store {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client:   client,
		prefix:   prefix,
		maxBytes: opts.MaxBytes,
	}
}

// Get retrieves the document at path.
func (s *Store) Get(ctx context.Context, path string) (docstore.Document, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.DocKey(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", path, err)
	}

	return docstore.ParseDocument(data)
}

// List retrieves every document of collection keyed by id.
func (s *Store) List(ctx context.Context, collection string) (map[string]docstore.Document, error) {
	ids, err := s.client.SMembers(ctx, s.CollectionKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get ids of %s: %w", collection, err)
	}

	docs := make(map[string]docstore.Document, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.DocKey(collection + "/" + id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get documents of %s: %w", collection, err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Stale index entry
			continue
		}
		doc, err := docstore.ParseDocument([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("document %s/%s: %w", collection, ids[i], err)
		}
		docs[ids[i]] = doc
	}

	return docs, nil
}

// Commit applies muts in one MULTI/EXEC transaction, watching every touched
// document so concurrent writers cannot interleave.
func (s *Store) Commit(ctx context.Context, muts []docstore.Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(muts))
	keys := make([]string, 0, len(muts))
	for _, m := range muts {
		if _, ok := seen[m.Path]; ok {
			continue
		}
		seen[m.Path] = struct{}{}
		keys = append(keys, s.DocKey(m.Path))
	}

	txf := func(tx *redis.Tx) error {
		changes, err := docstore.Plan(muts, func(path string) ([]byte, error) {
			data, err := tx.Get(ctx, s.DocKey(path)).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil, nil
			}
			return data, err
		}, s.maxBytes)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, c := range changes {
				collection, id := docstore.SplitPath(c.Path)
				if c.Deleted {
					pipe.Del(ctx, s.DocKey(c.Path))
					pipe.SRem(ctx, s.CollectionKey(collection), id)
					continue
				}
				pipe.Set(ctx, s.DocKey(c.Path), c.Data, 0)
				pipe.SAdd(ctx, s.CollectionKey(collection), id)
			}
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, docstore.ErrDocumentTooLarge) || errors.Is(err, docstore.ErrInvalidPath) {
			return err
		}
		return fmt.Errorf("failed to commit %d mutations: %w", len(muts), err)
	}

	return fmt.Errorf("failed to commit after %d attempts: %w", maxTxAttempts, redis.TxFailedErr)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
