// Package memory is an in-process document backend. It is used for tests,
// local development and as the store of last resort when no database is
// configured.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
)

// Store keeps every document as encoded JSON, grouped by collection path.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte // collection -> id -> document
	maxBytes    int
	lastCommit  time.Time
}

// New creates an empty store. Documents larger than maxBytes are rejected;
// zero disables the limit.
func New(maxBytes int) *Store {
	return &Store{
		collections: make(map[string]map[string][]byte),
		maxBytes:    maxBytes,
	}
}

// Get returns the document at path.
func (s *Store) Get(_ context.Context, path string) (docstore.Document, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	collection, id := docstore.SplitPath(path)
	raw, ok := s.collections[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return docstore.ParseDocument(raw)
}

// List returns every document directly inside collection, keyed by id.
func (s *Store) List(_ context.Context, collection string) (map[string]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make(map[string]docstore.Document, len(s.collections[collection]))
	for id, raw := range s.collections[collection] {
		doc, err := docstore.ParseDocument(raw)
		if err != nil {
			return nil, err
		}
		docs[id] = doc
	}
	return docs, nil
}

// Commit applies muts atomically under the write lock.
func (s *Store) Commit(_ context.Context, muts []docstore.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes, err := docstore.Plan(muts, s.load, s.maxBytes)
	if err != nil {
		return err
	}

	for _, c := range changes {
		collection, id := docstore.SplitPath(c.Path)
		if c.Deleted {
			delete(s.collections[collection], id)
			if len(s.collections[collection]) == 0 {
				delete(s.collections, collection)
			}
			continue
		}
		docs, ok := s.collections[collection]
		if !ok {
			docs = make(map[string][]byte)
			s.collections[collection] = docs
		}
		docs[id] = c.Data
	}
	s.lastCommit = time.Now()
	return nil
}

// load must be called with the lock held.
func (s *Store) load(path string) ([]byte, error) {
	collection, id := docstore.SplitPath(path)
	return s.collections[collection][id], nil
}

// CountDocuments returns the number of stored documents whose path starts
// with pathPrefix.
func (s *Store) CountDocuments(_ context.Context, pathPrefix string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for collection, docs := range s.collections {
		for id := range docs {
			if strings.HasPrefix(collection+"/"+id, pathPrefix) {
				n++
			}
		}
	}
	return n, nil
}

// LastCommit returns the time of the last successful commit.
func (s *Store) LastCommit() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastCommit
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
