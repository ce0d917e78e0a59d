// Package badger is an embedded document backend on Badger, for single-node
// deployments that should not depend on a Redis server.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

const (
	docPrefix         = "doc:"
	maxCommitAttempts = 5
)

// Options configures a Store.
type Options struct {
	Dir      string // data directory, ignored when InMemory is set
	InMemory bool
	MaxBytes int // per-document limit, zero disables it
}

// Store keeps each document under doc:{path}. Collections are resolved by
// key prefix, so no separate index is maintained.
type Store struct {
	db       *badger.DB
	logger   logger.Logger
	maxBytes int
}

// New opens (or creates) the database.
func New(opts Options, log logger.Logger) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = badgerLogger{log}
	bopts.SyncWrites = !opts.InMemory // Survive crashes on disk
	bopts.CompactL0OnClose = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	log.Info("badger database opened",
		logger.String("dir", opts.Dir),
		logger.Bool("in_memory", opts.InMemory))

	return &Store{db: db, logger: log, maxBytes: opts.MaxBytes}, nil
}

func docKey(path string) []byte {
	return []byte(docPrefix + path)
}

// Get retrieves the document at path.
func (s *Store) Get(_ context.Context, path string) (docstore.Document, error) {
	if err := docstore.ValidatePath(path); err != nil {
		return nil, err
	}

	var doc docstore.Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			d, err := docstore.ParseDocument(val)
			doc = d
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return doc, nil
}

// List returns every document directly inside collection, keyed by id.
// Documents of nested collections share the key prefix and are skipped.
func (s *Store) List(_ context.Context, collection string) (map[string]docstore.Document, error) {
	prefix := docKey(collection + "/")
	docs := make(map[string]docstore.Document)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := item.Key()[len(prefix):]
			if bytes.IndexByte(id, '/') >= 0 {
				continue
			}

			err := item.Value(func(val []byte) error {
				doc, err := docstore.ParseDocument(val)
				if err != nil {
					return err
				}
				docs[string(id)] = doc
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

// Commit applies muts in a single transaction, retrying on write conflicts.
func (s *Store) Commit(ctx context.Context, muts []docstore.Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = s.db.Update(func(txn *badger.Txn) error {
			changes, err := docstore.Plan(muts, func(path string) ([]byte, error) {
				item, err := txn.Get(docKey(path))
				if errors.Is(err, badger.ErrKeyNotFound) {
					return nil, nil
				}
				if err != nil {
					return nil, err
				}
				return item.ValueCopy(nil)
			}, s.maxBytes)
			if err != nil {
				return err
			}

			for _, c := range changes {
				if c.Deleted {
					if err := txn.Delete(docKey(c.Path)); err != nil {
						return err
					}
					continue
				}
				if err := txn.Set(docKey(c.Path), c.Data); err != nil {
					return err
				}
			}
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		s.logger.Debug("badger commit conflict, retrying", logger.Int("attempt", attempt))
	}

	if err == nil || errors.Is(err, docstore.ErrDocumentTooLarge) || errors.Is(err, docstore.ErrInvalidPath) {
		return err
	}
	return fmt.Errorf("failed to commit %d mutations: %w", len(muts), err)
}

// CountDocuments returns the number of documents whose path starts with
// pathPrefix.
func (s *Store) CountDocuments(_ context.Context, pathPrefix string) (int, error) {
	prefix := docKey(pathPrefix)
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// CollectGarbage reclaims space in the value log until nothing is left to
// rewrite and returns the number of rewritten files.
func (s *Store) CollectGarbage(ctx context.Context) (int, error) {
	rewrites := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(0.5)
		switch {
		case err == nil:
			rewrites++
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return rewrites, nil
		default:
			return rewrites, fmt.Errorf("badger value log gc: %w", err)
		}
	}
	return rewrites, ctx.Err()
}

// Ping reports whether the database is open.
func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing badger database")
	return s.db.Close()
}

// badgerLogger routes Badger's internal logs through the application logger.
type badgerLogger struct {
	l logger.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.l.Errorf(f, v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.l.Warnf(f, v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.l.Debugf(f, v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.l.Debugf(f, v...) }
