// Package docstore is the storage gateway between the in-memory book model
// and a hierarchical document database.
//
// Documents live under users/{uid}. Writes issued while nobody is signed
// in succeed without reaching the backend, so a guest session can use the
// same code paths as a signed-in one.
package docstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

// Identity reports the currently signed-in user, if any.
type Identity interface {
	UserID() (string, bool)
}

// Backend is a document database. Commit must apply all mutations
// atomically.
type Backend interface {
	Get(ctx context.Context, path string) (Document, error)
	List(ctx context.Context, collection string) (map[string]Document, error)
	Commit(ctx context.Context, muts []Mutation) error
	Ping(ctx context.Context) error
	Close() error
}

// Gateway issues reads and writes for the signed-in user.
type Gateway struct {
	backend  Backend
	identity Identity
	logger   logger.Logger

	inFlight atomic.Int64

	mu   sync.Mutex
	tail *Pending // last issued write, nil before the first
}

// NewGateway creates a gateway over backend.
func NewGateway(backend Backend, identity Identity, log logger.Logger) *Gateway {
	return &Gateway{
		backend:  backend,
		identity: identity,
		logger:   log,
	}
}

// Backend returns the underlying database.
func (g *Gateway) Backend() Backend {
	return g.backend
}

// Run issues a remote write. The uid is captured now; with no signed-in
// user op is never called and the returned Pending is already complete.
// Otherwise op runs on its own goroutine once every previously issued write
// has finished, so writes reach the backend in issue order. A failed write
// does not hold back the ones after it. Failures are logged and returned
// through the Pending; they are not retried.
//
// op must not wait on a write issued after it.
func (g *Gateway) Run(ctx context.Context, name string, op func(ctx context.Context, w *Writer) error) *Pending {
	uid, ok := g.identity.UserID()
	if !ok {
		g.logger.Debug("guest mode, remote write skipped", logger.String("op", name))
		return Completed(nil)
	}

	w := &Writer{backend: g.backend, uid: uid}
	p := newPending()
	g.inFlight.Add(1)

	g.mu.Lock()
	prev := g.tail
	g.tail = p
	g.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev.Done()
		}
		err := op(ctx, w)
		if err != nil {
			err = fmt.Errorf("%s: %w", name, err)
			g.logger.Error("remote write failed",
				logger.String("op", name),
				logger.String("uid", uid),
				logger.Error(err))
		}
		g.inFlight.Add(-1)
		p.resolve(err)
	}()

	return p
}

// Merge issues a single-document merge.
func (g *Gateway) Merge(ctx context.Context, name string, ref Ref, doc Document) *Pending {
	return g.Run(ctx, name, func(ctx context.Context, w *Writer) error {
		return w.Merge(ctx, ref, doc)
	})
}

// Commit issues a batch.
func (g *Gateway) Commit(ctx context.Context, name string, b *Batch) *Pending {
	return g.Run(ctx, name, func(ctx context.Context, w *Writer) error {
		return w.Commit(ctx, b)
	})
}

// Get reads the signed-in user's document at ref.
func (g *Gateway) Get(ctx context.Context, ref Ref) (Document, error) {
	uid, ok := g.identity.UserID()
	if !ok {
		return nil, ErrNoIdentity
	}
	return g.backend.Get(ctx, ref.Path(uid))
}

// ListChunks returns every chunk document of a board keyed by chunk index.
func (g *Gateway) ListChunks(ctx context.Context, boardID string) (map[int]Document, error) {
	uid, ok := g.identity.UserID()
	if !ok {
		return nil, ErrNoIdentity
	}

	docs, err := g.backend.List(ctx, ChunkCollection(boardID).Path(uid))
	if err != nil {
		return nil, fmt.Errorf("list chunks of board %s: %w", boardID, err)
	}

	chunks := make(map[int]Document, len(docs))
	for id, doc := range docs {
		idx, err := strconv.Atoi(id)
		if err != nil || idx < 0 {
			g.logger.Warn("ignoring chunk document with non-numeric id",
				logger.String("board_id", boardID),
				logger.String("chunk_id", id))
			continue
		}
		chunks[idx] = doc
	}
	return chunks, nil
}

// WriteInFlight reports whether any issued write has not finished yet.
func (g *Gateway) WriteInFlight() bool {
	return g.inFlight.Load() > 0
}

// Flush waits for every write issued before the call to finish, or for ctx
// to expire. Writes issued while it waits are not covered.
func (g *Gateway) Flush(ctx context.Context) error {
	g.mu.Lock()
	last := g.tail
	g.mu.Unlock()
	if last == nil {
		return nil
	}

	select {
	case <-last.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Writer performs writes for the uid captured by Gateway.Run.
type Writer struct {
	backend Backend
	uid     string
}

// UserID is the uid the writes are issued for.
func (w *Writer) UserID() string {
	return w.uid
}

// Merge deep-merges doc into the document at ref.
func (w *Writer) Merge(ctx context.Context, ref Ref, doc Document) error {
	return w.backend.Commit(ctx, []Mutation{{Kind: MutationMerge, Path: ref.Path(w.uid), Data: doc}})
}

// Commit applies b atomically. An empty batch is a no-op.
func (w *Writer) Commit(ctx context.Context, b *Batch) error {
	if b.Len() == 0 {
		return nil
	}
	return w.backend.Commit(ctx, b.resolve(w.uid))
}

// Get reads a document for the captured uid.
func (w *Writer) Get(ctx context.Context, ref Ref) (Document, error) {
	return w.backend.Get(ctx, ref.Path(w.uid))
}
