// Package initialsync reconciles the in-memory session with the user's
// stored data right after sign-in.
package initialsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

// Orchestrator runs the initial sync once per signed-in user.
//
// A returning user's stored profile and board list replace the local ones.
// A first sign-in uploads everything the guest session created in a single
// batch instead.
type Orchestrator struct {
	env      *domain.Env
	dir      *domain.Directory
	identity docstore.Identity
	logger   logger.Logger

	syncedUID  string
	synced     atomic.Bool
	postSignup atomic.Bool
}

// New creates an orchestrator for one session.
func New(env *domain.Env, dir *domain.Directory, identity docstore.Identity, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		env:      env,
		dir:      dir,
		identity: identity,
		logger:   log.With(logger.String("component", "initialsync")),
	}
}

// IsSynced reports whether the signed-in user's data has been synced.
func (o *Orchestrator) IsSynced() bool {
	return o.synced.Load()
}

// IsPerformingPostSignupSync reports whether the first-sign-in upload is
// running.
func (o *Orchestrator) IsPerformingPostSignupSync() bool {
	return o.postSignup.Load()
}

// Reset forgets the synced user, so the next SyncData runs again.
func (o *Orchestrator) Reset() {
	o.syncedUID = ""
	o.synced.Store(false)
	o.postSignup.Store(false)
}

// SyncData syncs the signed-in user. It does nothing for a guest or when
// the same user has already been synced.
func (o *Orchestrator) SyncData(ctx context.Context) error {
	uid, ok := o.identity.UserID()
	if !ok {
		return nil
	}
	if o.synced.Load() && o.syncedUID == uid {
		return nil
	}

	log := o.logger.With(logger.String("uid", uid))

	doc, err := o.env.Store.Get(ctx, docstore.UserDoc())
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		log.Info("no stored user data, uploading local session")
		if err := o.postSignupSync(ctx); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("read user document: %w", err)
	default:
		rec, err := domain.DecodeUserRecord(doc)
		if err != nil {
			return err
		}
		if err := o.restore(ctx, log, rec); err != nil {
			return err
		}
	}

	o.syncedUID = uid
	o.synced.Store(true)
	o.env.Events.Emit(domain.Event{Kind: domain.EventSynced, At: o.env.Now()})
	log.Info("initial sync complete", logger.Int("boards", len(o.dir.Boards())))
	return nil
}

// restore replaces the local profile and boards with the stored ones.
func (o *Orchestrator) restore(ctx context.Context, log logger.Logger, rec domain.UserRecord) error {
	o.env.Profile.Hydrate(rec)

	meta := rec.Metadata()
	if len(meta) == 0 {
		// A user document without boards would leave the directory empty.
		log.Warn("user document has no boards, uploading local boards")
		return o.upload(ctx, "upload local boards", false)
	}

	if err := o.dir.RegisterBoardsMetadata(meta); err != nil {
		return err
	}

	boards := o.dir.Boards()
	target := boards[0]
	if i := slices.IndexFunc(boards, func(b *domain.Board) bool {
		return b.ID == rec.LastSelectedBoardID
	}); i >= 0 {
		target = boards[i]
	}

	if err := o.dir.SetSelectedBoard(ctx, target); err != nil {
		return fmt.Errorf("load board %s: %w", target.ID, err)
	}
	return nil
}

func (o *Orchestrator) postSignupSync(ctx context.Context) error {
	o.postSignup.Store(true)
	defer o.postSignup.Store(false)

	return o.upload(ctx, "post-signup sync", true)
}

// upload writes every local board in one batch. With replace set the user
// document is overwritten; otherwise only its board fields are merged in.
func (o *Orchestrator) upload(ctx context.Context, name string, replace bool) error {
	selected := o.dir.Selected().ID
	meta := o.dir.BoardsMetadata()

	batch := docstore.NewBatch()
	if replace {
		batch.Set(docstore.UserDoc(), o.env.Profile.UserDocument(meta, selected))
	} else {
		batch.Merge(docstore.UserDoc(), domain.BoardListFields(meta, selected))
	}

	books := 0
	for _, board := range o.dir.Boards() {
		books += addBoard(batch, board)
	}

	// The upload outlives ctx; only the wait is bounded by it.
	if err := o.env.Store.Commit(context.WithoutCancel(ctx), name, batch).WaitContext(ctx); err != nil {
		return err
	}

	o.logger.Info("local session uploaded",
		logger.String("op", name),
		logger.Int("boards", len(meta)),
		logger.Int("books", books),
		logger.Int("writes", batch.Len()))
	return nil
}

// addBoard queues the board document and one document per chunk. Chunk 0
// is always written, so a board with fewer than MaxBooksPerDocument added
// books produces exactly one chunk document.
func addBoard(batch *docstore.Batch, board *domain.Board) int {
	batch.Set(docstore.BoardDoc(board.ID), domain.BoardFields(board))

	chunks := map[int]docstore.Document{0: {}}
	n := 0
	for _, set := range []map[string]*domain.Book{board.UnreadBooks, board.ReadBooks} {
		for id, book := range set {
			if chunks[book.Chunk] == nil {
				chunks[book.Chunk] = docstore.Document{}
			}
			chunks[book.Chunk][id] = domain.BookFields(book)
			n++
		}
	}

	indexes := make([]int, 0, len(chunks))
	for i := range chunks {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	for _, i := range indexes {
		batch.Set(docstore.ChunkDoc(board.ID, i), chunks[i])
	}
	return n
}
