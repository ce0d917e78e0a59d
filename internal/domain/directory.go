package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

const (
	// MaxBoards caps the number of boards per user.
	MaxBoards = 50
	// StartingBoardName names the board every new session starts with.
	StartingBoardName = "My board"
)

var (
	ErrTooManyBoards = fmt.Errorf("a user can have at most %d boards", MaxBoards)
	ErrLastBoard     = errors.New("the last board cannot be deleted")
	ErrBoardNotFound = errors.New("board not found")
	ErrNoBoards      = errors.New("no boards to register")
)

// ViewMode is which half of the selected board the UI shows.
type ViewMode string

const (
	ViewUnread ViewMode = "unread"
	ViewRead   ViewMode = "read"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ViewUnread || m == ViewRead
}

// Directory owns every board of the session and which one is selected.
// Boards known only from the user document stay unloaded until selected.
type Directory struct {
	env      *Env
	boards   []*Board
	selected *Board
	unloaded map[string]struct{}
	viewMode ViewMode
}

// NewDirectory creates a directory holding a single starting board that
// is never written remotely.
func NewDirectory(ctx context.Context, env *Env) *Directory {
	d := &Directory{
		env:      env,
		unloaded: make(map[string]struct{}),
		viewMode: ViewUnread,
	}
	_, _ = d.AddBoard(ctx, NewBoard(env, StartingBoardName), WithoutRemoteWrite())
	return d
}

// AddBoardOption tweaks AddBoard.
type AddBoardOption func(*addBoardOptions)

type addBoardOptions struct {
	skipRemote bool
}

// WithoutRemoteWrite keeps the new board local.
func WithoutRemoteWrite() AddBoardOption {
	return func(o *addBoardOptions) { o.skipRemote = true }
}

// Boards returns the boards in display order.
func (d *Directory) Boards() []*Board {
	return slices.Clone(d.boards)
}

// Selected returns the selected board.
func (d *Directory) Selected() *Board {
	return d.selected
}

// Board looks a board up by id.
func (d *Directory) Board(id string) (*Board, bool) {
	i := slices.IndexFunc(d.boards, func(b *Board) bool { return b.ID == id })
	if i < 0 {
		return nil, false
	}
	return d.boards[i], true
}

// IsLoaded reports whether the contents of the board have been fetched.
func (d *Directory) IsLoaded(id string) bool {
	_, unloaded := d.unloaded[id]
	return !unloaded
}

// UnloadedBoardIDs returns the ids of boards whose contents are unknown.
func (d *Directory) UnloadedBoardIDs() []string {
	return slices.Sorted(maps.Keys(d.unloaded))
}

func (d *Directory) ViewMode() ViewMode { return d.viewMode }

// SetViewMode switches between the unread and read lists. Local only.
func (d *Directory) SetViewMode(mode ViewMode) {
	d.viewMode = mode
	d.env.emit(EventViewModeChanged, "", "")
}

// AddBoard appends board and selects it.
func (d *Directory) AddBoard(ctx context.Context, board *Board, opts ...AddBoardOption) (*docstore.Pending, error) {
	if len(d.boards) >= MaxBoards {
		return nil, ErrTooManyBoards
	}

	var o addBoardOptions
	for _, opt := range opts {
		opt(&o)
	}

	d.boards = append(d.boards, board)
	d.selected = board
	d.env.emit(EventBoardAdded, board.ID, "")

	if o.skipRemote {
		return docstore.Completed(nil), nil
	}

	batch := docstore.NewBatch().
		Merge(docstore.UserDoc(), docstore.Document{
			fieldBoardsMetadata: docstore.Document{board.ID: metadataFields(board.Metadata())},
		}).
		Set(docstore.BoardDoc(board.ID), docstore.Document{
			fieldTotalBooksAdded:  0,
			fieldUnreadBooksOrder: []string{},
		})

	return d.env.Store.Commit(ctx, "add board", batch), nil
}

// DeleteBoard removes board with its board and chunk documents. When the
// selected board is deleted the first remaining board is selected.
func (d *Directory) DeleteBoard(ctx context.Context, board *Board) (*docstore.Pending, error) {
	if len(d.boards) <= 1 {
		return nil, ErrLastBoard
	}
	i := slices.Index(d.boards, board)
	if i < 0 {
		return nil, ErrBoardNotFound
	}

	_, wasUnloaded := d.unloaded[board.ID]
	total := board.TotalBooksAdded

	d.boards = slices.Delete(d.boards, i, i+1)
	delete(d.unloaded, board.ID)
	d.env.emit(EventBoardDeleted, board.ID, "")

	if d.selected == board {
		if err := d.SetSelectedBoard(ctx, d.boards[0]); err != nil {
			d.env.Logger.Warn("failed to load board selected after delete",
				logger.String("board_id", d.boards[0].ID),
				logger.Error(err))
		}
	}

	id := board.ID
	return d.env.Store.Run(ctx, "delete board", func(ctx context.Context, w *docstore.Writer) error {
		if wasUnloaded {
			// Contents were never fetched, so the chunk count comes from storage.
			doc, err := w.Get(ctx, docstore.BoardDoc(id))
			switch {
			case err == nil:
				rec, err := decodeBoard(doc)
				if err != nil {
					return err
				}
				total = rec.TotalBooksAdded
			case !errors.Is(err, docstore.ErrNotFound):
				return err
			}
		}

		batch := docstore.NewBatch().Delete(docstore.BoardDoc(id))
		for chunk := 0; chunk <= total/MaxBooksPerDocument; chunk++ {
			batch.Delete(docstore.ChunkDoc(id, chunk))
		}
		batch.Merge(docstore.UserDoc(), docstore.Document{
			fieldBoardsMetadata: docstore.Document{id: docstore.DeleteField},
		})
		return w.Commit(ctx, batch)
	}), nil
}

// SetSelectedBoard selects board and loads its contents if they have not
// been fetched yet.
func (d *Directory) SetSelectedBoard(ctx context.Context, board *Board) error {
	if !slices.Contains(d.boards, board) {
		return ErrBoardNotFound
	}

	d.selected = board
	d.env.emit(EventBoardSelected, board.ID, "")

	if _, unloaded := d.unloaded[board.ID]; !unloaded {
		return nil
	}
	return d.load(ctx, board)
}

// load fetches the board document and its chunks, fills board in and
// repairs the unread order when it has drifted from the stored books.
func (d *Directory) load(ctx context.Context, board *Board) error {
	var (
		rec    boardRecord
		chunks map[int]docstore.Document
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := d.env.Store.Get(gctx, docstore.BoardDoc(board.ID))
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		rec, err = decodeBoard(doc)
		return err
	})
	g.Go(func() error {
		var err error
		chunks, err = d.env.Store.ListChunks(gctx, board.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load board %s: %w", board.ID, err)
	}

	unread := make(map[string]*Book)
	read := make(map[string]*Book)
	for _, idx := range slices.Sorted(maps.Keys(chunks)) {
		for id, fields := range chunks[idx] {
			book, err := decodeBook(id, fields)
			if err != nil {
				d.env.Logger.Warn("skipping malformed book",
					logger.String("board_id", board.ID),
					logger.Int("chunk", idx),
					logger.Error(err))
				continue
			}
			delete(unread, id)
			delete(read, id)
			if book.IsRead() {
				read[id] = book
			} else {
				unread[id] = book
			}
		}
	}

	order, repaired := repairOrder(rec.UnreadBooksOrder, unread)

	total := rec.TotalBooksAdded
	if n := len(unread) + len(read); total < n {
		total = n
	}

	board.TotalBooksAdded = total
	board.UnreadBooksOrder = order
	board.UnreadBooks = unread
	board.ReadBooks = read
	delete(d.unloaded, board.ID)
	d.env.emit(EventBoardLoaded, board.ID, "")

	if !repaired {
		return nil
	}

	d.env.Logger.Info("repaired unread order of loaded board",
		logger.String("board_id", board.ID),
		logger.Int("stored", len(rec.UnreadBooksOrder)),
		logger.Int("repaired", len(order)))

	p := d.env.Store.Merge(context.WithoutCancel(ctx), "repair unread order", docstore.BoardDoc(board.ID), docstore.Document{
		fieldUnreadBooksOrder: slices.Clone(order),
	})
	if err := p.WaitContext(ctx); err != nil {
		d.env.Logger.Warn("repaired unread order not persisted",
			logger.String("board_id", board.ID),
			logger.Error(err))
	}
	return nil
}

// RegisterBoardsMetadata replaces every board with an unloaded placeholder
// built from meta, ordered by creation time. The first one is selected but
// not loaded.
func (d *Directory) RegisterBoardsMetadata(meta map[string]BoardMetadata) error {
	if len(meta) == 0 {
		return ErrNoBoards
	}

	boards := make([]*Board, 0, len(meta))
	unloaded := make(map[string]struct{}, len(meta))
	for id, m := range meta {
		boards = append(boards, newBoard(d.env, id, m))
		unloaded[id] = struct{}{}
	}
	slices.SortFunc(boards, func(a, b *Board) int {
		if c := a.TimeCreated.Compare(b.TimeCreated); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	d.boards = boards
	d.unloaded = unloaded
	d.selected = boards[0]
	d.env.emit(EventBoardsRegistered, "", "")
	return nil
}

// BoardsMetadata returns the name and creation time of every board.
func (d *Directory) BoardsMetadata() map[string]BoardMetadata {
	meta := make(map[string]BoardMetadata, len(d.boards))
	for _, b := range d.boards {
		meta[b.ID] = b.Metadata()
	}
	return meta
}
