package handlers

import (
	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
)

type bookView struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Chunk         int     `json:"chunk"`
	Rating        *int    `json:"rating,omitempty"`
	Review        *string `json:"review,omitempty"`
	TimeCompleted *int64  `json:"timeCompleted,omitempty"`
}

type boardSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TimeCreated int64  `json:"timeCreated"`
	Loaded      bool   `json:"loaded"`
}

type boardView struct {
	boardSummary
	TotalBooksAdded   int        `json:"totalBooksAdded"`
	ReadBooksSortMode string     `json:"readBooksSortMode"`
	UnreadBooks       []bookView `json:"unreadBooks"`
	ReadBooks         []bookView `json:"readBooks"`
}

type profileView struct {
	ColorTheme          string        `json:"colorTheme"`
	Plants              domain.Plants `json:"plants"`
	CompletedBooksCount int           `json:"completedBooksCount"`
	LastSelectedBoardID string        `json:"lastSelectedBoardId,omitempty"`
	Unlocked            []string      `json:"unlocked"`
}

type stateView struct {
	SignedIn        bool           `json:"signedIn"`
	AwaitingSync    bool           `json:"awaitingSync"`
	Synced          bool           `json:"synced"`
	PostSignupSync  bool           `json:"postSignupSync"`
	UnsyncedChanges bool           `json:"unsyncedChanges"`
	ViewMode        string         `json:"viewMode"`
	SelectedBoardID string         `json:"selectedBoardId"`
	Boards          []boardSummary `json:"boards"`
	Profile         profileView    `json:"profile"`
}

func newBookView(b *domain.Book) bookView {
	v := bookView{
		ID:     b.ID,
		Title:  b.Title,
		Author: b.Author,
		Chunk:  b.Chunk,
		Rating: b.Rating,
		Review: b.Review,
	}
	if b.TimeCompleted != nil {
		ms := b.TimeCompleted.UnixMilli()
		v.TimeCompleted = &ms
	}
	return v
}

func newBoardSummary(dir *domain.Directory, b *domain.Board) boardSummary {
	return boardSummary{
		ID:          b.ID,
		Name:        b.Name,
		TimeCreated: b.TimeCreated.UnixMilli(),
		Loaded:      dir.IsLoaded(b.ID),
	}
}

func newBoardView(dir *domain.Directory, b *domain.Board) boardView {
	v := boardView{
		boardSummary:      newBoardSummary(dir, b),
		TotalBooksAdded:   b.TotalBooksAdded,
		ReadBooksSortMode: string(b.ReadBooksSortMode),
		UnreadBooks:       []bookView{},
		ReadBooks:         []bookView{},
	}
	for _, book := range b.OrderedUnreadBooks() {
		v.UnreadBooks = append(v.UnreadBooks, newBookView(book))
	}
	for _, book := range b.SortedReadBooks() {
		v.ReadBooks = append(v.ReadBooks, newBookView(book))
	}
	return v
}

func newProfileView(p *domain.Profile) profileView {
	v := profileView{
		ColorTheme:          p.ColorTheme(),
		Plants:              p.Plants(),
		CompletedBooksCount: p.CompletedBooksCount(),
		LastSelectedBoardID: p.LastSelectedBoardID(),
		Unlocked:            []string{},
	}
	for _, list := range [][]domain.Unlockable{domain.ThemeCatalog, domain.PlantCatalog} {
		for _, u := range list {
			if p.IsUnlocked(u.ID) {
				v.Unlocked = append(v.Unlocked, u.ID)
			}
		}
	}
	return v
}

func newStateView(sess *appstate.Session, status appstate.SyncStatus) stateView {
	dir := sess.Directory
	v := stateView{
		SignedIn:        status.SignedIn,
		AwaitingSync:    status.AwaitingSync,
		Synced:          status.Synced,
		PostSignupSync:  status.PostSignup,
		UnsyncedChanges: status.WriteInFlight,
		ViewMode:        string(dir.ViewMode()),
		SelectedBoardID: dir.Selected().ID,
		Boards:          make([]boardSummary, 0, len(dir.Boards())),
		Profile:         newProfileView(sess.Env.Profile),
	}
	for _, b := range dir.Boards() {
		v.Boards = append(v.Boards, newBoardSummary(dir, b))
	}
	return v
}
