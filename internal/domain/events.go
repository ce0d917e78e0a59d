package domain

import (
	"sync"
	"time"
)

// EventKind names a state change.
type EventKind string

const (
	EventBoardAdded       EventKind = "board.added"
	EventBoardDeleted     EventKind = "board.deleted"
	EventBoardRenamed     EventKind = "board.renamed"
	EventBoardSelected    EventKind = "board.selected"
	EventBoardLoaded      EventKind = "board.loaded"
	EventBoardsRegistered EventKind = "boards.registered"
	EventOrderChanged     EventKind = "board.order_changed"
	EventSortModeChanged  EventKind = "board.sort_mode_changed"
	EventBookAdded        EventKind = "book.added"
	EventBookEdited       EventKind = "book.edited"
	EventBookDeleted      EventKind = "book.deleted"
	EventBookRead         EventKind = "book.read"
	EventViewModeChanged  EventKind = "view.changed"
	EventProfileChanged   EventKind = "profile.changed"
	EventUnlocked         EventKind = "profile.unlocked"
	EventSessionChanged   EventKind = "session.changed"
	EventSynced           EventKind = "session.synced"
)

// Event is emitted after a local mutation has been applied.
type Event struct {
	Kind    EventKind `json:"kind"`
	BoardID string    `json:"boardId,omitempty"`
	BookID  string    `json:"bookId,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier fans events out to subscribers. Slow subscribers miss events
// rather than block the mutation that emitted them.
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	now    func() time.Time
}

// NewNotifier creates a notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[int]chan Event),
		now:  time.Now,
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// func unsubscribes and closes the channel.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Event, buffer)
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
}

// Emit delivers e to every subscriber that has room for it.
func (n *Notifier) Emit(e Event) {
	if n == nil {
		return
	}
	if e.At.IsZero() {
		e.At = n.now()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers returns the number of active subscribers.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
