package ledger

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventTransactionsImported EventKind = "transactions.imported"
	EventTransactionsUpdated  EventKind = "transactions.updated"
	EventTransactionsDeleted  EventKind = "transactions.deleted"
	EventTransactionLinked    EventKind = "transaction.linked"
	EventDirectoryChanged     EventKind = "directory.changed"
)

// Event tells subscribers that data they may be showing changed.
type Event struct {
	Kind  EventKind `json:"kind"`
	IDs   []string  `json:"ids,omitempty"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

func NewEvent(kind EventKind, ids ...string) Event {
	return Event{Kind: kind, IDs: ids, Count: len(ids), At: time.Now().UTC()}
}

// Publisher is what writers depend on to announce changes.
type Publisher interface {
	Publish(Event)
}

// Notifier fans events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 16
	}
	return &Notifier{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe returns a channel of events and a func that unsubscribes and
// closes the channel.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, n.buffer)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
			close(ch)
		})
	}
}

func (n *Notifier) Publish(e Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
