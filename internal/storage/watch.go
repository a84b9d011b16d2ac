package storage

import "sync"

// EntityKind names one of the stored record types for change subscriptions.
type EntityKind string

const (
	KindTransaction EntityKind = "transaction"
	KindPayment     EntityKind = "payment"
	KindSaving      EntityKind = "saving"
	KindProfile     EntityKind = "profile"
)

// Op is the kind of write that produced a change event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one store mutation. ID is empty for bulk operations; consumers
// are expected to re-query rather than patch local state.
type Change struct {
	Kind EntityKind
	Op   Op
	ID   string
}

// watcher fans change events out to subscribers. Sends never block: a
// subscriber that falls behind loses intermediate events, which is fine
// because consumers re-read the current snapshot on every event.
type watcher struct {
	mu     sync.Mutex
	nextID int
	subs   map[EntityKind]map[int]chan Change
	closed bool
}

func newWatcher() *watcher {
	return &watcher{subs: make(map[EntityKind]map[int]chan Change)}
}

func (w *watcher) subscribe(kind EntityKind) (<-chan Change, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan Change, 16)
	if w.closed {
		close(ch)
		return ch, func() {}
	}

	if w.subs[kind] == nil {
		w.subs[kind] = make(map[int]chan Change)
	}
	id := w.nextID
	w.nextID++
	w.subs[kind][id] = ch

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if sub, ok := w.subs[kind][id]; ok {
			delete(w.subs[kind], id)
			close(sub)
		}
	}
	return ch, cancel
}

func (w *watcher) emit(kind EntityKind, op Op, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for _, ch := range w.subs[kind] {
		select {
		case ch <- Change{Kind: kind, Op: op, ID: id}:
		default:
			// Slow subscriber: drop, it will catch up on the next event.
		}
	}
}

func (w *watcher) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	for _, subs := range w.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	w.subs = nil
}
