package hierarchy

import (
	"sync"

	"campus/internal/domain/models"
)

// Feed carries full item-stub snapshots from the content store to
// subscribers. Publishing never blocks: each subscriber holds at most one
// pending snapshot and a newer one replaces it, so a slow consumer only ever
// skips intermediate states, never stalls a mutation.
type Feed struct {
	mu     sync.Mutex
	subs   map[int]chan []models.ItemStub
	nextID int
	closed bool
}

// NewFeed creates an empty change feed
func NewFeed() *Feed {
	return &Feed{
		subs: make(map[int]chan []models.ItemStub),
	}
}

// Publish delivers the snapshot to every subscriber, replacing any pending
// snapshot that has not been consumed yet.
func (f *Feed) Publish(stubs []models.ItemStub) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	for _, ch := range f.subs {
		// Drop the stale pending snapshot, if any, then enqueue the new one.
		select {
		case <-ch:
		default:
		}
		ch <- stubs
	}
}

// Subscribe registers a consumer. The returned cancel function removes the
// subscription; it is safe to call more than once.
func (f *Feed) Subscribe() (<-chan []models.ItemStub, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++

	ch := make(chan []models.ItemStub, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Close tears down the feed and every remaining subscription
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true

	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
