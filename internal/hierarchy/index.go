// Package hierarchy maintains the ancestry cache used by the permission
// evaluator: for every item, the ordered list of its ancestor IDs
// (root-first, nearest parent last, excluding the item itself).
//
// The index is rebuilt from change-feed snapshots by a single background
// goroutine and published copy-on-write, so reads never block and always see
// the last fully-computed map. It is eventually consistent with the store:
// a check issued immediately after a mutation may observe the previous
// ancestry for one feed cycle.
package hierarchy

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"campus/internal/domain/models"
)

// Index is the process-wide ancestry cache. Construct one per server
// process, start it once, and close it with the owning process.
type Index struct {
	logger  *slog.Logger
	current atomic.Value // map[string][]string

	feed   <-chan []models.ItemStub
	cancel func()

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewIndex creates an index subscribed to the given feed. Call Start to
// begin consuming and Close to tear the subscription down.
func NewIndex(feed *Feed, logger *slog.Logger) *Index {
	ch, cancel := feed.Subscribe()

	ix := &Index{
		logger: logger,
		feed:   ch,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	ix.current.Store(map[string][]string{})

	return ix
}

// Start launches the background updater
func (ix *Index) Start() {
	ix.startOnce.Do(func() {
		go ix.run()
	})
}

// Close unsubscribes from the feed and waits for the updater to finish the
// rebuild in flight, if any.
func (ix *Index) Close() {
	ix.closeOnce.Do(func() {
		ix.cancel()
		<-ix.done
	})
}

func (ix *Index) run() {
	defer close(ix.done)

	for stubs := range ix.feed {
		rebuilt := BuildAncestors(stubs)
		ix.current.Store(rebuilt)

		ix.logger.Debug("hierarchy index rebuilt", "items", len(stubs))
	}
}

// Ancestors returns the ancestor path of an item, root-first, excluding the
// item itself. The second return reports whether the item is known to the
// index. Never blocks; serves the last published map.
func (ix *Index) Ancestors(id string) ([]string, bool) {
	m := ix.current.Load().(map[string][]string)
	path, ok := m[id]
	return path, ok
}

// Snapshot returns the current id -> ancestors map. The map is shared and
// must not be mutated by callers.
func (ix *Index) Snapshot() map[string][]string {
	return ix.current.Load().(map[string][]string)
}

// BuildAncestors computes the ancestry map for a snapshot. Per-item results
// are memoized so a rebuild is O(N) over the snapshot rather than O(N^2).
// An item whose parent is missing from the snapshot is treated as a root;
// a parent cycle is broken at the revisited node so the walk always
// terminates.
func BuildAncestors(stubs []models.ItemStub) map[string][]string {
	parents := make(map[string]*string, len(stubs))
	for i := range stubs {
		parents[stubs[i].ID] = stubs[i].ParentID
	}

	memo := make(map[string][]string, len(stubs))
	onPath := make(map[string]bool)

	var ancestorsOf func(id string) []string
	ancestorsOf = func(id string) []string {
		if path, ok := memo[id]; ok {
			return path
		}

		parent, known := parents[id]
		if !known || parent == nil {
			memo[id] = []string{}
			return memo[id]
		}
		if _, exists := parents[*parent]; !exists {
			// Dangling parent reference: treat as root rather than invent
			// ancestry the store cannot confirm.
			memo[id] = []string{}
			return memo[id]
		}
		if onPath[id] {
			memo[id] = []string{}
			return memo[id]
		}

		onPath[id] = true
		parentPath := ancestorsOf(*parent)
		delete(onPath, id)

		path := make([]string, 0, len(parentPath)+1)
		path = append(path, parentPath...)
		path = append(path, *parent)
		memo[id] = path
		return path
	}

	for id := range parents {
		ancestorsOf(id)
	}

	return memo
}
