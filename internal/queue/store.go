package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"stockmeta/internal/metadata"
)

// PreviewReleaser frees the resource behind a preview URL.
type PreviewReleaser interface {
	Release(url string)
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithPreviewReleaser registers where previews are released on removal.
func WithPreviewReleaser(r PreviewReleaser) StoreOption {
	return func(s *Store) {
		s.releaser = r
	}
}

// WithIDGenerator overrides item id generation (useful for tests).
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// Store owns the queue. Reads go through an atomically published snapshot;
// writes are serialized and replace the snapshot wholesale.
type Store struct {
	mu       sync.Mutex
	current  atomic.Pointer[Queue]
	releaser PreviewReleaser
	newID    func() string
	now      func() time.Time

	subMu   sync.Mutex
	subs    map[int]chan Queue
	nextSub int
}

// NewStore constructs an empty queue.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		newID: uuid.NewString,
		now:   time.Now,
		subs:  make(map[int]chan Queue),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(newQueue(nil, 0))
	return s
}

// Snapshot returns the current immutable queue.
func (s *Store) Snapshot() Queue {
	return *s.current.Load()
}

// Get returns the current state of one item.
func (s *Store) Get(id string) (Item, bool) {
	return s.Snapshot().Get(id)
}

// Subscribe returns a channel that receives the latest snapshot after each
// change. Slow readers only see the most recent snapshot. The returned func
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Queue, func()) {
	ch := make(chan Queue, 1)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

// Create appends a new idle item for file and returns it.
func (s *Store) Create(file File) Item {
	return s.Add(file)[0]
}

// Add appends one idle item per file, in order.
func (s *Store) Add(files ...File) []Item {
	if len(files) == 0 {
		return nil
	}
	now := s.now()
	created := make([]Item, 0, len(files))
	for _, f := range files {
		created = append(created, Item{
			ID:        s.newID(),
			File:      f,
			Status:    StatusIdle,
			AddedAt:   now,
			UpdatedAt: now,
		})
	}
	s.mutate(func(items []Item) []Item {
		return append(items, created...)
	})
	return created
}

// SetPreview attaches url to the item only if it still exists and has no
// preview yet. A preview that cannot be attached is released immediately.
func (s *Store) SetPreview(id, url string) bool {
	if url == "" {
		return false
	}
	applied := false
	s.mutateItem(id, func(item *Item) error {
		if item.PreviewURL != "" {
			return errSkip
		}
		item.PreviewURL = url
		applied = true
		return nil
	})
	if !applied {
		s.release(url)
	}
	return applied
}

// MarkProcessing moves an idle or errored item into processing and clears any
// previous error.
func (s *Store) MarkProcessing(id string) error {
	return s.mutateItem(id, func(item *Item) error {
		if !item.Status.Eligible() {
			return transitionError(id, item.Status, StatusProcessing)
		}
		item.Status = StatusProcessing
		item.Error = ""
		item.Result = nil
		return nil
	})
}

// MarkSuccess records result on a processing item.
func (s *Store) MarkSuccess(id string, result metadata.Result) error {
	return s.mutateItem(id, func(item *Item) error {
		if item.Status != StatusProcessing {
			return transitionError(id, item.Status, StatusSuccess)
		}
		item.Status = StatusSuccess
		item.Result = result
		item.Error = ""
		return nil
	})
}

// MarkError records message on a processing item.
func (s *Store) MarkError(id, message string) error {
	if message == "" {
		message = "Failed"
	}
	return s.mutateItem(id, func(item *Item) error {
		if item.Status != StatusProcessing {
			return transitionError(id, item.Status, StatusError)
		}
		item.Status = StatusError
		item.Error = message
		item.Result = nil
		return nil
	})
}

// MarkIdle rolls an in-flight item back to idle after a stop was observed.
func (s *Store) MarkIdle(id string) error {
	return s.mutateItem(id, func(item *Item) error {
		if item.Status != StatusProcessing {
			return transitionError(id, item.Status, StatusIdle)
		}
		item.Status = StatusIdle
		item.Error = ""
		item.Result = nil
		return nil
	})
}

// Retry resets a failed item to idle so the next batch run picks it up.
func (s *Store) Retry(id string) error {
	return s.mutateItem(id, func(item *Item) error {
		if item.Status != StatusError {
			return transitionError(id, item.Status, StatusIdle)
		}
		item.Status = StatusIdle
		item.Error = ""
		return nil
	})
}

// RetryFailed resets every failed item and reports how many changed.
func (s *Store) RetryFailed() int {
	changed := 0
	now := s.now()
	s.mutate(func(items []Item) []Item {
		for i := range items {
			if items[i].Status == StatusError {
				items[i].Status = StatusIdle
				items[i].Error = ""
				items[i].UpdatedAt = now
				changed++
			}
		}
		return items
	})
	return changed
}

// Remove releases the item's preview and deletes it. Removing an unknown id
// is a no-op that returns false.
func (s *Store) Remove(id string) bool {
	var removed *Item
	s.mutate(func(items []Item) []Item {
		for i := range items {
			if items[i].ID == id {
				item := items[i]
				removed = &item
				return append(items[:i], items[i+1:]...)
			}
		}
		return items
	})
	if removed == nil {
		return false
	}
	s.release(removed.PreviewURL)
	return true
}

// Clear releases every preview and empties the queue. It returns the number
// of items removed.
func (s *Store) Clear() int {
	var dropped []Item
	s.mutate(func(items []Item) []Item {
		dropped = items
		return nil
	})
	for _, item := range dropped {
		s.release(item.PreviewURL)
	}
	return len(dropped)
}

func (s *Store) release(url string) {
	if url == "" || s.releaser == nil {
		return
	}
	s.releaser.Release(url)
}
